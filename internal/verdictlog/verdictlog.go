// Package verdictlog implements a hash-chained audit log of URL verdicts.
//
// The chain begins with a well-known genesis entry whose Hash equals GenesisHash
// (64 hex zeros). Every subsequent entry records the SHA-256 of its predecessor,
// making any tampering detectable via Verify.
//
// Two implementations of the Log interface are provided:
//   - MemoryLog: in-process, for testing and single-node deployments.
//   - PostgresLog: durable, for production use.
package verdictlog
