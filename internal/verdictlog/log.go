package verdictlog

import (
	"context"
	"errors"
)

// Record is the data appended for one completed analysis.
type Record struct {
	AnalysisID string
	URL        string
	Verdict    string // VerdictPhishing or VerdictSafe
	RiskScore  int
	Source     string // oracle or fallback
	Payload    any    // full result; only its SHA-256 is stored
}

// Log is the interface for the append-only verdict chain.
// Both MemoryLog and PostgresLog implement this interface.
type Log interface {
	// Append adds a new entry chained to the previous one.
	// rec.Payload is JSON-marshalled and its SHA-256 is stored as DataHash.
	Append(ctx context.Context, rec Record) (*Entry, error)

	// Get returns the entry at the given zero-based index.
	Get(ctx context.Context, index int) (*Entry, error)

	// Len returns the total number of entries (including the genesis entry).
	Len(ctx context.Context) (int, error)

	// Recent returns up to n entries, newest first. The genesis entry is
	// never included.
	Recent(ctx context.Context, n int) ([]*Entry, error)

	// Verify walks the entire chain and checks hash consistency.
	// Returns nil if the chain is intact.
	Verify(ctx context.Context) error

	// Root returns the hash of the most recent entry (the chain tip).
	Root(ctx context.Context) (string, error)
}

// ErrNotFound is returned by Get for an index outside the chain.
var ErrNotFound = errors.New("verdict log entry not found")
