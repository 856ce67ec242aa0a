package verdictlog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// GenesisHash is the canonical well-known hash of the genesis entry.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Verdict labels stored in entries.
const (
	VerdictGenesis  = "genesis"
	VerdictPhishing = "phishing"
	VerdictSafe     = "safe"
)

// Entry is a single audit record in the verdict log.
type Entry struct {
	Index      int       `json:"index"`
	Timestamp  time.Time `json:"timestamp"`
	AnalysisID string    `json:"analysis_id"`
	URL        string    `json:"url"`
	Verdict    string    `json:"verdict"`
	RiskScore  int       `json:"risk_score"`
	Source     string    `json:"source"`
	DataHash   string    `json:"data_hash"` // SHA-256 of the full result
	PrevHash   string    `json:"prev_hash"`
	Hash       string    `json:"hash"`
}

// hashEntry computes a deterministic SHA-256 hash over an entry's fields.
// This function must never be called on the genesis entry (index 0).
func hashEntry(e *Entry) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s|%q|%s|%d|%s|%s|%s",
		e.Index, e.Timestamp.Format(time.RFC3339Nano),
		e.AnalysisID, e.URL, e.Verdict, e.RiskScore,
		e.Source, e.DataHash, e.PrevHash,
	)
	return hex.EncodeToString(h.Sum(nil))
}

// sha256Sum returns the hex-encoded SHA-256 digest of data.
func sha256Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func genesisEntry(ts time.Time) *Entry {
	return &Entry{
		Index:     0,
		Timestamp: ts,
		Verdict:   VerdictGenesis,
		Source:    "phishlens",
		DataHash:  GenesisHash,
		PrevHash:  GenesisHash,
		Hash:      GenesisHash, // genesis hash is the well-known constant, not computed
	}
}

// verifyLink checks curr against its predecessor.
func verifyLink(prev, curr *Entry) error {
	if curr.PrevHash != prev.Hash {
		return fmt.Errorf("hash chain broken at index %d", curr.Index)
	}
	if curr.Hash != hashEntry(curr) {
		return fmt.Errorf("entry %d has invalid hash", curr.Index)
	}
	return nil
}
