package verdictlog

import (
	"context"
	"strings"
	"testing"
)

func TestVerify_detectsTampering(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		tamper  func(l *MemoryLog)
		wantErr string
	}{
		{
			name:    "rewritten verdict",
			tamper:  func(l *MemoryLog) { l.entries[1].Verdict = VerdictSafe },
			wantErr: "entry 1 has invalid hash",
		},
		{
			name:    "rewritten score",
			tamper:  func(l *MemoryLog) { l.entries[2].RiskScore = 0 },
			wantErr: "entry 2 has invalid hash",
		},
		{
			name:    "broken link",
			tamper:  func(l *MemoryLog) { l.entries[2].PrevHash = GenesisHash },
			wantErr: "hash chain broken at index 2",
		},
		{
			name:    "genesis",
			tamper:  func(l *MemoryLog) { l.entries[0].Hash = "ff" },
			wantErr: "genesis entry has wrong hash",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := NewMemoryLog()
			for i := 0; i < 2; i++ {
				if _, err := l.Append(ctx, Record{URL: "http://1.2.3.4", Verdict: VerdictPhishing, RiskScore: 80}); err != nil {
					t.Fatal(err)
				}
			}
			tc.tamper(l)

			err := l.Verify(ctx)
			if err == nil {
				t.Fatal("Verify() accepted a tampered chain")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Verify() error = %q, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestHashEntry_coversURL(t *testing.T) {
	a := &Entry{Index: 1, URL: "http://a.example"}
	b := &Entry{Index: 1, URL: "http://b.example"}
	if hashEntry(a) == hashEntry(b) {
		t.Error("entries differing only by URL must hash differently")
	}
}
