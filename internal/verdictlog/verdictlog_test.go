package verdictlog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jmerrifield20/phishlens/internal/analysis"
	"github.com/jmerrifield20/phishlens/internal/verdictlog"
	"go.uber.org/zap"
)

var ctx = context.Background()

func appendN(t *testing.T, l verdictlog.Log, n int) []*verdictlog.Entry {
	t.Helper()
	var out []*verdictlog.Entry
	for i := 0; i < n; i++ {
		e, err := l.Append(ctx, verdictlog.Record{
			AnalysisID: "id",
			URL:        "http://example.com",
			Verdict:    verdictlog.VerdictSafe,
			RiskScore:  i,
			Source:     "fallback",
			Payload:    map[string]int{"i": i},
		})
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, e)
	}
	return out
}

func TestNewMemoryLog_genesisEntry(t *testing.T) {
	l := verdictlog.NewMemoryLog()

	n, err := l.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 genesis entry, got %d", n)
	}

	entry, err := l.Get(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Verdict != verdictlog.VerdictGenesis {
		t.Errorf("expected verdict 'genesis', got %q", entry.Verdict)
	}
	if entry.Hash != verdictlog.GenesisHash {
		t.Errorf("genesis hash: got %q, want GenesisHash", entry.Hash)
	}
}

func TestAppend_chainsCorrectly(t *testing.T) {
	l := verdictlog.NewMemoryLog()
	entries := appendN(t, l, 2)

	if entries[1].PrevHash != entries[0].Hash {
		t.Errorf("chain broken: e2.PrevHash=%q, want e1.Hash=%q", entries[1].PrevHash, entries[0].Hash)
	}
	if entries[0].PrevHash != verdictlog.GenesisHash {
		t.Errorf("first entry must chain to genesis, got %q", entries[0].PrevHash)
	}
	if entries[0].DataHash == entries[1].DataHash {
		t.Error("different payloads must produce different data hashes")
	}

	n, err := l.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 { // genesis + 2
		t.Errorf("expected 3 entries, got %d", n)
	}
}

func TestAppend_unmarshalablePayload(t *testing.T) {
	l := verdictlog.NewMemoryLog()
	if _, err := l.Append(ctx, verdictlog.Record{Payload: make(chan int)}); err == nil {
		t.Error("expected marshal error")
	}
	if n, _ := l.Len(ctx); n != 1 {
		t.Errorf("failed append must not grow the log, got %d entries", n)
	}
}

func TestGet_outOfRange(t *testing.T) {
	l := verdictlog.NewMemoryLog()
	for _, idx := range []int{-1, 1, 100} {
		if _, err := l.Get(ctx, idx); !errors.Is(err, verdictlog.ErrNotFound) {
			t.Errorf("Get(%d): expected ErrNotFound, got %v", idx, err)
		}
	}
}

func TestVerify_valid(t *testing.T) {
	l := verdictlog.NewMemoryLog()
	appendN(t, l, 5)

	if err := l.Verify(ctx); err != nil {
		t.Errorf("Verify() failed on valid chain: %v", err)
	}
}

func TestVerify_genesisOnlyChain(t *testing.T) {
	l := verdictlog.NewMemoryLog()
	if err := l.Verify(ctx); err != nil {
		t.Errorf("Verify() on genesis-only chain should pass: %v", err)
	}
}

func TestRoot_returnsLastHash(t *testing.T) {
	l := verdictlog.NewMemoryLog()
	e := appendN(t, l, 1)[0]

	root, err := l.Root(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if root != e.Hash {
		t.Errorf("Root(): got %q, want %q", root, e.Hash)
	}
}

func TestRoot_genesisOnly(t *testing.T) {
	l := verdictlog.NewMemoryLog()
	root, err := l.Root(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if root != verdictlog.GenesisHash {
		t.Errorf("Root() on genesis-only: got %q, want GenesisHash", root)
	}
}

func TestRecent(t *testing.T) {
	l := verdictlog.NewMemoryLog()

	got, err := l.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("genesis must not be listed, got %d entries", len(got))
	}

	appendN(t, l, 4)
	got, err = l.Recent(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	for i, want := range []int{4, 3, 2} {
		if got[i].Index != want {
			t.Errorf("Recent()[%d].Index = %d, want %d", i, got[i].Index, want)
		}
	}

	if got, _ := l.Recent(ctx, 0); len(got) != 0 {
		t.Errorf("Recent(0) returned %d entries", len(got))
	}
	if got, _ := l.Recent(ctx, -3); len(got) != 0 {
		t.Errorf("Recent(-3) returned %d entries", len(got))
	}
}

func TestRecorder_appendsAssessments(t *testing.T) {
	l := verdictlog.NewMemoryLog()
	a := analysis.New(nil, zap.NewNop(), analysis.WithRecorder(verdictlog.NewRecorder(l)))

	res, err := a.Analyze(ctx, "http://192.168.0.1@paypal.com.verify-account.net/login")
	if err != nil {
		t.Fatal(err)
	}

	e, err := l.Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if e.AnalysisID != res.ID.String() {
		t.Errorf("analysis id: got %q, want %q", e.AnalysisID, res.ID)
	}
	if e.Verdict != verdictlog.VerdictPhishing {
		t.Errorf("verdict: got %q, want %q", e.Verdict, verdictlog.VerdictPhishing)
	}
	if e.RiskScore != 60 {
		t.Errorf("risk score: got %d, want 60", e.RiskScore)
	}
	if e.Source != string(analysis.SourceFallback) {
		t.Errorf("source: got %q, want %q", e.Source, analysis.SourceFallback)
	}
	if err := l.Verify(ctx); err != nil {
		t.Errorf("Verify(): %v", err)
	}
}
