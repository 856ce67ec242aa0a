package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/phishlens/internal/analysis"
	"github.com/jmerrifield20/phishlens/internal/api/handler"
	"github.com/jmerrifield20/phishlens/internal/oracle"
	"github.com/jmerrifield20/phishlens/internal/verdictlog"
	"github.com/jmerrifield20/phishlens/pkg/client"
	"github.com/jmerrifield20/phishlens/pkg/urlfeatures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ── Test server ─────────────────────────────────────────────────────────

func newServer(t *testing.T, o oracle.Oracle) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	l := verdictlog.NewMemoryLog()
	a := analysis.New(o, zap.NewNop(), analysis.WithRecorder(verdictlog.NewRecorder(l)))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := httptest.NewServer(handler.NewRouter(ctx, handler.RouterConfig{
		Analyzer:         a,
		VerdictLog:       l,
		BatchConcurrency: 4,
	}))
	t.Cleanup(srv.Close)
	return srv
}

// ── Tests ────────────────────────────────────────────────────────────────

func TestNew_invalidBaseURL(t *testing.T) {
	for _, base := range []string{"", "localhost", "://x"} {
		_, err := client.New(base)
		assert.Error(t, err, base)
	}
	_, err := client.New("http://localhost:8080", client.WithCacheTTL(0))
	assert.Error(t, err)
	_, err = client.New("http://localhost:8080", client.WithHTTPClient(nil))
	assert.Error(t, err)
}

func TestAnalyze(t *testing.T) {
	srv := newServer(t, oracle.StaticOracle{Outcome: oracle.Succeeded(oracle.Verdict{
		IsPhishing: oracle.Bool(true),
		AIVerdict:  oracle.String("Lookalike domain."),
	})})
	c := client.MustNew(srv.URL, client.WithHTTPClient(srv.Client()))

	a, err := c.Analyze(context.Background(), "https://paypa1-login.com")
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "oracle", a.Source)
	assert.True(t, a.Result.IsPhishing)
	assert.Equal(t, 0.85, a.Result.Confidence)
	assert.Equal(t, "Lookalike domain.", a.Result.AIVerdict)
	assert.Equal(t, "https://paypa1-login.com", a.Result.Features.URL)
	require.NotNil(t, a.Heuristic)
	assert.Equal(t, "none", a.Heuristic.Severity)
}

func TestAnalyze_blankIsAPIError(t *testing.T) {
	srv := newServer(t, nil)
	c := client.MustNew(srv.URL)

	_, err := c.Analyze(context.Background(), "   ")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "url is required", apiErr.Message)
}

func TestAnalyze_cache(t *testing.T) {
	var calls int32
	srv := newServer(t, oracle.FuncOracle(func(context.Context, urlfeatures.URLFeatures, int) oracle.Outcome {
		atomic.AddInt32(&calls, 1)
		return oracle.Failed(oracle.ErrTransport)
	}))
	c := client.MustNew(srv.URL, client.WithCacheTTL(time.Minute))

	first, err := c.Analyze(context.Background(), "http://1.2.3.4")
	require.NoError(t, err)
	second, err := c.Analyze(context.Background(), "http://1.2.3.4")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, first.ID, second.ID)
}

func TestAnalyzeBatch(t *testing.T) {
	srv := newServer(t, nil)
	c := client.MustNew(srv.URL)

	urls := []string{"https://example.com", "http://10.0.0.1", "user@evil.tk"}
	got, err := c.AnalyzeBatch(context.Background(), urls)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, u := range urls {
		assert.Equal(t, u, got[i].Result.Features.URL)
		assert.Equal(t, "fallback", got[i].Source)
	}
	assert.Equal(t, []int{0, 50, 45}, []int{got[0].Result.RiskScore, got[1].Result.RiskScore, got[2].Result.RiskScore})
}

func TestFeatures(t *testing.T) {
	srv := newServer(t, nil)
	c := client.MustNew(srv.URL)

	f, err := c.Features(context.Background(), "http://a.b.c.d.example.com/?q=1&r=2")
	require.NoError(t, err)
	assert.Equal(t, "http://a.b.c.d.example.com/?q=1&r=2", f.Features.URL, "query characters must survive escaping")
	assert.Equal(t, 5, f.Features.DotCount)
	require.NotNil(t, f.Heuristic)
	assert.Equal(t, 35, f.Heuristic.Score)
	assert.NotEmpty(t, f.Heuristic.Findings)
}

func TestRecentVerdictsAndVerify(t *testing.T) {
	srv := newServer(t, nil)
	c := client.MustNew(srv.URL)

	for _, u := range []string{"https://one.example", "https://two.example"} {
		_, err := c.Analyze(context.Background(), u)
		require.NoError(t, err)
	}

	entries, err := c.RecentVerdicts(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "https://two.example", entries[0].URL)
	assert.Equal(t, entries[1].Hash, entries[0].PrevHash)

	valid, reason, err := c.VerifyVerdicts(context.Background())
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Empty(t, reason)
}

func TestIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := client.MustNew(srv.URL).Features(context.Background(), "x")
	assert.True(t, client.IsNotFound(err))
	assert.Contains(t, err.Error(), "gone")
}
