//go:build integration

package verdictlog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmerrifield20/phishlens/internal/verdictlog"
	"github.com/jmerrifield20/phishlens/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// newPostgresLog starts a throwaway Postgres, applies the embedded
// migrations and returns a log backed by it.
func newPostgresLog(t *testing.T) (*verdictlog.PostgresLog, *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	pg, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("phishlens"),
		postgres.WithUsername("phishlens"),
		postgres.WithPassword("phishlens"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pg.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, migrations.Up(dsn))
	require.NoError(t, migrations.Up(dsn), "second run is a no-op")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return verdictlog.NewPostgresLog(pool, zap.NewNop()), pool
}

func TestPostgresLog_appendAndVerify(t *testing.T) {
	l, _ := newPostgresLog(t)

	n, err := l.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "migration seeds the genesis row")
	require.NoError(t, l.Verify(ctx))

	entries := appendN(t, l, 3)
	assert.Equal(t, verdictlog.GenesisHash, entries[0].PrevHash)
	assert.Equal(t, entries[0].Hash, entries[1].PrevHash)

	require.NoError(t, l.Verify(ctx), "timestamps survive the round trip")

	root, err := l.Root(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries[2].Hash, root)

	got, err := l.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, entries[1].Hash, got.Hash)

	recent, err := l.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 3, recent[0].Index)
	assert.Equal(t, 2, recent[1].Index)

	_, err = l.Get(ctx, 99)
	assert.True(t, errors.Is(err, verdictlog.ErrNotFound))
}

func TestPostgresLog_detectsTampering(t *testing.T) {
	l, pool := newPostgresLog(t)
	appendN(t, l, 2)

	_, err := pool.Exec(ctx, `UPDATE verdict_log SET risk_score = 99 WHERE idx = 1`)
	require.NoError(t, err)

	assert.ErrorContains(t, l.Verify(ctx), "entry 1 has invalid hash")
}

func TestPostgresLog_concurrentAppends(t *testing.T) {
	l, _ := newPostgresLog(t)

	const workers = 8
	errc := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			_, err := l.Append(ctx, verdictlog.Record{
				AnalysisID: "concurrent",
				URL:        "http://example.com",
				Verdict:    verdictlog.VerdictPhishing,
				RiskScore:  i,
				Payload:    i,
			})
			errc <- err
		}(i)
	}
	for i := 0; i < workers; i++ {
		require.NoError(t, <-errc)
	}

	n, err := l.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, workers+1, n)
	assert.NoError(t, l.Verify(ctx))
}
