package analysis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmerrifield20/phishlens/internal/oracle"
	"github.com/jmerrifield20/phishlens/internal/threat"
	"github.com/jmerrifield20/phishlens/pkg/urlfeatures"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultOracleTimeout bounds a single oracle call.
const DefaultOracleTimeout = 15 * time.Second

// Assessment is a completed analysis of one URL.
type Assessment struct {
	ID         uuid.UUID      `json:"analysis_id"`
	Result     Result         `json:"result"`
	Heuristic  *threat.Report `json:"heuristic"`
	Source     Source         `json:"source"`
	Cached     bool           `json:"cached,omitempty"`
	OracleErr  string         `json:"oracle_error,omitempty"`
	Duration   time.Duration  `json:"duration_ns"`
	AnalyzedAt time.Time      `json:"analyzed_at"`
}

// Recorder persists completed assessments. Failures are logged by the
// Analyzer and never change the verdict.
type Recorder interface {
	RecordAssessment(ctx context.Context, a *Assessment) error
}

// Recorders fans each assessment out to every recorder in order.
type Recorders []Recorder

// RecordAssessment implements Recorder. Every recorder runs; their errors
// are joined.
func (rs Recorders) RecordAssessment(ctx context.Context, a *Assessment) error {
	var errs []error
	for _, r := range rs {
		if err := r.RecordAssessment(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Observation is what the Analyzer reports to metrics after each run.
type Observation struct {
	Source       Source
	Cached       bool
	IsPhishing   bool
	Heuristic    int
	OracleReason string
	Duration     time.Duration
}

// MetricsFunc is an optional callback for recording analysis outcomes.
type MetricsFunc func(Observation)

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithScorer replaces the default rule-based scorer.
func WithScorer(s threat.Scorer) Option {
	return func(a *Analyzer) { a.scorer = s }
}

// WithOracleTimeout sets the per-call oracle deadline. Zero keeps the default.
func WithOracleTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.oracleTimeout = d
		}
	}
}

// WithCacheTTL enables caching of oracle-backed assessments for ttl.
// Fallback results are never cached so the oracle is retried next time.
func WithCacheTTL(ttl time.Duration) Option {
	return func(a *Analyzer) {
		if ttl > 0 {
			a.cache = newResultCache(ttl)
		}
	}
}

// WithRecorder attaches a Recorder that receives every fresh assessment.
func WithRecorder(r Recorder) Option {
	return func(a *Analyzer) { a.recorder = r }
}

// WithMetrics attaches a metrics callback.
func WithMetrics(fn MetricsFunc) Option {
	return func(a *Analyzer) { a.onMetrics = fn }
}

// Analyzer runs the full pipeline for one URL at a time. It holds no
// per-request state and is safe for concurrent use.
type Analyzer struct {
	oracle        oracle.Oracle
	scorer        threat.Scorer
	oracleTimeout time.Duration
	cache         *resultCache
	recorder      Recorder
	onMetrics     MetricsFunc
	logger        *zap.Logger
	now           func() time.Time
}

// New creates an Analyzer that consults o. A nil oracle behaves like
// oracle.UnavailableOracle.
func New(o oracle.Oracle, logger *zap.Logger, opts ...Option) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if o == nil {
		o = oracle.NewUnavailableOracle(logger)
	}
	a := &Analyzer{
		oracle:        o,
		scorer:        threat.NewRuleBasedScorer(),
		oracleTimeout: DefaultOracleTimeout,
		logger:        logger,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Inspect extracts features and scores them without consulting the oracle.
func (a *Analyzer) Inspect(ctx context.Context, raw string) (urlfeatures.URLFeatures, *threat.Report) {
	f := urlfeatures.Extract(raw)
	return f, a.score(ctx, f)
}

// Analyze runs extraction, scoring and one oracle call for raw. It does not
// fail for any input string; the only error is the caller's own ctx error
// when the request was abandoned before it finished.
func (a *Analyzer) Analyze(ctx context.Context, raw string) (*Assessment, error) {
	start := a.now()

	if a.cache != nil {
		if cached, ok := a.cache.get(raw); ok {
			cached.Cached = true
			a.observe(&cached, "none", a.now().Sub(start))
			return &cached, nil
		}
	}

	f, report := a.Inspect(ctx, raw)
	h := report.Score

	octx, cancel := context.WithTimeout(ctx, a.oracleTimeout)
	outcome := a.oracle.Assess(octx, f, h)
	cancel()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, source := Resolve(f, h, outcome)
	assessment := &Assessment{
		ID:         uuid.New(),
		Result:     result,
		Heuristic:  report,
		Source:     source,
		AnalyzedAt: start.UTC(),
	}
	if !outcome.OK() {
		assessment.OracleErr = outcome.Err.Error()
		a.logger.Warn("oracle analysis failed, falling back to heuristic model",
			zap.String("url", raw),
			zap.Int("heuristic_score", h),
			zap.String("reason", oracle.Reason(outcome.Err)),
			zap.Error(outcome.Err),
		)
	}
	assessment.Duration = a.now().Sub(start)

	if a.cache != nil && source == SourceOracle {
		a.cache.set(raw, *assessment)
	}

	if a.recorder != nil {
		if err := a.recorder.RecordAssessment(ctx, assessment); err != nil {
			a.logger.Warn("record assessment", zap.String("analysis_id", assessment.ID.String()), zap.Error(err))
		}
	}

	a.observe(assessment, oracle.Reason(outcome.Err), assessment.Duration)
	a.logger.Info("url analyzed",
		zap.String("analysis_id", assessment.ID.String()),
		zap.String("source", string(source)),
		zap.Bool("phishing", result.IsPhishing),
		zap.Int("risk_score", result.RiskScore),
		zap.Int("heuristic_score", h),
	)
	return assessment, nil
}

// AnalyzeBatch analyses every URL independently with at most concurrency
// oracle calls in flight. Results keep the input order.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, urls []string, concurrency int) ([]*Assessment, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	out := make([]*Assessment, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, raw := range urls {
		g.Go(func() error {
			res, err := a.Analyze(gctx, raw)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Invalidate drops any cached assessment for raw.
func (a *Analyzer) Invalidate(raw string) {
	if a.cache != nil {
		a.cache.invalidate(raw)
	}
}

// CacheStats returns the number of cached assessments.
func (a *Analyzer) CacheStats() int {
	if a.cache == nil {
		return 0
	}
	return a.cache.len()
}

// StartCacheEviction starts a background goroutine that periodically evicts
// expired cache entries. Cancel ctx to stop it.
func (a *Analyzer) StartCacheEviction(ctx context.Context, interval time.Duration) {
	if a.cache == nil {
		return
	}
	if interval == 0 {
		interval = time.Minute
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := a.cache.evict(); n > 0 {
					a.logger.Debug("cache eviction", zap.Int("evicted", n))
				}
			}
		}
	}()
}

func (a *Analyzer) score(ctx context.Context, f urlfeatures.URLFeatures) *threat.Report {
	report, err := a.scorer.Score(ctx, f)
	if err != nil || report == nil {
		a.logger.Warn("scorer failed, using default rule table", zap.Error(err))
		return threat.Evaluate(f)
	}
	return report
}

func (a *Analyzer) observe(as *Assessment, reason string, d time.Duration) {
	if a.onMetrics == nil {
		return
	}
	a.onMetrics(Observation{
		Source:       as.Source,
		Cached:       as.Cached,
		IsPhishing:   as.Result.IsPhishing,
		Heuristic:    as.Heuristic.Score,
		OracleReason: reason,
		Duration:     d,
	})
}

// IsBlank reports whether raw is empty after trimming whitespace. Blank
// submissions are rejected by the outer surfaces; non-blank input is
// analysed exactly as given, surrounding whitespace included.
func IsBlank(raw string) bool {
	return strings.TrimSpace(raw) == ""
}
