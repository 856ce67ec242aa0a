package main

import (
	"context"

	"github.com/jmerrifield20/phishlens/internal/analysis"
	"github.com/jmerrifield20/phishlens/internal/config"
	"github.com/jmerrifield20/phishlens/internal/oracle"
	"github.com/jmerrifield20/phishlens/internal/threat"
	"github.com/jmerrifield20/phishlens/pkg/client"
	"go.uber.org/zap"
)

// backend is what the commands analyse URLs with: either an in-process
// Analyzer or a remote phishlens-server.
type backend interface {
	Analyze(ctx context.Context, rawURL string) (*client.Assessment, error)
	AnalyzeBatch(ctx context.Context, rawURLs []string) ([]*client.Assessment, error)
	Features(ctx context.Context, rawURL string) (*client.FeaturesResult, error)
}

var (
	_ backend = (*client.Client)(nil)
	_ backend = (*localBackend)(nil)
)

func newRemoteBackend(baseURL string) (*client.Client, error) {
	return client.New(baseURL)
}

type localBackend struct {
	analyzer    *analysis.Analyzer
	concurrency int
}

func newLocalBackend(cfg *config.Config, offline bool, logger *zap.Logger) *localBackend {
	var o oracle.Oracle
	if offline {
		o = oracle.NewUnavailableOracle(logger)
	} else {
		o = cfg.Oracle.NewOracle(logger)
	}
	return &localBackend{
		analyzer:    analysis.New(o, logger, analysis.WithOracleTimeout(cfg.Oracle.Timeout)),
		concurrency: cfg.Analysis.BatchConcurrency,
	}
}

func (b *localBackend) Analyze(ctx context.Context, rawURL string) (*client.Assessment, error) {
	a, err := b.analyzer.Analyze(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return toClientAssessment(a), nil
}

func (b *localBackend) AnalyzeBatch(ctx context.Context, rawURLs []string) ([]*client.Assessment, error) {
	res, err := b.analyzer.AnalyzeBatch(ctx, rawURLs, b.concurrency)
	if err != nil {
		return nil, err
	}
	out := make([]*client.Assessment, len(res))
	for i, a := range res {
		out[i] = toClientAssessment(a)
	}
	return out, nil
}

func (b *localBackend) Features(ctx context.Context, rawURL string) (*client.FeaturesResult, error) {
	f, report := b.analyzer.Inspect(ctx, rawURL)
	return &client.FeaturesResult{Features: f, Heuristic: toClientReport(report)}, nil
}

func toClientAssessment(a *analysis.Assessment) *client.Assessment {
	return &client.Assessment{
		ID: a.ID.String(),
		Result: client.Result{
			IsPhishing: a.Result.IsPhishing,
			Confidence: a.Result.Confidence,
			RiskScore:  a.Result.RiskScore,
			AIVerdict:  a.Result.AIVerdict,
			Features:   a.Result.Features,
		},
		Heuristic:  toClientReport(a.Heuristic),
		Source:     string(a.Source),
		Cached:     a.Cached,
		OracleErr:  a.OracleErr,
		Duration:   a.Duration,
		AnalyzedAt: a.AnalyzedAt,
	}
}

func toClientReport(r *threat.Report) *client.HeuristicReport {
	if r == nil {
		return nil
	}
	out := &client.HeuristicReport{Score: r.Score, Severity: r.Severity}
	for _, f := range r.Findings {
		out.Findings = append(out.Findings, client.Finding{Rule: f.Rule, Description: f.Description, Weight: f.Weight})
	}
	for _, s := range r.Signals {
		out.Signals = append(out.Signals, client.Signal{Name: s.Name, Value: s.Value, Status: s.Status})
	}
	return out
}
