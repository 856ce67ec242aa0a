package oracle

import (
	"context"

	"github.com/jmerrifield20/phishlens/pkg/urlfeatures"
	"go.uber.org/zap"
)

// UnavailableOracle is used when no model is configured. Every call fails
// with ErrUnavailable so the caller takes its fallback path.
type UnavailableOracle struct {
	logger *zap.Logger
}

// NewUnavailableOracle creates an UnavailableOracle.
func NewUnavailableOracle(logger *zap.Logger) *UnavailableOracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnavailableOracle{logger: logger}
}

// Assess implements Oracle.
func (u *UnavailableOracle) Assess(_ context.Context, f urlfeatures.URLFeatures, _ int) Outcome {
	u.logger.Debug("oracle not configured; skipping model review", zap.String("url", f.URL))
	return Failed(ErrUnavailable)
}

// Ping always reports ErrUnavailable.
func (u *UnavailableOracle) Ping(context.Context) error { return ErrUnavailable }

// StaticOracle returns the same Outcome for every call.
type StaticOracle struct {
	Outcome Outcome
}

// Assess implements Oracle.
func (s StaticOracle) Assess(ctx context.Context, _ urlfeatures.URLFeatures, _ int) Outcome {
	if err := ctx.Err(); err != nil {
		return Failed(err)
	}
	return s.Outcome
}

// FuncOracle adapts a plain function to the Oracle interface.
type FuncOracle func(ctx context.Context, f urlfeatures.URLFeatures, heuristic int) Outcome

// Assess implements Oracle.
func (fn FuncOracle) Assess(ctx context.Context, f urlfeatures.URLFeatures, heuristic int) Outcome {
	return fn(ctx, f, heuristic)
}
