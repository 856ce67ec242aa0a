// Package oracle is the boundary to the external generative-model service
// that reviews a URL's lexical features and may override the heuristic
// verdict.
//
// An Oracle never panics and never returns a bare error: every call yields
// an Outcome that either carries a partial Verdict or the reason the oracle
// was unavailable. Callers decide how to recover.
package oracle

import (
	"context"
	"errors"

	"github.com/jmerrifield20/phishlens/pkg/urlfeatures"
)

// Failure classes. Every Outcome.Err wraps exactly one of these.
var (
	// ErrUnavailable means no oracle is configured.
	ErrUnavailable = errors.New("oracle unavailable")

	// ErrTransport covers network errors, timeouts and non-2xx responses.
	ErrTransport = errors.New("oracle transport error")

	// ErrEmptyResponse means the oracle answered without any content.
	ErrEmptyResponse = errors.New("oracle returned empty content")

	// ErrMalformedResponse means the content did not match the verdict schema.
	ErrMalformedResponse = errors.New("oracle returned malformed content")
)

// Verdict is the oracle's partial answer. A nil field means the oracle did
// not supply it and the caller's default applies.
type Verdict struct {
	IsPhishing *bool    `json:"isPhishing,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	RiskScore  *float64 `json:"riskScore,omitempty"`
	AIVerdict  *string  `json:"aiVerdict,omitempty"`
}

// Outcome is the result of one oracle call: a Verdict when Err is nil,
// otherwise the failure reason.
type Outcome struct {
	Verdict Verdict
	Err     error
}

// OK reports whether the oracle produced a verdict.
func (o Outcome) OK() bool { return o.Err == nil }

// Succeeded wraps a verdict in a successful Outcome.
func Succeeded(v Verdict) Outcome { return Outcome{Verdict: v} }

// Failed wraps err in a failed Outcome. A nil err is treated as ErrUnavailable.
func Failed(err error) Outcome {
	if err == nil {
		err = ErrUnavailable
	}
	return Outcome{Err: err}
}

// Oracle reviews URL features together with the heuristic score.
// Implementations must honour ctx cancellation and report expiry as a
// transport failure.
type Oracle interface {
	Assess(ctx context.Context, f urlfeatures.URLFeatures, heuristic int) Outcome
}

// Reason returns a short metrics-friendly label for an Outcome's failure.
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrEmptyResponse):
		return "empty"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "other"
	}
}

// Bool returns a pointer to v, for building Verdict literals.
func Bool(v bool) *bool { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
