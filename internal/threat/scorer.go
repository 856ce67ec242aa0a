// Package threat provides the heuristic URL risk score. It runs a fixed,
// additive rule table over lexical URL features and clamps the total to 100.
package threat

import (
	"context"

	"github.com/jmerrifield20/phishlens/pkg/urlfeatures"
)

// MaxScore is the upper clamp applied to the summed rule weights.
const MaxScore = 100

// Finding is a single rule match returned by the scorer.
type Finding struct {
	Rule        string `json:"rule"`
	Description string `json:"description"`
	Weight      int    `json:"weight"`
}

// Signal status values, matching how a feature is presented to the user.
const (
	StatusOK      = "ok"
	StatusWarning = "warning"
	StatusDanger  = "danger"
)

// Signal is a display-oriented view of one lexical feature.
type Signal struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Status string `json:"status"`
}

// Report is the output of a heuristic analysis run.
type Report struct {
	// Score is the clamped heuristic risk score (0–100).
	Score int `json:"score"`

	// Severity is a human-readable label derived from Score:
	//   0–14   → "none"
	//   15–34  → "low"
	//   35–64  → "medium"
	//   65–84  → "high"
	//   85–100 → "critical"
	Severity string `json:"severity"`

	// Findings lists every rule that triggered.
	Findings []Finding `json:"findings"`

	Signals []Signal `json:"signals"`
}

// Scorer analyses URL features for phishing indicators.
type Scorer interface {
	Score(ctx context.Context, f urlfeatures.URLFeatures) (*Report, error)
}

// severityLabel maps a 0–100 score to a severity string.
func severityLabel(score int) string {
	switch {
	case score >= 85:
		return "critical"
	case score >= 65:
		return "high"
	case score >= 35:
		return "medium"
	case score >= 15:
		return "low"
	default:
		return "none"
	}
}
