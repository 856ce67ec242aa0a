// Package analysis turns a raw URL into a final phishing verdict: lexical
// features, heuristic score, oracle review, and a per-field merge of the
// oracle's answer over heuristic defaults.
package analysis

import (
	"math"

	"github.com/jmerrifield20/phishlens/internal/oracle"
	"github.com/jmerrifield20/phishlens/pkg/urlfeatures"
)

const (
	// PhishingThreshold is the heuristic score above which a URL is
	// considered phishing when the oracle does not say otherwise.
	PhishingThreshold = 50

	// DefaultConfidence applies when the oracle answered but omitted confidence.
	DefaultConfidence = 0.85

	// FallbackConfidence applies when the oracle could not be reached at all.
	FallbackConfidence = 0.7

	DefaultVerdict  = "Analyzed via local heuristic engine."
	FallbackVerdict = "AI analysis unavailable. Falling back to heuristic model."
)

// Source records where the final verdict came from.
type Source string

const (
	SourceOracle   Source = "oracle"
	SourceFallback Source = "fallback"
)

// Result is the merged verdict for one URL.
type Result struct {
	IsPhishing bool                    `json:"isPhishing"`
	Confidence float64                 `json:"confidence"`
	RiskScore  int                     `json:"riskScore"`
	AIVerdict  string                  `json:"aiVerdict"`
	Features   urlfeatures.URLFeatures `json:"features"`
}

// Merge overlays every field the oracle supplied onto the heuristic
// defaults. Features always come from the extractor.
func Merge(f urlfeatures.URLFeatures, heuristic int, v oracle.Verdict) Result {
	r := Result{
		IsPhishing: heuristic > PhishingThreshold,
		Confidence: DefaultConfidence,
		RiskScore:  heuristic,
		AIVerdict:  DefaultVerdict,
		Features:   f,
	}
	if v.IsPhishing != nil {
		r.IsPhishing = *v.IsPhishing
	}
	if v.Confidence != nil {
		r.Confidence = *v.Confidence
	}
	if v.RiskScore != nil {
		r.RiskScore = roundScore(*v.RiskScore)
	}
	if v.AIVerdict != nil {
		r.AIVerdict = *v.AIVerdict
	}
	return r
}

// roundScore rounds an oracle score to the nearest integer. Scores are not
// clamped to 0-100; only values beyond the int range saturate.
func roundScore(s float64) int {
	switch r := math.Round(s); {
	case math.IsNaN(r):
		return 0
	case r >= math.MaxInt:
		return math.MaxInt
	case r <= math.MinInt:
		return math.MinInt
	default:
		return int(r)
	}
}

// Fallback synthesises the verdict used when the oracle call failed.
func Fallback(f urlfeatures.URLFeatures, heuristic int) Result {
	return Result{
		IsPhishing: heuristic > PhishingThreshold,
		Confidence: FallbackConfidence,
		RiskScore:  heuristic,
		AIVerdict:  FallbackVerdict,
		Features:   f,
	}
}

// Resolve picks Merge or Fallback depending on the oracle outcome.
func Resolve(f urlfeatures.URLFeatures, heuristic int, o oracle.Outcome) (Result, Source) {
	if !o.OK() {
		return Fallback(f, heuristic), SourceFallback
	}
	return Merge(f, heuristic, o.Verdict), SourceOracle
}
