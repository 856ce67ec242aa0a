package threat

import (
	"context"
	"strconv"

	"github.com/jmerrifield20/phishlens/pkg/urlfeatures"
)

// rule is one row of the weight table. Rules are independent: every
// matching rule contributes its weight and none short-circuits another.
type rule struct {
	name        string
	description string
	weight      int
	match       func(f urlfeatures.URLFeatures) bool
}

// rules is the fixed weight table. The two length rules stack, so a URL
// longer than 75 characters collects both.
var rules = []rule{
	{
		name:        "length_over_54",
		description: "URL is longer than 54 characters",
		weight:      20,
		match:       func(f urlfeatures.URLFeatures) bool { return f.Length > 54 },
	},
	{
		name:        "length_over_75",
		description: "URL is longer than 75 characters",
		weight:      15,
		match:       func(f urlfeatures.URLFeatures) bool { return f.Length > 75 },
	},
	{
		name:        "at_symbol",
		description: "URL contains an @ symbol",
		weight:      25,
		match:       func(f urlfeatures.URLFeatures) bool { return f.HasAtSymbol },
	},
	{
		name:        "missing_https",
		description: "URL does not start with https://",
		weight:      20,
		match:       func(f urlfeatures.URLFeatures) bool { return !f.HasHTTPS },
	},
	{
		name:        "excess_dots",
		description: "URL contains more than 3 dots",
		weight:      15,
		match:       func(f urlfeatures.URLFeatures) bool { return f.DotCount > 3 },
	},
	{
		name:        "ip_host",
		description: "Host is a raw IPv4 address",
		weight:      30,
		match:       func(f urlfeatures.URLFeatures) bool { return f.IsIPAddress },
	},
}

// HeuristicScore sums the weights of every matching rule and clamps the
// result to MaxScore.
func HeuristicScore(f urlfeatures.URLFeatures) int {
	total := 0
	for _, r := range rules {
		if r.match(f) {
			total += r.weight
		}
	}
	if total > MaxScore {
		total = MaxScore
	}
	return total
}

// RuleBasedScorer is the default Scorer implementation. It evaluates the
// weight table and explains which rules fired.
type RuleBasedScorer struct{}

// NewRuleBasedScorer returns a RuleBasedScorer loaded with the default rule set.
func NewRuleBasedScorer() *RuleBasedScorer {
	return &RuleBasedScorer{}
}

// Score implements Scorer. It never returns an error.
func (s *RuleBasedScorer) Score(_ context.Context, f urlfeatures.URLFeatures) (*Report, error) {
	return Evaluate(f), nil
}

// Evaluate builds the full Report for f. Report.Score always equals
// HeuristicScore(f).
func Evaluate(f urlfeatures.URLFeatures) *Report {
	findings := []Finding{}
	for _, r := range rules {
		if r.match(f) {
			findings = append(findings, Finding{
				Rule:        r.name,
				Description: r.description,
				Weight:      r.weight,
			})
		}
	}

	score := HeuristicScore(f)
	return &Report{
		Score:    score,
		Severity: severityLabel(score),
		Findings: findings,
		Signals:  signals(f),
	}
}

// ── Signals ──────────────────────────────────────────────────────────────────

func signals(f urlfeatures.URLFeatures) []Signal {
	return []Signal{
		{
			Name:   "length",
			Value:  strconv.Itoa(f.Length) + " chars",
			Status: pick(f.Length > 54, StatusWarning),
		},
		{
			Name:   "at_symbol",
			Value:  choose(f.HasAtSymbol, "present", "none"),
			Status: pick(f.HasAtSymbol, StatusDanger),
		},
		{
			Name:   "protocol",
			Value:  choose(f.HasHTTPS, "HTTPS", "HTTP"),
			Status: pick(!f.HasHTTPS, StatusDanger),
		},
		{
			Name:   "host",
			Value:  choose(f.IsIPAddress, "IP address", "domain"),
			Status: pick(f.IsIPAddress, StatusDanger),
		},
		{
			Name:   "dots",
			Value:  strconv.Itoa(f.DotCount),
			Status: pick(f.DotCount > 3, StatusWarning),
		},
	}
}

func pick(flagged bool, status string) string {
	if flagged {
		return status
	}
	return StatusOK
}

func choose(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
