package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/jmerrifield20/phishlens/internal/oracle"
	"github.com/jmerrifield20/phishlens/pkg/urlfeatures"
	"github.com/stretchr/testify/assert"
)

func TestMerge_emptyVerdictUsesDefaults(t *testing.T) {
	f := urlfeatures.Extract("paypal-secure-login.tk")

	r := Merge(f, 20, oracle.Verdict{})
	assert.False(t, r.IsPhishing)
	assert.Equal(t, DefaultConfidence, r.Confidence)
	assert.Equal(t, 20, r.RiskScore)
	assert.Equal(t, DefaultVerdict, r.AIVerdict)
	assert.Equal(t, f, r.Features)

	r = Merge(f, 51, oracle.Verdict{})
	assert.True(t, r.IsPhishing)

	r = Merge(f, 50, oracle.Verdict{})
	assert.False(t, r.IsPhishing, "threshold is strictly greater than 50")
}

func TestMerge_fullOverride(t *testing.T) {
	f := urlfeatures.Extract("http://192.168.0.1/login")
	v := oracle.Verdict{
		IsPhishing: oracle.Bool(false),
		Confidence: oracle.Float(0.42),
		RiskScore:  oracle.Float(12.6),
		AIVerdict:  oracle.String("Internal router admin page."),
	}

	r := Merge(f, 80, v)
	assert.False(t, r.IsPhishing)
	assert.Equal(t, 0.42, r.Confidence)
	assert.Equal(t, 13, r.RiskScore)
	assert.Equal(t, "Internal router admin page.", r.AIVerdict)
	assert.Equal(t, f, r.Features)
}

func TestMerge_perFieldOverride(t *testing.T) {
	f := urlfeatures.Extract("http://login.example.com")

	r := Merge(f, 70, oracle.Verdict{AIVerdict: oracle.String("Looks fine.")})
	assert.True(t, r.IsPhishing, "heuristic default still applies")
	assert.Equal(t, DefaultConfidence, r.Confidence)
	assert.Equal(t, 70, r.RiskScore)
	assert.Equal(t, "Looks fine.", r.AIVerdict)

	r = Merge(f, 70, oracle.Verdict{IsPhishing: oracle.Bool(false)})
	assert.False(t, r.IsPhishing)
	assert.Equal(t, 70, r.RiskScore)
}

func TestMerge_oracleScoreNotClamped(t *testing.T) {
	r := Merge(urlfeatures.Extract("x"), 20, oracle.Verdict{RiskScore: oracle.Float(140), Confidence: oracle.Float(3)})
	assert.Equal(t, 140, r.RiskScore)
	assert.Equal(t, 3.0, r.Confidence)
}

func TestMerge_oracleScoreSaturatesAtIntRange(t *testing.T) {
	f := urlfeatures.Extract("x")
	cases := []struct {
		score float64
		want  int
	}{
		{1e300, math.MaxInt},
		{-1e300, math.MinInt},
		{math.Inf(1), math.MaxInt},
		{math.NaN(), 0},
		{-3.5, -4},
	}
	for _, tc := range cases {
		r := Merge(f, 20, oracle.Verdict{RiskScore: oracle.Float(tc.score)})
		assert.Equal(t, tc.want, r.RiskScore, "score %v", tc.score)
	}
}

func TestFallback(t *testing.T) {
	f := urlfeatures.Extract("x")
	r := Fallback(f, 60)
	assert.True(t, r.IsPhishing)
	assert.Equal(t, FallbackConfidence, r.Confidence)
	assert.Equal(t, 60, r.RiskScore)
	assert.Equal(t, FallbackVerdict, r.AIVerdict)
	assert.NotEqual(t, DefaultConfidence, r.Confidence)
}

func TestResolve(t *testing.T) {
	f := urlfeatures.Extract("x")

	r, src := Resolve(f, 40, oracle.Failed(errors.New("dial tcp: refused")))
	assert.Equal(t, SourceFallback, src)
	assert.Equal(t, Fallback(f, 40), r)

	r, src = Resolve(f, 40, oracle.Succeeded(oracle.Verdict{}))
	assert.Equal(t, SourceOracle, src)
	assert.Equal(t, Merge(f, 40, oracle.Verdict{}), r)
}
