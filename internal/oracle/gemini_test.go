package oracle_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jmerrifield20/phishlens/internal/oracle"
	"github.com/jmerrifield20/phishlens/pkg/urlfeatures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// candidateBody wraps text the way generateContent returns it.
func candidateBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"role":  "model",
				"parts": []map[string]any{{"text": text}},
			},
		}},
	})
	return string(b)
}

func newTestOracle(t *testing.T, handler http.HandlerFunc) *oracle.GeminiOracle {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	o, err := oracle.NewGeminiOracle(oracle.GeminiConfig{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	}, zap.NewNop())
	require.NoError(t, err)
	return o
}

func TestNewGeminiOracle_requiresKey(t *testing.T) {
	_, err := oracle.NewGeminiOracle(oracle.GeminiConfig{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, oracle.ErrUnavailable)
}

func TestGeminiOracle_fullVerdict(t *testing.T) {
	var gotPath, gotKey string
	var gotReq map[string]any

	o := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)
		io.WriteString(w, candidateBody(`  {"isPhishing":true,"confidence":0.93,"riskScore":88,"aiVerdict":"Credential harvesting page."}  `))
	})

	f := urlfeatures.Extract("http://192.168.0.1/login")
	out := o.Assess(context.Background(), f, 50)
	require.True(t, out.OK(), "unexpected error: %v", out.Err)

	assert.Equal(t, "/models/"+oracle.DefaultGeminiModel+":generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)

	genCfg := gotReq["generationConfig"].(map[string]any)
	assert.Equal(t, "application/json", genCfg["responseMimeType"])
	schema := genCfg["responseSchema"].(map[string]any)
	assert.ElementsMatch(t, []any{"isPhishing", "confidence", "riskScore", "aiVerdict"}, schema["required"])

	contents := gotReq["contents"].([]any)
	prompt := contents[0].(map[string]any)["parts"].([]any)[0].(map[string]any)["text"].(string)
	assert.Contains(t, prompt, "URL: http://192.168.0.1/login")
	assert.Contains(t, prompt, "Is IP: true")
	assert.Contains(t, prompt, "Basic Heuristic Risk Score: 50/100")

	v := out.Verdict
	require.NotNil(t, v.IsPhishing)
	assert.True(t, *v.IsPhishing)
	assert.InDelta(t, 0.93, *v.Confidence, 1e-9)
	assert.InDelta(t, 88, *v.RiskScore, 1e-9)
	assert.Equal(t, "Credential harvesting page.", *v.AIVerdict)
}

func TestGeminiOracle_partialVerdict(t *testing.T) {
	o := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, candidateBody(`{"riskScore":12,"aiVerdict":null}`))
	})

	out := o.Assess(context.Background(), urlfeatures.Extract("https://example.com"), 0)
	require.True(t, out.OK())
	assert.Nil(t, out.Verdict.IsPhishing)
	assert.Nil(t, out.Verdict.Confidence)
	assert.Nil(t, out.Verdict.AIVerdict)
	require.NotNil(t, out.Verdict.RiskScore)
	assert.InDelta(t, 12, *out.Verdict.RiskScore, 1e-9)
}

func TestGeminiOracle_failures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		want    error
		reason  string
	}{
		{
			name: "http 500",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			want:   oracle.ErrTransport,
			reason: "transport",
		},
		{
			name: "api error object",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"error":{"code":400,"message":"bad key","status":"INVALID_ARGUMENT"}}`)
			},
			want:   oracle.ErrTransport,
			reason: "transport",
		},
		{
			name: "no candidates",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"candidates":[]}`)
			},
			want:   oracle.ErrEmptyResponse,
			reason: "empty",
		},
		{
			name: "blank text",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, candidateBody("   "))
			},
			want:   oracle.ErrEmptyResponse,
			reason: "empty",
		},
		{
			name: "body is not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, "<html>")
			},
			want:   oracle.ErrMalformedResponse,
			reason: "malformed",
		},
		{
			name: "text is not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, candidateBody("This URL looks dangerous."))
			},
			want:   oracle.ErrMalformedResponse,
			reason: "malformed",
		},
		{
			name: "wrong field type",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, candidateBody(`{"isPhishing":"yes"}`))
			},
			want:   oracle.ErrMalformedResponse,
			reason: "malformed",
		},
		{
			name: "json array",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, candidateBody(`[true]`))
			},
			want:   oracle.ErrMalformedResponse,
			reason: "malformed",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := newTestOracle(t, tc.handler)
			out := o.Assess(context.Background(), urlfeatures.Extract("paypal-secure-login.tk"), 20)
			require.False(t, out.OK())
			assert.ErrorIs(t, out.Err, tc.want)
			assert.Equal(t, tc.reason, oracle.Reason(out.Err))
		})
	}
}

func TestGeminiOracle_deadline(t *testing.T) {
	release := make(chan struct{})
	o := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out := o.Assess(ctx, urlfeatures.Extract("http://slow.example"), 20)
	require.False(t, out.OK())
	assert.ErrorIs(t, out.Err, oracle.ErrTransport)
	assert.True(t, errors.Is(out.Err, context.DeadlineExceeded))
	assert.Equal(t, "timeout", oracle.Reason(out.Err))
}

func TestDecodeVerdict(t *testing.T) {
	v, err := oracle.DecodeVerdict("\n{\"isPhishing\":false}\n")
	require.NoError(t, err)
	require.NotNil(t, v.IsPhishing)
	assert.False(t, *v.IsPhishing)

	_, err = oracle.DecodeVerdict("")
	assert.ErrorIs(t, err, oracle.ErrEmptyResponse)

	_, err = oracle.DecodeVerdict("null")
	assert.ErrorIs(t, err, oracle.ErrMalformedResponse)
}

func TestBuildPrompt_listsEveryFeature(t *testing.T) {
	p := oracle.BuildPrompt(urlfeatures.Extract("user@evil.tk"), 45)
	for _, want := range []string{"URL: user@evil.tk", "Length: 12", "Has @: true", "Is HTTPS: false", "Dots: 1", "Is IP: false", "45/100"} {
		assert.True(t, strings.Contains(p, want), "prompt missing %q", want)
	}
}

func TestUnavailableOracle(t *testing.T) {
	out := oracle.NewUnavailableOracle(nil).Assess(context.Background(), urlfeatures.Extract("x"), 20)
	assert.ErrorIs(t, out.Err, oracle.ErrUnavailable)
	assert.Equal(t, "unavailable", oracle.Reason(out.Err))
}

func TestFailed_nilError(t *testing.T) {
	assert.ErrorIs(t, oracle.Failed(nil).Err, oracle.ErrUnavailable)
}

func TestGeminiOracle_ping(t *testing.T) {
	var gotMethod, gotPath string
	healthy := true
	o := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		if !healthy {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = io.WriteString(w, `{"name":"models/`+oracle.DefaultGeminiModel+`"}`)
	})

	require.NoError(t, o.Ping(context.Background()))
	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, "/models/"+oracle.DefaultGeminiModel, gotPath)

	healthy = false
	assert.ErrorIs(t, o.Ping(context.Background()), oracle.ErrTransport)
	assert.ErrorIs(t, oracle.NewUnavailableOracle(nil).Ping(context.Background()), oracle.ErrUnavailable)
}
