package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jmerrifield20/phishlens/pkg/urlfeatures"
	"go.uber.org/zap"
)

const (
	// DefaultGeminiBaseURL is the public Generative Language API root.
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultGeminiModel is the model used when none is configured.
	DefaultGeminiModel = "gemini-3-flash-preview"

	maxResponseBytes = 1 << 20
)

// Gemini API request/response structures.
type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature      float32        `json:"temperature"`
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// verdictSchema asks the model to always emit all four fields. The merge
// still treats each one as optional.
var verdictSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"isPhishing": map[string]any{"type": "BOOLEAN"},
		"confidence": map[string]any{"type": "NUMBER"},
		"riskScore":  map[string]any{"type": "NUMBER"},
		"aiVerdict":  map[string]any{"type": "STRING"},
	},
	"required": []string{"isPhishing", "confidence", "riskScore", "aiVerdict"},
}

// GeminiConfig configures a GeminiOracle.
type GeminiConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	HTTPClient  *http.Client
}

// GeminiOracle asks a Gemini model for a structured phishing verdict.
type GeminiOracle struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float32
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewGeminiOracle creates a GeminiOracle. It returns an error when no API
// key is supplied; callers usually fall back to UnavailableOracle.
func NewGeminiOracle(cfg GeminiConfig, logger *zap.Logger) (*GeminiOracle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key not set: %w", ErrUnavailable)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiOracle{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		temperature: cfg.Temperature,
		httpClient:  cfg.HTTPClient,
		logger:      logger,
	}, nil
}

// Model returns the configured model name.
func (g *GeminiOracle) Model() string { return g.model }

// Assess implements Oracle.
func (g *GeminiOracle) Assess(ctx context.Context, f urlfeatures.URLFeatures, heuristic int) Outcome {
	text, err := g.generate(ctx, BuildPrompt(f, heuristic))
	if err != nil {
		return Failed(err)
	}
	v, err := DecodeVerdict(text)
	if err != nil {
		return Failed(err)
	}
	g.logger.Debug("oracle verdict received",
		zap.String("model", g.model),
		zap.Int("heuristic", heuristic),
	)
	return Succeeded(v)
}

// Ping checks that the configured model is reachable with the current key.
// It issues a metadata GET and never consumes generation quota.
func (g *GeminiOracle) Ping(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/models/%s", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %v: %w", err, ErrTransport)
	}
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping failed: %w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ping: status %d: %w", resp.StatusCode, ErrTransport)
	}
	return nil
}

// generate performs one generateContent call and returns the text of the
// first candidate.
func (g *GeminiOracle) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: systemInstruction}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      g.temperature,
			ResponseMimeType: "application/json",
			ResponseSchema:   verdictSchema,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %v: %w", err, ErrTransport)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w: %w", ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s: %w", resp.StatusCode, truncate(body, 256), ErrTransport)
	}

	var response geminiResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("unmarshal response: %v: %w", err, ErrMalformedResponse)
	}
	if response.Error != nil {
		return "", fmt.Errorf("gemini API error: %s: %w", response.Error.Message, ErrTransport)
	}
	if len(response.Candidates) == 0 {
		return "", fmt.Errorf("no candidates: %w", ErrEmptyResponse)
	}

	var text strings.Builder
	for _, p := range response.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("blank candidate text: %w", ErrEmptyResponse)
	}
	return text.String(), nil
}

// DecodeVerdict parses the model's JSON text into a Verdict. The text must
// be a JSON object; fields with the wrong type make the whole response
// malformed.
func DecodeVerdict(text string) (Verdict, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Verdict{}, ErrEmptyResponse
	}
	if !strings.HasPrefix(trimmed, "{") {
		return Verdict{}, fmt.Errorf("verdict is not a JSON object: %w", ErrMalformedResponse)
	}
	var v Verdict
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return Verdict{}, fmt.Errorf("decode verdict: %v: %w", err, ErrMalformedResponse)
	}
	return v, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
