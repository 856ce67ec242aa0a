package mcpbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmerrifield20/phishlens/internal/analysis"
	"github.com/jmerrifield20/phishlens/internal/threat"
	"github.com/jmerrifield20/phishlens/pkg/urlfeatures"
)

// ToolDefinition is the MCP tool descriptor sent in tools/list responses.
type ToolDefinition struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	InputSchema  map[string]any `json:"inputSchema"`
	OutputSchema map[string]any `json:"outputSchema,omitempty"`
}

// ToolResult is the outcome of one tool call. Structured is sent as
// structuredContent and Text is its human-readable rendering.
type ToolResult struct {
	Text       string
	Structured any
	IsError    bool
}

func toolError(format string, a ...any) ToolResult {
	return ToolResult{Text: fmt.Sprintf(format, a...), IsError: true}
}

// Analyzer is the subset of *analysis.Analyzer the tools need.
type Analyzer interface {
	Analyze(ctx context.Context, raw string) (*analysis.Assessment, error)
	Inspect(ctx context.Context, raw string) (urlfeatures.URLFeatures, *threat.Report)
}

// AnalyzeOutput is the structured result of analyze_url.
type AnalyzeOutput struct {
	AnalysisID string                  `json:"analysisId"`
	IsPhishing bool                    `json:"isPhishing"`
	Confidence float64                 `json:"confidence"`
	RiskScore  int                     `json:"riskScore"`
	AIVerdict  string                  `json:"aiVerdict"`
	Source     string                  `json:"source"`
	Cached     bool                    `json:"cached"`
	Features   urlfeatures.URLFeatures `json:"features"`
	Heuristic  *threat.Report          `json:"heuristic"`
}

// FeaturesOutput is the structured result of extract_features.
type FeaturesOutput struct {
	Features  urlfeatures.URLFeatures `json:"features"`
	Heuristic *threat.Report          `json:"heuristic"`
}

type toolFunc func(ctx context.Context, raw string) ToolResult

// ToolRegistry maps tool names to their definitions and handlers.
type ToolRegistry struct {
	a     Analyzer
	defs  []ToolDefinition
	funcs map[string]toolFunc
}

var urlInputSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"url": map[string]any{
			"type":        "string",
			"description": "The URL to inspect, exactly as the user received it, e.g. http://paypal.com.verify-account.net/login",
		},
	},
	"required": []string{"url"},
}

var featuresSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"url":         map[string]any{"type": "string"},
		"length":      map[string]any{"type": "integer"},
		"hasAtSymbol": map[string]any{"type": "boolean"},
		"hasHttps":    map[string]any{"type": "boolean"},
		"dotCount":    map[string]any{"type": "integer"},
		"isIPAddress": map[string]any{"type": "boolean"},
	},
}

var heuristicSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"score":    map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
		"severity": map[string]any{"type": "string"},
		"findings": map[string]any{"type": "array"},
		"signals":  map[string]any{"type": "array"},
	},
}

// NewToolRegistry creates a ToolRegistry backed by a.
func NewToolRegistry(a Analyzer) *ToolRegistry {
	r := &ToolRegistry{a: a}
	r.register(ToolDefinition{
		Name: "analyze_url",
		Description: "Assess whether a URL is a phishing link. Extracts lexical features, computes a " +
			"heuristic risk score, and asks the AI model for a verdict, falling back to the heuristic " +
			"if the model is unavailable. Returns isPhishing, confidence, riskScore (0-100), aiVerdict " +
			"and the extracted features.",
		InputSchema: urlInputSchema,
		OutputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"analysisId": map[string]any{"type": "string"},
				"isPhishing": map[string]any{"type": "boolean"},
				"confidence": map[string]any{"type": "number"},
				"riskScore":  map[string]any{"type": "integer"},
				"aiVerdict":  map[string]any{"type": "string"},
				"source":     map[string]any{"type": "string", "enum": []string{"oracle", "fallback"}},
				"cached":     map[string]any{"type": "boolean"},
				"features":   featuresSchema,
				"heuristic":  heuristicSchema,
			},
			"required": []string{"isPhishing", "confidence", "riskScore", "aiVerdict", "source"},
		},
	}, r.analyzeURL)
	r.register(ToolDefinition{
		Name: "extract_features",
		Description: "Extract the lexical features of a URL (length, @ symbol, HTTPS, dot count, IP host) " +
			"and the heuristic risk report with the rules that fired. Does not call the AI model.",
		InputSchema: urlInputSchema,
		OutputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"features":  featuresSchema,
				"heuristic": heuristicSchema,
			},
			"required": []string{"features", "heuristic"},
		},
	}, r.extractFeatures)
	return r
}

func (r *ToolRegistry) register(def ToolDefinition, fn toolFunc) {
	if r.funcs == nil {
		r.funcs = make(map[string]toolFunc)
	}
	r.defs = append(r.defs, def)
	r.funcs[def.Name] = fn
}

// Definitions returns the tool definitions in registration order.
func (r *ToolRegistry) Definitions() []ToolDefinition {
	return r.defs
}

// Call validates the url argument and runs the named tool.
func (r *ToolRegistry) Call(ctx context.Context, name string, args json.RawMessage) ToolResult {
	fn, ok := r.funcs[name]
	if !ok {
		return toolError("unknown tool: %q", name)
	}
	var in struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(args, &in); err != nil || analysis.IsBlank(in.URL) {
		return toolError("url is required")
	}
	return fn(ctx, in.URL)
}

func (r *ToolRegistry) analyzeURL(ctx context.Context, raw string) ToolResult {
	res, err := r.a.Analyze(ctx, raw)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return toolError("analysis timed out")
	case err != nil:
		return toolError("analysis cancelled: %v", err)
	}

	out := AnalyzeOutput{
		AnalysisID: res.ID.String(),
		IsPhishing: res.Result.IsPhishing,
		Confidence: res.Result.Confidence,
		RiskScore:  res.Result.RiskScore,
		AIVerdict:  res.Result.AIVerdict,
		Source:     string(res.Source),
		Cached:     res.Cached,
		Features:   res.Result.Features,
		Heuristic:  res.Heuristic,
	}
	verdict := "LIKELY SAFE"
	if out.IsPhishing {
		verdict = "PHISHING"
	}
	text := fmt.Sprintf("%s (risk %d/100, confidence %.0f%%, source %s)\n%s",
		verdict, out.RiskScore, out.Confidence*100, out.Source, out.AIVerdict)
	return ToolResult{Text: text, Structured: out}
}

func (r *ToolRegistry) extractFeatures(ctx context.Context, raw string) ToolResult {
	f, report := r.a.Inspect(ctx, raw)
	out := FeaturesOutput{Features: f, Heuristic: report}
	body, _ := json.Marshal(out)
	return ToolResult{Text: string(body), Structured: out}
}
