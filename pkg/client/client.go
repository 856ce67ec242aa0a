package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jmerrifield20/phishlens/pkg/urlfeatures"
)

const maxResponseBytes = 4 << 20

// Finding is one heuristic rule that fired.
type Finding struct {
	Rule        string `json:"rule"`
	Description string `json:"description"`
	Weight      int    `json:"weight"`
}

// Signal is one feature rendered for display with an ok/warning/danger status.
type Signal struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Status string `json:"status"`
}

// HeuristicReport is the rule-based score and its explanation.
type HeuristicReport struct {
	Score    int       `json:"score"`
	Severity string    `json:"severity"`
	Findings []Finding `json:"findings"`
	Signals  []Signal  `json:"signals"`
}

// Result is the merged verdict for one URL.
type Result struct {
	IsPhishing bool                    `json:"isPhishing"`
	Confidence float64                 `json:"confidence"`
	RiskScore  int                     `json:"riskScore"`
	AIVerdict  string                  `json:"aiVerdict"`
	Features   urlfeatures.URLFeatures `json:"features"`
}

// Assessment is the response of POST /api/v1/analyze.
type Assessment struct {
	ID         string           `json:"analysis_id"`
	Result     Result           `json:"result"`
	Heuristic  *HeuristicReport `json:"heuristic"`
	Source     string           `json:"source"` // oracle or fallback
	Cached     bool             `json:"cached,omitempty"`
	OracleErr  string           `json:"oracle_error,omitempty"`
	Duration   time.Duration    `json:"duration_ns"`
	AnalyzedAt time.Time        `json:"analyzed_at"`
}

// FeaturesResult is the response of GET /api/v1/features.
type FeaturesResult struct {
	Features  urlfeatures.URLFeatures `json:"features"`
	Heuristic *HeuristicReport        `json:"heuristic"`
}

// VerdictEntry is one record of the server's verdict log.
type VerdictEntry struct {
	Index      int       `json:"index"`
	Timestamp  time.Time `json:"timestamp"`
	AnalysisID string    `json:"analysis_id"`
	URL        string    `json:"url"`
	Verdict    string    `json:"verdict"`
	RiskScore  int       `json:"risk_score"`
	Source     string    `json:"source"`
	DataHash   string    `json:"data_hash"`
	PrevHash   string    `json:"prev_hash"`
	Hash       string    `json:"hash"`
}

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client is the PhishLens SDK entry point. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *resultCache
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client must not be nil")
		}
		c.httpClient = hc
		return nil
	}
}

// WithCacheTTL enables in-memory caching of Analyze results with the given TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) error {
		if ttl <= 0 {
			return fmt.Errorf("cache TTL must be positive, got %s", ttl)
		}
		c.cache = newResultCache(ttl)
		return nil
	}
}

// New creates a new Client connected to baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(baseURL string, opts ...Option) *Client {
	c, err := New(baseURL, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Analyze runs the full server-side analysis of rawURL.
func (c *Client) Analyze(ctx context.Context, rawURL string) (*Assessment, error) {
	if c.cache != nil {
		if a, ok := c.cache.get(rawURL); ok {
			return a, nil
		}
	}

	var a Assessment
	if err := c.postJSON(ctx, "/api/v1/analyze", map[string]string{"url": rawURL}, &a); err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.set(rawURL, &a)
	}
	return &a, nil
}

// AnalyzeBatch analyses up to 50 URLs in one request. Results keep the
// input order.
func (c *Client) AnalyzeBatch(ctx context.Context, rawURLs []string) ([]*Assessment, error) {
	var resp struct {
		Results []*Assessment `json:"results"`
	}
	if err := c.postJSON(ctx, "/api/v1/analyze/batch", map[string][]string{"urls": rawURLs}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) != len(rawURLs) {
		return nil, fmt.Errorf("batch: got %d results for %d URLs", len(resp.Results), len(rawURLs))
	}
	return resp.Results, nil
}

// Features returns the lexical features and heuristic report for rawURL.
func (c *Client) Features(ctx context.Context, rawURL string) (*FeaturesResult, error) {
	var f FeaturesResult
	if err := c.getJSON(ctx, "/api/v1/features?url="+url.QueryEscape(rawURL), &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// RecentVerdicts returns up to limit verdict log entries, newest first.
func (c *Client) RecentVerdicts(ctx context.Context, limit int) ([]VerdictEntry, error) {
	var resp struct {
		Entries []VerdictEntry `json:"entries"`
	}
	if err := c.getJSON(ctx, "/api/v1/verdicts?limit="+strconv.Itoa(limit), &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// VerifyVerdicts asks the server to walk its verdict log. A nil error with
// valid=false carries the integrity failure in reason.
func (c *Client) VerifyVerdicts(ctx context.Context) (valid bool, reason string, err error) {
	var resp struct {
		Valid bool   `json:"valid"`
		Error string `json:"error"`
	}
	if err := c.getJSON(ctx, "/api/v1/verdicts/verify", &resp); err != nil {
		return false, "", err
	}
	return resp.Valid, resp.Error, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

// do executes an HTTP request and decodes a 2xx JSON body into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// --- simple in-memory result cache ---

type cacheEntry struct {
	result    *Assessment
	expiresAt time.Time
}

type resultCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{entries: make(map[string]*cacheEntry), ttl: ttl}
}

func (rc *resultCache) get(key string) (*Assessment, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	e, ok := rc.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.result, true
}

func (rc *resultCache) set(key string, result *Assessment) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.entries[key] = &cacheEntry{result: result, expiresAt: time.Now().Add(rc.ttl)}
}
