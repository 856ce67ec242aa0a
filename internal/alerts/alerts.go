// Package alerts posts signed webhook notifications when an analysis flags a
// URL as phishing.
package alerts

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jmerrifield20/phishlens/internal/analysis"
	"go.uber.org/zap"
)

// EventPhishingDetected is the only event type sent today.
const EventPhishingDetected = "url.phishing_detected"

// SignatureHeader carries the HMAC-SHA256 of the request body.
const SignatureHeader = "X-PhishLens-Signature"

// Target is one webhook endpoint. Secret may be empty, in which case the
// signature header is omitted.
type Target struct {
	URL    string `mapstructure:"url"    json:"url"`
	Secret string `mapstructure:"secret" json:"-"`
}

// Event is the JSON body posted to each target.
type Event struct {
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload"`
}

// MetricsRecorder is an optional callback for recording delivery outcomes.
type MetricsRecorder func(success bool)

// Notifier delivers phishing alerts to a fixed set of targets. It implements
// analysis.Recorder so it can sit next to the verdict log.
type Notifier struct {
	targets    []Target
	minRisk    int
	httpClient *http.Client
	delays     []time.Duration
	onMetrics  MetricsRecorder
	logger     *zap.Logger
	wg         sync.WaitGroup
}

var _ analysis.Recorder = (*Notifier)(nil)

// NewNotifier creates a Notifier. Only phishing verdicts with a risk score
// of at least minRisk are sent.
func NewNotifier(targets []Target, minRisk int, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		targets:    targets,
		minRisk:    minRisk,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		delays:     []time.Duration{0, 1 * time.Second, 5 * time.Second},
		logger:     logger,
	}
}

// SetMetricsRecorder configures the metrics callback.
func (n *Notifier) SetMetricsRecorder(fn MetricsRecorder) {
	n.onMetrics = fn
}

// SetRetryDelays replaces the wait before each attempt. The first delay is
// normally zero; len(delays) is the number of attempts.
func (n *Notifier) SetRetryDelays(delays []time.Duration) {
	n.delays = delays
}

// RecordAssessment implements analysis.Recorder. Delivery happens in the
// background; it never fails the analysis.
func (n *Notifier) RecordAssessment(ctx context.Context, a *analysis.Assessment) error {
	if len(n.targets) == 0 || !a.Result.IsPhishing || a.Result.RiskScore < n.minRisk {
		return nil
	}
	n.Dispatch(context.WithoutCancel(ctx), EventPhishingDetected, map[string]string{
		"analysis_id": a.ID.String(),
		"url":         a.Result.Features.URL,
		"risk_score":  strconv.Itoa(a.Result.RiskScore),
		"confidence":  strconv.FormatFloat(a.Result.Confidence, 'f', 2, 64),
		"source":      string(a.Source),
		"verdict":     a.Result.AIVerdict,
	})
	return nil
}

// Dispatch fans an event out to every target.
func (n *Notifier) Dispatch(ctx context.Context, eventType string, payload map[string]string) {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	body, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("alerts: marshal event", zap.Error(err))
		return
	}

	for _, t := range n.targets {
		n.wg.Add(1)
		go func(t Target) {
			defer n.wg.Done()
			n.deliver(ctx, t, body)
		}(t)
	}
}

// Wait blocks until every in-flight delivery has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// deliver sends body to a single target with retries.
func (n *Notifier) deliver(ctx context.Context, t Target, body []byte) {
	signature := ""
	if t.Secret != "" {
		signature = Sign(body, t.Secret)
	}

	for attempt, delay := range n.delays {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
		}

		err := n.post(ctx, t.URL, body, signature)
		if n.onMetrics != nil {
			n.onMetrics(err == nil)
		}
		if err == nil {
			return
		}

		n.logger.Warn("alerts: delivery failed",
			zap.String("url", t.URL),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
}

// post performs a single HTTP POST delivery.
func (n *Notifier) post(ctx context.Context, url string, body []byte, signature string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024)) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

// Sign computes the signature header value for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
