// Package events publishes a message for every completed analysis so that
// downstream consumers (blocklists, SIEM pipelines) can react to verdicts.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmerrifield20/phishlens/internal/analysis"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// DefaultTopic receives verdict events when no topic is configured.
const DefaultTopic = "phishlens.verdicts"

// Event types.
const (
	TypeURLAnalyzed = "url.analyzed"
)

// Config holds Kafka connection parameters.
type Config struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`

	// PhishingOnly limits publishing to phishing verdicts.
	PhishingOnly bool `mapstructure:"phishing_only"`
}

// VerdictEvent is the JSON value of every message.
type VerdictEvent struct {
	EventID    uuid.UUID       `json:"event_id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	AnalysisID string          `json:"analysis_id"`
	Source     string          `json:"source"`
	Heuristic  int             `json:"heuristic_score"`
	Result     analysis.Result `json:"result"`
}

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes verdict events to Kafka. It implements analysis.Recorder.
type Publisher struct {
	w            messageWriter
	topic        string
	phishingOnly bool
	logger       *zap.Logger
}

var _ analysis.Recorder = (*Publisher)(nil)

// NewPublisher creates a Publisher for cfg. Brokers must not be empty.
func NewPublisher(cfg Config, logger *zap.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("events: no kafka brokers configured")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafkago.RequireAll,
	}
	return newPublisher(w, cfg, logger), nil
}

func newPublisher(w messageWriter, cfg Config, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	return &Publisher{w: w, topic: cfg.Topic, phishingOnly: cfg.PhishingOnly, logger: logger}
}

// RecordAssessment implements analysis.Recorder. Messages are keyed by URL
// so every verdict for one URL lands on the same partition.
func (p *Publisher) RecordAssessment(ctx context.Context, a *analysis.Assessment) error {
	if p.phishingOnly && !a.Result.IsPhishing {
		return nil
	}
	ev := VerdictEvent{
		EventID:    uuid.New(),
		Type:       TypeURLAnalyzed,
		OccurredAt: time.Now().UTC(),
		AnalysisID: a.ID.String(),
		Source:     string(a.Source),
		Result:     a.Result,
	}
	if a.Heuristic != nil {
		ev.Heuristic = a.Heuristic.Score
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: marshal verdict: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(a.Result.Features.URL),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "event-type", Value: []byte(TypeURLAnalyzed)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", p.topic, err)
	}
	p.logger.Debug("verdict event published",
		zap.String("topic", p.topic),
		zap.String("analysis_id", ev.AnalysisID),
	)
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}
