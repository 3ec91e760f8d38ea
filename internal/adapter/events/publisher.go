package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"trendlens/internal/domain/trend"
	"trendlens/internal/metrics"
)

// DefaultTopic prefixes explanation subjects
const DefaultTopic = "explanation"

// Conn is the part of *nats.Conn the publisher needs
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher sends explanation events over NATS
type Publisher struct {
	conn    Conn
	subject string
	logger  *slog.Logger
}

// GeneratedSubject returns the subject of generation events for a topic
func GeneratedSubject(topic string) string {
	if topic == "" {
		topic = DefaultTopic
	}
	return topic + ".generated"
}

// NewPublisher creates a publisher for <topic>.generated
func NewPublisher(conn Conn, topic string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:    conn,
		subject: GeneratedSubject(topic),
		logger:  logger.With("component", "events"),
	}
}

// Subject returns the subject events are published on
func (p *Publisher) Subject() string {
	return p.subject
}

// PublishGenerated announces a freshly written explanation
func (p *Publisher) PublishGenerated(ctx context.Context, event trend.GeneratedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("error marshaling event: %w", err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		metrics.RecordEventPublished(false)
		return fmt.Errorf("error publishing to %s: %w", p.subject, err)
	}

	metrics.RecordEventPublished(true)
	p.logger.Debug("published explanation event", "subject", p.subject, "cache_key", event.CacheKey)
	return nil
}
