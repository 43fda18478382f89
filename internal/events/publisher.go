// Package events publishes scrape session lifecycle events to a Redis
// stream for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/verdantdev/dispensary-scraper/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// EventTypeSessionCompleted is published when a scrape workflow
	// finishes, successfully or not.
	EventTypeSessionCompleted EventType = "SCRAPE_SESSION_COMPLETED"
)

// SessionCompletedPayload summarizes a finished session.
type SessionCompletedPayload struct {
	EventType     string    `json:"event_type"`
	SessionID     string    `json:"session_id"`
	Timestamp     time.Time `json:"timestamp"`
	Success       bool      `json:"success"`
	TotalProducts int       `json:"total_products"`
	TotalStores   int       `json:"total_stores"`
	DurationSecs  float64   `json:"duration_seconds"`
	Categories    int       `json:"categories"`
	Errors        []string  `json:"errors,omitempty"`
}

type Publisher struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewPublisher(client *redis.Client, stream string, logger *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
	}
}

// PublishSessionCompleted appends a session summary to the stream.
func (p *Publisher) PublishSessionCompleted(ctx context.Context, session *models.Session) error {
	payload := SessionCompletedPayload{
		EventType:     string(EventTypeSessionCompleted),
		SessionID:     session.ID,
		Timestamp:     time.Now(),
		Success:       session.Success,
		TotalProducts: session.TotalProducts,
		TotalStores:   session.TotalStores,
		DurationSecs:  session.Duration.Seconds(),
		Categories:    len(session.Results),
		Errors:        session.Errors,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{"payload": string(data)},
	}).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("event published",
		"type", payload.EventType,
		"session_id", payload.SessionID,
		"stream", p.stream,
	)
	return nil
}
