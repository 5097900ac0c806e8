// Package events publishes scraped batches to a Redis stream so downstream
// consumers can pick up listings while a run is still in progress.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/listing-scraper/internal/models"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeListingBatchScraped is published once per scraped page.
	EventTypeListingBatchScraped EventType = "LISTING_BATCH_SCRAPED"

	DefaultStream = "stream:listings"
)

// ListingBatchScrapedPayload is the data field of a LISTING_BATCH_SCRAPED
// stream entry.
type ListingBatchScrapedPayload struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	Timestamp time.Time        `json:"timestamp"`
	RunID     string           `json:"run_id"`
	SourceURL string           `json:"source_url"`
	Page      int              `json:"page"`
	Listings  []models.Listing `json:"listings"`
	Source    string           `json:"source"`
}

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// Publisher writes one stream entry per batch. It implements storage.Sink.
type Publisher struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
	now    func() time.Time
}

func NewPublisher(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "publisher"),
		now:    time.Now,
	}
}

func (p *Publisher) Write(ctx context.Context, batch *models.Batch) error {
	payload := ListingBatchScrapedPayload{
		EventID:   uuid.New().String(),
		EventType: string(EventTypeListingBatchScraped),
		Timestamp: p.now().UTC(),
		RunID:     batch.RunID.String(),
		SourceURL: batch.SourceURL,
		Page:      batch.Page,
		Listings:  batch.Listings,
		Source:    "listing-scraper",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":       string(data),
			"event_type": payload.EventType,
			"event_id":   payload.EventID,
			"run_id":     payload.RunID,
			"page":       payload.Page,
			"records":    batch.Len(),
			"timestamp":  fmt.Sprintf("%d", payload.Timestamp.UnixNano()),
		},
	}

	id, err := p.redis.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Debug("batch published",
		"stream", p.stream,
		"stream_id", id,
		"run_id", payload.RunID,
		"page", payload.Page,
		"records", batch.Len())

	return nil
}

func (p *Publisher) Close() error {
	return p.redis.Close()
}
