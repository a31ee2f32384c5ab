package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher appends report events to a capped stream.
type Publisher struct {
	rdb    *redis.Client
	stream string
}

// NewPublisher creates a Publisher on an existing client.
func NewPublisher(rdb *redis.Client, stream string) *Publisher {
	return &Publisher{rdb: rdb, stream: stream}
}

// PublishReportEvent adds ev to the stream and returns the entry ID. A nil
// Publisher does nothing.
func (p *Publisher) PublishReportEvent(ctx context.Context, ev ReportEvent) (string, error) {
	if p == nil {
		return "", nil
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	result := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"type":           "report." + ev.Status,
			"payload":        string(payload),
			"published_at":   ev.OccurredAt.Unix(),
			"schema_version": SchemaVersionV1,
		},
	})
	if result.Err() != nil {
		return "", fmt.Errorf("failed to publish to stream: %w", result.Err())
	}
	return result.Val(), nil
}
