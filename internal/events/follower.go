package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// Follower tails the event stream from the moment it starts. Every instance
// sees every entry; there is no consumer group and no acknowledgement.
type Follower struct {
	rdb    *redis.Client
	stream string
	logger *slog.Logger
}

// NewFollower creates a Follower on an existing client.
func NewFollower(rdb *redis.Client, stream string, logger *slog.Logger) *Follower {
	return &Follower{rdb: rdb, stream: stream, logger: logger}
}

// Follow blocks until ctx is done, calling handle for each new event.
func (f *Follower) Follow(ctx context.Context, handle func(ReportEvent)) error {
	lastID := "$"
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := f.rdb.XRead(ctx, &redis.XReadArgs{
			Streams: []string{f.stream, lastID},
			Count:   50,
			Block:   5 * time.Second,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.Error("failed to read event stream", "stream", f.stream, "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, s := range res {
			for _, msg := range s.Messages {
				lastID = msg.ID
				ev, err := decodeEvent(msg.Values)
				if err != nil {
					f.logger.Warn("skipping malformed event", "message_id", msg.ID, "error", err)
					continue
				}
				handle(ev)
			}
		}
	}
}

// Start runs Follow in the background and returns a stop function.
func (f *Follower) Start(handle func(ReportEvent)) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := f.Follow(ctx, handle); err != nil && !errors.Is(err, context.Canceled) {
			f.logger.Error("event follower stopped", "error", err)
		}
	}()
	f.logger.Info("event follower started", "stream", f.stream)
	return cancel
}

func decodeEvent(values map[string]interface{}) (ReportEvent, error) {
	var ev ReportEvent
	raw, ok := values["payload"].(string)
	if !ok {
		return ev, fmt.Errorf("missing payload")
	}
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return ev, fmt.Errorf("failed to decode payload: %w", err)
	}
	return ev, nil
}
