// Package pipeline turns a stored briefing into a rendered analysis, a PDF
// and the notification emails.
package pipeline

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type taskIDKey struct{}

// WithTaskID attaches the queue task ID so the Report row can be found by it.
func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, taskIDKey{}, taskID)
}

// TaskIDFrom returns the task ID set by WithTaskID, or "".
func TaskIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(taskIDKey{}).(string)
	return id
}

// NewRunID returns a short correlation ID such as "run-1a2b3c4d".
func NewRunID() string {
	return "run-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
