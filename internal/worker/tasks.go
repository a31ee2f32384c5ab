package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TaskReportGenerate     = "report:generate"
	TaskMaintenanceCleanup = "maintenance:cleanup"
)

// Queue hands report jobs to a background worker. Delivery is at most once.
type Queue interface {
	EnqueueReport(ctx context.Context, briefingID uint, email string) (taskID string, err error)
}

type reportPayload struct {
	BriefingID uint   `json:"briefing_id"`
	Email      string `json:"email,omitempty"`
	TaskID     string `json:"task_id"`
}

func newTaskID() string {
	return "task-" + uuid.NewString()
}

// AsynqQueue enqueues report jobs in Redis.
type AsynqQueue struct {
	client *asynq.Client
}

// NewAsynqQueue connects an asynq client to redisURL.
func NewAsynqQueue(redisURL string) (*AsynqQueue, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &AsynqQueue{client: asynq.NewClient(opt)}, nil
}

// Close closes the Asynq client connection gracefully.
func (q *AsynqQueue) Close() error {
	return q.client.Close()
}

// EnqueueReport enqueues a report:generate task. The task is never retried,
// times out after 15 minutes and is retained for 24 hours.
func (q *AsynqQueue) EnqueueReport(ctx context.Context, briefingID uint, email string) (string, error) {
	taskID := newTaskID()
	payload, err := json.Marshal(reportPayload{BriefingID: briefingID, Email: email, TaskID: taskID})
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(
		TaskReportGenerate,
		payload,
		asynq.TaskID(taskID),
		asynq.MaxRetry(0),
		asynq.Timeout(15*time.Minute),
		asynq.Retention(24*time.Hour),
	)

	if _, err := q.client.EnqueueContext(ctx, task); err != nil {
		return "", fmt.Errorf("failed to enqueue report task: %w", err)
	}
	return taskID, nil
}
