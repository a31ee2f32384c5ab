package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jimdaga/ki-report/internal/pipeline"
)

// ErrQueueFull is returned when the in-process queue has no free slot.
var ErrQueueFull = errors.New("report queue is full")

// ErrQueueClosed is returned after Stop.
var ErrQueueClosed = errors.New("report queue is closed")

// LocalQueue runs report jobs on a fixed pool of goroutines. Jobs are lost
// on shutdown; there is no retry.
type LocalQueue struct {
	jobs    chan reportPayload
	runner  Runner
	workers int
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewLocalQueue creates a LocalQueue with the given pool size and buffer.
func NewLocalQueue(runner Runner, workers, capacity int, logger *slog.Logger) *LocalQueue {
	if workers <= 0 {
		workers = 1
	}
	if capacity <= 0 {
		capacity = 64
	}
	return &LocalQueue{
		jobs:    make(chan reportPayload, capacity),
		runner:  runner,
		workers: workers,
		logger:  logger,
	}
}

// Start launches the worker goroutines. Jobs run under ctx.
func (q *LocalQueue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.loop(ctx, i)
	}
	q.logger.Info("local report queue started", "workers", q.workers, "capacity", cap(q.jobs))
}

// Stop closes the queue and waits for running jobs. Jobs still buffered are dropped.
func (q *LocalQueue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
}

// EnqueueReport buffers a job without blocking.
func (q *LocalQueue) EnqueueReport(_ context.Context, briefingID uint, email string) (string, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return "", ErrQueueClosed
	}

	job := reportPayload{BriefingID: briefingID, Email: email, TaskID: newTaskID()}
	select {
	case q.jobs <- job:
		return job.TaskID, nil
	default:
		return "", ErrQueueFull
	}
}

func (q *LocalQueue) loop(ctx context.Context, id int) {
	defer q.wg.Done()
	for job := range q.jobs {
		if ctx.Err() != nil {
			q.logger.Warn("dropping report job on shutdown", "briefing_id", job.BriefingID, "task_id", job.TaskID)
			continue
		}
		q.run(ctx, id, job)
	}
}

func (q *LocalQueue) run(ctx context.Context, id int, job reportPayload) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("report job panicked", "task_id", job.TaskID, "panic", r)
		}
	}()

	q.logger.Info("processing report job", "worker", id, "briefing_id", job.BriefingID, "task_id", job.TaskID)
	if err := q.runner.Run(pipeline.WithTaskID(ctx, job.TaskID), job.BriefingID, job.Email); err != nil {
		q.logger.Error("report job failed", "task_id", job.TaskID, "error", err)
	}
}
