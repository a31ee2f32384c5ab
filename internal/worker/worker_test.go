package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jimdaga/ki-report/internal/pipeline"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingRunner struct {
	mu      sync.Mutex
	calls   map[uint]int
	taskIDs []string
	err     error
	block   chan struct{}
	done    chan struct{}
}

func newCountingRunner() *countingRunner {
	return &countingRunner{calls: map[uint]int{}, done: make(chan struct{}, 100)}
}

func (r *countingRunner) Run(ctx context.Context, briefingID uint, email string) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.calls[briefingID]++
	r.taskIDs = append(r.taskIDs, pipeline.TaskIDFrom(ctx))
	r.mu.Unlock()
	r.done <- struct{}{}
	return r.err
}

func waitFor(t *testing.T, ch <-chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d jobs", i, n)
		}
	}
}

func TestLocalQueueDeliversOnce(t *testing.T) {
	runner := newCountingRunner()
	runner.err = errors.New("pdf failed")
	q := NewLocalQueue(runner, 3, 16, testLogger())
	q.Start(context.Background())

	ids := map[string]bool{}
	for b := uint(1); b <= 5; b++ {
		id, err := q.EnqueueReport(context.Background(), b, "")
		if err != nil {
			t.Fatalf("enqueue %d: %v", b, err)
		}
		if !strings.HasPrefix(id, "task-") || ids[id] {
			t.Errorf("unexpected task id %q", id)
		}
		ids[id] = true
	}
	waitFor(t, runner.done, 5)
	q.Stop()

	for b := uint(1); b <= 5; b++ {
		if runner.calls[b] != 1 {
			t.Errorf("briefing %d ran %d times, want 1", b, runner.calls[b])
		}
	}
	for _, id := range runner.taskIDs {
		if !ids[id] {
			t.Errorf("runner saw unknown task id %q", id)
		}
	}
}

func TestLocalQueueFullAndClosed(t *testing.T) {
	runner := newCountingRunner()
	runner.block = make(chan struct{})
	q := NewLocalQueue(runner, 1, 1, testLogger())
	q.Start(context.Background())

	q.EnqueueReport(context.Background(), 1, "")
	// Wait until the worker picked up job 1 so the buffer is free again.
	deadline := time.Now().Add(2 * time.Second)
	for len(q.jobs) > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := q.EnqueueReport(context.Background(), 2, ""); err != nil {
		t.Fatalf("enqueue 2: %v", err)
	}
	if _, err := q.EnqueueReport(context.Background(), 3, ""); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}

	close(runner.block)
	waitFor(t, runner.done, 1)
	q.Stop()
	if _, err := q.EnqueueReport(context.Background(), 4, ""); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed, got %v", err)
	}
}

func TestHandleReportGenerate(t *testing.T) {
	runner := newCountingRunner()
	h := handleReportGenerate(testLogger(), runner)

	payload, _ := json.Marshal(reportPayload{BriefingID: 7, Email: "a@b.de", TaskID: "task-1"})
	if err := h(context.Background(), asynq.NewTask(TaskReportGenerate, payload)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if runner.calls[7] != 1 || runner.taskIDs[0] != "task-1" {
		t.Errorf("unexpected runner state %+v", runner)
	}

	err := h(context.Background(), asynq.NewTask(TaskReportGenerate, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("expected SkipRetry for bad payload, got %v", err)
	}

	runner.err = errors.New("boom")
	err = h(context.Background(), asynq.NewTask(TaskReportGenerate, payload))
	if !errors.Is(err, asynq.SkipRetry) || !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected terminal pipeline error, got %v", err)
	}
}

type fakeCleaner struct{ n int64 }

func (f fakeCleaner) CleanupExpired(context.Context) (int64, error) { return f.n, nil }

func TestHandleMaintenanceCleanup(t *testing.T) {
	h := handleMaintenanceCleanup(testLogger(), fakeCleaner{n: 3})
	if err := h(context.Background(), asynq.NewTask(TaskMaintenanceCleanup, nil)); err != nil {
		t.Errorf("cleanup: %v", err)
	}
}
