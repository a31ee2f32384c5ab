// Package worker runs report jobs in the background, either on asynq/Redis
// or on an in-process pool when Redis is not configured.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jimdaga/ki-report/internal/pipeline"
)

// Runner executes one report job.
type Runner interface {
	Run(ctx context.Context, briefingID uint, email string) error
}

// Cleaner purges expired login codes.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// asynqLoggerAdapter wraps slog.Logger to implement asynq.Logger interface
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

func (a *asynqLoggerAdapter) Debug(args ...interface{}) {
	a.logger.Debug(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Info(args ...interface{}) {
	a.logger.Info(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Warn(args ...interface{}) {
	a.logger.Warn(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Error(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// Start starts the asynq worker in non-blocking mode and returns a stop function.
func Start(redisURL string, concurrency int, runner Runner, cleaner Cleaner, logger *slog.Logger) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 2
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     concurrency,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
			Logger:          &asynqLoggerAdapter{logger: logger},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskReportGenerate, handleReportGenerate(logger, runner))
	mux.HandleFunc(TaskMaintenanceCleanup, handleMaintenanceCleanup(logger, cleaner))

	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	logger.Info("worker started", "concurrency", concurrency)
	return srv.Shutdown, nil
}

// handleReportGenerate runs the report pipeline once. Every failure is
// terminal because report delivery is at most once.
func handleReportGenerate(logger *slog.Logger, runner Runner) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload reportPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.BriefingID == 0 {
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}

		taskID := payload.TaskID
		if id, ok := asynq.GetTaskID(ctx); ok {
			taskID = id
		}
		logger.Info("processing report:generate task", "briefing_id", payload.BriefingID, "task_id", taskID)

		if err := runner.Run(pipeline.WithTaskID(ctx, taskID), payload.BriefingID, payload.Email); err != nil {
			return fmt.Errorf("report pipeline failed: %v: %w", err, asynq.SkipRetry)
		}
		return nil
	}
}

func handleMaintenanceCleanup(logger *slog.Logger, cleaner Cleaner) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, _ *asynq.Task) error {
		n, err := cleaner.CleanupExpired(ctx)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
		logger.Info("expired login codes purged", "count", n)
		return nil
	}
}

// makeErrorHandler creates an error handler function with logger closure.
func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		logger.Error(
			"task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
			"retry_count", retried,
			"max_retry", maxRetry,
		)
	}
}
