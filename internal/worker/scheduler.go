package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// StartScheduler registers the periodic maintenance:cleanup task on the
// asynq scheduler. Returns a stop function for graceful shutdown.
func StartScheduler(redisURL, schedule string, logger *slog.Logger) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
			Logger:   &asynqLoggerAdapter{logger: logger},
		},
	)

	task := asynq.NewTask(
		TaskMaintenanceCleanup,
		nil,
		asynq.MaxRetry(0),
		asynq.Timeout(time.Minute),
		asynq.Retention(time.Hour),
		asynq.Unique(5*time.Minute),
	)

	entryID, err := scheduler.Register(schedule, task)
	if err != nil {
		return nil, fmt.Errorf("failed to register cleanup schedule: %w", err)
	}

	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info("scheduler started", "schedule", schedule, "entry_id", entryID)
	return scheduler.Shutdown, nil
}
