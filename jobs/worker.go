package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// WorkerConfig wires the baseline refresh queue.
type WorkerConfig struct {
	RedisOpts asynq.RedisClientOpt
	Logger    *slog.Logger
	Refresh   *BaselineRefreshJob
	// RefreshCron schedules a refresh of every role; empty disables the schedule.
	RefreshCron string
}

// Worker consumes baseline refresh tasks and owns the periodic refresh schedule.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// NewWorker constructs a Worker for the default queue.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Refresh == nil {
		return nil, errors.New("worker: refresh job required")
	}
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskRoleBaselineRefresh, cfg.Refresh.Handle)

	w := &Worker{
		server: asynq.NewServer(cfg.RedisOpts, asynq.Config{
			Concurrency: 2,
			Queues:      map[string]int{QueueDefault: 1},
		}),
		mux:    mux,
		logger: cfg.Logger,
	}
	if cfg.RefreshCron == "" {
		return w, nil
	}
	task, err := NewRoleBaselineRefreshTask(0)
	if err != nil {
		return nil, err
	}
	w.scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
	if _, err := w.scheduler.Register(cfg.RefreshCron, task, refreshOptions()...); err != nil {
		return nil, fmt.Errorf("worker: register %q: %w", cfg.RefreshCron, err)
	}
	return w, nil
}

// Run processes refresh tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
		defer w.scheduler.Shutdown()
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
