package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/pawnshop/backoffice/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// BaselineRefresher reloads cached role baselines.
type BaselineRefresher interface {
	RefreshBaselines(ctx context.Context, roleID int64) (int, error)
}

// BaselineRefreshJob handles TaskRoleBaselineRefresh.
type BaselineRefreshJob struct {
	Refresher BaselineRefresher
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewBaselineRefreshJob wires dependencies for the refresh handler.
func NewBaselineRefreshJob(refresher BaselineRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *BaselineRefreshJob {
	return &BaselineRefreshJob{Refresher: refresher, Logger: logger, Metrics: metrics}
}

// Handle processes baseline refresh tasks.
func (j *BaselineRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Refresher == nil {
		return errors.New("baseline refresh: handler not configured")
	}
	var payload RoleBaselineRefreshPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.RoleID < 0 {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskRoleBaselineRefresh)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int64("role_id", payload.RoleID))
	start := time.Now()

	warmed, err := j.Refresher.RefreshBaselines(ctx, payload.RoleID)
	j.metrics().AddWarmed(warmed)
	if err != nil {
		resultErr = err
		logger.Error("refresh role baselines", slog.Int("warmed", warmed), slog.Any("error", err))
		return resultErr
	}
	logger.Info("refreshed role baselines", slog.Int("warmed", warmed), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *BaselineRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRoleBaselineRefresh))
	}
	return slog.Default().With(slog.String("job", TaskRoleBaselineRefresh))
}

func (j *BaselineRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
