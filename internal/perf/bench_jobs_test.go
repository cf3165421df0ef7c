package perf

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	jobmetrics "github.com/pawnshop/backoffice/internal/jobs"
	"github.com/pawnshop/backoffice/jobs"
)

type slowRefresher struct {
	delay time.Duration
	fail  func(call int) bool
	calls int
}

func (s *slowRefresher) RefreshBaselines(ctx context.Context, roleID int64) (int, error) {
	s.calls++
	time.Sleep(s.delay)
	if s.fail != nil && s.fail(s.calls) {
		return 0, errors.New("redis timeout")
	}
	if roleID == 0 {
		return 12, nil
	}
	return 1, nil
}

func TestBaselineRefreshThroughputAndReliability(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Single-role refreshes are fast and mostly successful.
	single := &slowRefresher{delay: 2 * time.Millisecond, fail: func(call int) bool { return call%20 == 0 }}
	job := jobs.NewBaselineRefreshJob(single, logger, metrics)
	for i := 0; i < 60; i++ {
		task, err := jobs.NewRoleBaselineRefreshTask(int64(i%5 + 1))
		if err != nil {
			t.Fatalf("new task: %v", err)
		}
		_ = job.Handle(context.Background(), task)
	}

	// Full refreshes walk every role.
	full := &slowRefresher{delay: 10 * time.Millisecond}
	fullJob := jobs.NewBaselineRefreshJob(full, logger, metrics)
	for i := 0; i < 5; i++ {
		if err := fullJob.Handle(context.Background(), asynq.NewTask(jobs.TaskRoleBaselineRefresh, nil)); err != nil {
			t.Fatalf("full refresh: %v", err)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	success := metricValue(t, families, "backoffice_jobs_total", map[string]string{"job": jobs.TaskRoleBaselineRefresh, "status": "success"})
	failure := metricValue(t, families, "backoffice_jobs_total", map[string]string{"job": jobs.TaskRoleBaselineRefresh, "status": "failure"})
	if success+failure != 65 {
		t.Fatalf("expected 65 runs, got %v", success+failure)
	}
	if ratio := success / (success + failure); ratio < 0.9 {
		t.Fatalf("refresh success ratio too low: %f", ratio)
	}

	warmed := metricValue(t, families, "backoffice_baselines_warmed_total", nil)
	if warmed != 57+60 {
		t.Fatalf("expected 117 warmed baselines, got %v", warmed)
	}

	mean := histogramMean(t, families, "backoffice_job_duration_seconds", map[string]string{"job": jobs.TaskRoleBaselineRefresh})
	if mean > 0.5 {
		t.Fatalf("refresh duration above budget: %f", mean)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != val {
				return false
			}
		}
	}
	for key := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
