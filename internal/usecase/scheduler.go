package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/paaalop/news-analyzer/internal/ports"
)

// DayProcessor is the use case a scheduled trigger runs.
type DayProcessor interface {
	ProcessDay(ctx context.Context, day time.Time) (Report, error)
}

// Scheduler wires the cron-like driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline DayProcessor
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, pipeline DayProcessor, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the pipeline with the provided scheduler. Each trigger digests the
// calendar day before the trigger time.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	return s.driver.Start(ctx, func(trigger time.Time) {
		s.RunFor(ctx, trigger)
	})
}

// RunFor processes the day before trigger and logs the outcome.
func (s *Scheduler) RunFor(ctx context.Context, trigger time.Time) {
	report, err := s.pipeline.ProcessDay(ctx, PreviousDay(trigger))
	if err != nil {
		s.logger.Error("scheduled digest run failed", "run_id", report.RunID, "day", report.Day, "error", err)
		return
	}
	LogReport(s.logger, report)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

// PreviousDay returns midnight of the calendar day before t, in t's location.
func PreviousDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d-1, 0, 0, 0, 0, t.Location())
}

// LogReport writes the run report at info level.
func LogReport(logger *slog.Logger, r Report) {
	logger.Info("digest run finished",
		"run_id", r.RunID,
		"day", r.Day,
		"loaded", r.Loaded,
		"embedded", r.Embedded,
		"skipped", r.Skipped,
		"clusters", r.Clusters,
		"chunks", r.Chunks,
		"no_input", r.NoInput,
	)
}

