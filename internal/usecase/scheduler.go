package usecase

import (
	"context"
	"log/slog"
	"time"

	"MorningDigest/internal/ports"
)

// TriggerSchedule labels runs started by the in-process scheduler.
const TriggerSchedule = "schedule"

// Scheduler wires the ticker driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, pipeline: pipeline, logger: log}
}

// Start registers a schedule-respecting, mail-sending run with the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(tick time.Time) {
		s.logger.Debug("scheduler tick", "at", tick)
		if _, err := s.pipeline.Run(ctx, RunRequest{SendEmails: true, Trigger: TriggerSchedule}); err != nil {
			s.logger.Error("scheduled run failed", "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
