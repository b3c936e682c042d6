package usecase

import (
	"context"
	"time"

	"OutageNotifier/internal/ports"
)

// Scheduler binds one recurring job to a scheduler driver.
type Scheduler struct {
	driver ports.Scheduler
	job    func(context.Context) error
}

// NewScheduler returns a helper to start/stop one recurring job.
func NewScheduler(driver ports.Scheduler, job func(context.Context) error) *Scheduler {
	return &Scheduler{driver: driver, job: job}
}

// Start registers the job with the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.job == nil {
		return nil
	}

	return s.driver.Start(ctx, func(time.Time) {
		_ = s.job(ctx)
	})
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
