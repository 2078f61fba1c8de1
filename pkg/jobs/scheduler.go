// Package jobs runs periodic maintenance tasks on cron schedules.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is one scheduled task
type Job struct {
	Name     string
	Schedule string // standard 5-field cron spec or a descriptor such as "@every 1m"
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler wraps a cron runner with logging and per-run timeouts
type Scheduler struct {
	cron   *cron.Cron
	logger logrus.FieldLogger
}

// NewScheduler creates a Scheduler. Jobs run in UTC and a job still running
// when its next tick fires is skipped.
func NewScheduler(logger logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger: logger,
	}
}

// Add registers job
func (s *Scheduler) Add(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("job %s has no Run func", job.Name)
	}
	if _, err := s.cron.AddFunc(job.Schedule, func() { s.run(job) }); err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", job.Name, err)
	}
	s.logger.WithFields(logrus.Fields{
		"job":      job.Name,
		"schedule": job.Schedule,
	}).Info("Job scheduled")
	return nil
}

// Start begins running jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs or ctx, whichever ends first
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(job Job) {
	ctx := context.Background()
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	entry := s.logger.WithField("job", job.Name)
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			entry.WithField("panic", rec).Error("Job panicked")
		}
	}()

	if err := job.Run(ctx); err != nil {
		entry.WithError(err).WithField("duration_ms", time.Since(start).Milliseconds()).Error("Job failed")
		return
	}
	entry.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("Job completed")
}
