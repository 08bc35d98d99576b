// Package scheduler runs the pipeline on a recurring cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"gazette/internal/logger"
)

// Scheduler triggers a job on a cron spec. A run that is still in flight
// when the next tick arrives makes that tick a no-op; pipeline runs are not
// safe to overlap.
type Scheduler struct {
	cron    *cron.Cron
	job     func(ctx context.Context) error
	running atomic.Bool
}

// New builds a scheduler for the given cron spec and job.
func New(spec string, job func(ctx context.Context) error) (*Scheduler, error) {
	s := &Scheduler{cron: cron.New(), job: job}

	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}

	return s, nil
}

// tick runs the job unless a previous run is still in flight, in which case
// the tick is a no-op.
func (s *Scheduler) tick() {
	if !s.running.CompareAndSwap(false, true) {
		logger.Warn("Skipping scheduled run, previous run still in progress")
		return
	}
	defer s.running.Store(false)

	if err := s.job(context.Background()); err != nil {
		logger.Error("Scheduled run failed", err)
	}
}

// Start begins scheduling in a background goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and returns a context that is done once any in-flight
// run finishes.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
