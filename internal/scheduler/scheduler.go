// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wolfman30/premiumcar-router/pkg/logging"
)

// Job is a named periodic task.
type Job struct {
	Name string
	// Spec is a standard five-field cron expression or a descriptor such
	// as "@every 5m".
	Spec string
	Run  func(ctx context.Context) error
}

// Scheduler wraps a UTC cron runner.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *logging.Logger
	jobs    int
	running atomic.Bool
}

func New(logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Add registers a job. Jobs must be added before Start.
func (s *Scheduler) Add(job Job) error {
	if job.Run == nil {
		return errors.New("scheduler: job function is required")
	}
	_, err := s.cron.AddFunc(job.Spec, func() {
		start := time.Now()
		if err := job.Run(s.ctx); err != nil {
			s.logger.Error("scheduled job failed", "job", job.Name, "error", err)
			return
		}
		s.logger.Debug("scheduled job finished", "job", job.Name, "duration_ms", time.Since(start).Milliseconds())
	})
	if err != nil {
		return fmt.Errorf("scheduler: add %s: %w", job.Name, err)
	}
	s.jobs++
	return nil
}

// Start begins running jobs in the background. It is a no-op without jobs.
func (s *Scheduler) Start() {
	if s.jobs == 0 {
		return
	}
	s.cron.Start()
	s.running.Store(true)
	s.logger.Info("scheduler started", "jobs", s.jobs)
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.running.Store(false)
	s.cancel()
	<-s.cron.Stop().Done()
}

// HasJobs reports whether any job is registered.
func (s *Scheduler) HasJobs() bool {
	return s.jobs > 0
}

// IsRunning reports whether Start launched the cron runner and Stop has not
// been called since.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// SessionSweeper is implemented by flow.Dispatcher.
type SessionSweeper interface {
	Sweep() int
}

// SweepJob removes expired conversation sessions.
func SweepJob(spec string, sweeper SessionSweeper, logger *logging.Logger) Job {
	return Job{
		Name: "session_sweep",
		Spec: spec,
		Run: func(context.Context) error {
			if n := sweeper.Sweep(); n > 0 && logger != nil {
				logger.Info("expired sessions swept", "count", n)
			}
			return nil
		},
	}
}
