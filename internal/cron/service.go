package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
	"github.com/angelmondragon/bookstall-backend/pkg/metrics"
)

const defaultTick = time.Minute

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Locker   Locker
	LockTTL  time.Duration
	Metrics  *metrics.CronJobMetrics
	// Tick is how often due jobs are checked.
	Tick time.Duration
	Now  func() time.Time
}

// Service executes registered cron jobs when their interval elapses.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     *jobLock
	metrics  *metrics.CronJobMetrics
	tick     time.Duration
	now      func() time.Time

	mu      sync.Mutex
	lastRun map[string]time.Time
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	tick := params.Tick
	if tick <= 0 {
		tick = defaultTick
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     newJobLock(params.Locker, params.LockTTL),
		metrics:  params.Metrics,
		tick:     tick,
		now:      now,
		lastRun:  make(map[string]time.Time),
	}, nil
}

// Run checks for due jobs every tick until the context is canceled.
// Every job is due on the first check.
func (s *Service) Run(ctx context.Context) error {
	if err := s.RunDue(ctx); err != nil {
		s.logg.Error(ctx, "scheduled run failed", err)
	}
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunDue(ctx); err != nil {
				s.logg.Error(ctx, "scheduled run failed", err)
			}
		}
	}
}

// RunDue runs every job whose interval has elapsed. A failing job does not
// stop the others; their errors are combined.
func (s *Service) RunDue(ctx context.Context) error {
	var errs error
	for _, sched := range s.registry.Schedules() {
		if !s.due(sched) {
			continue
		}
		if err := s.runJob(ctx, sched.Job); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", sched.Job.Name(), err))
		}
	}
	return errs
}

// RunOnce runs the named job immediately regardless of its schedule.
func (s *Service) RunOnce(ctx context.Context, name string) error {
	job, ok := s.registry.Lookup(name)
	if !ok {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "unknown cron job %q", name)
	}
	return s.runJob(ctx, job)
}

func (s *Service) due(sched Schedule) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ran := s.lastRun[sched.Job.Name()]
	return !ran || s.now().Sub(last) >= sched.Every
}

func (s *Service) markRun(name string) {
	s.mu.Lock()
	s.lastRun[name] = s.now()
	s.mu.Unlock()
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	name := job.Name()
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": name, "event": "cron.job"})
	start := time.Now()

	ran, err := s.lock.run(jobCtx, name, job.Run)
	took := time.Since(start)
	s.markRun(name)

	switch {
	case !ran && err == nil:
		s.logg.Info(jobCtx, "job held by another worker; skipping")
		s.metrics.Observe(name, metrics.CronSkipped, 0)
		return nil
	case err != nil:
		s.logg.Error(s.logg.WithField(jobCtx, "duration_ms", took.Milliseconds()), "job failed", err)
		s.metrics.Observe(name, metrics.CronFailed, took)
		return err
	}
	s.logg.Info(s.logg.WithField(jobCtx, "duration_ms", took.Milliseconds()), "job completed")
	s.metrics.Observe(name, metrics.CronSucceeded, took)
	return nil
}
