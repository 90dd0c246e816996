package cron

import (
	"context"
	"fmt"
	"time"
)

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Schedule pairs a job with how often it should run.
type Schedule struct {
	Job   Job
	Every time.Duration
}

// Registry tracks registered cron jobs in registration order.
type Registry struct {
	entries []Schedule
	byName  map[string]int
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register adds job to run every interval. Job names must be unique.
func (r *Registry) Register(job Job, every time.Duration) error {
	if job == nil {
		return fmt.Errorf("job required")
	}
	if every <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name())
	}
	if _, exists := r.byName[job.Name()]; exists {
		return fmt.Errorf("job %s already registered", job.Name())
	}
	r.byName[job.Name()] = len(r.entries)
	r.entries = append(r.entries, Schedule{Job: job, Every: every})
	return nil
}

// Schedules returns a copy of the registered schedules.
func (r *Registry) Schedules() []Schedule {
	out := make([]Schedule, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Registry) Lookup(name string) (Job, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.entries[idx].Job, true
}
