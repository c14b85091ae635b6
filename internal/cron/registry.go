package cron

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type schedule struct {
	job     Job
	every   time.Duration
	lastRun time.Time
}

// Registry holds jobs with their own cadence. A job that has never run is
// due on the first tick.
type Registry struct {
	mu      sync.Mutex
	entries []*schedule
	byName  map[string]*schedule
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*schedule)}
}

// Register adds job to run every interval. Names must be unique because they
// label metrics and logs.
func (r *Registry) Register(job Job, every time.Duration) error {
	if job == nil {
		return fmt.Errorf("job is required")
	}
	if every <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[job.Name()]; exists {
		return fmt.Errorf("job %s already registered", job.Name())
	}
	entry := &schedule{job: job, every: every}
	r.entries = append(r.entries, entry)
	r.byName[job.Name()] = entry
	return nil
}

// Due returns, in registration order, the jobs whose interval has elapsed at now.
func (r *Registry) Due(now time.Time) []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []Job
	for _, entry := range r.entries {
		if entry.lastRun.IsZero() || !now.Before(entry.lastRun.Add(entry.every)) {
			due = append(due, entry.job)
		}
	}
	return due
}

// MarkRun records that name ran at the given time, whatever the outcome.
func (r *Registry) MarkRun(name string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.byName[name]; ok {
		entry.lastRun = at
	}
}

// Lookup finds a registered job by name.
func (r *Registry) Lookup(name string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return entry.job, true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
