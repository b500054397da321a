// Package scheduler runs named maintenance jobs on cron expressions.
//
// The API server uses it to sweep idle sessions out of memory.
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron

	mu   sync.Mutex
	jobs map[string]job
}

type job struct {
	id   cron.EntryID
	expr string
	task func()
}

// JobInfo describes a scheduled job.
type JobInfo struct {
	Name string    `json:"name"`
	Expr string    `json:"expr"`
	Next time.Time `json:"next"`
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	// Standard 5-field parser (min, hour, dom, month, dow) with panic recovery.
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c, jobs: make(map[string]job)}
}

// AddJob schedules a named task using the provided cron expression. Adding a
// name that already exists replaces the previous schedule.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(name, expr string, task func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wrapped := func() {
		start := time.Now()
		slog.Debug("Scheduler.run: job started", "job", name)
		task()
		slog.Debug("Scheduler.run: job finished", "job", name, "elapsed", time.Since(start))
	}
	id, err := s.cron.AddFunc(expr, wrapped)
	if err != nil {
		slog.Error("Scheduler.AddJob: invalid cron expression", "job", name, "expr", expr, "error", err)
		return fmt.Errorf("invalid schedule %q for job %s: %w", expr, name, err)
	}
	if prev, ok := s.jobs[name]; ok {
		s.cron.Remove(prev.id)
	}
	s.jobs[name] = job{id: id, expr: expr, task: wrapped}
	slog.Info("Scheduler.AddJob: job scheduled", "job", name, "expr", expr)
	return nil
}

// RemoveJob unschedules a job. It reports whether the job existed.
func (s *Scheduler) RemoveJob(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return false
	}
	s.cron.Remove(j.id)
	delete(s.jobs, name)
	slog.Info("Scheduler.RemoveJob: job removed", "job", name)
	return true
}

// RunNow runs a job synchronously outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %s", name)
	}
	j.task()
	return nil
}

// Jobs lists scheduled jobs with their next run time.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobInfo, 0, len(s.jobs))
	for name, j := range s.jobs {
		out = append(out, JobInfo{Name: name, Expr: j.expr, Next: s.cron.Entry(j.id).Next})
	}
	return out
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Debug("Scheduler.Stop: stopped")
}
