// Package scheduler runs posting jobs on cron schedules inside a long-lived process.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/samvad-hq/samvad-social-poster/internal/logger"
)

// Job is a scheduled unit of work.
type Job func(ctx context.Context) error

// DefaultTimeout bounds a single job execution when no timeout is configured.
const DefaultTimeout = 30 * time.Minute

// Scheduler manages periodic jobs.
type Scheduler struct {
	cron     *cron.Cron
	timezone *time.Location
	timeout  time.Duration
	log      logger.Logger

	mu   sync.Mutex
	jobs map[string]cron.EntryID
	base context.Context
}

// New creates a scheduler in timezone. Overlapping ticks of the same job are
// skipped rather than queued.
func New(timezone string, timeout time.Duration, log logger.Logger) (*Scheduler, error) {
	if strings.TrimSpace(timezone) == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	log = logger.Ensure(log)

	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	return &Scheduler{
		cron:     c,
		timezone: loc,
		timeout:  timeout,
		log:      log,
		jobs:     make(map[string]cron.EntryID),
		base:     context.Background(),
	}, nil
}

// AddJob registers job under name with a standard five-field cron schedule
// such as "0 */6 * * *".
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	if job == nil {
		return fmt.Errorf("job %s is nil", name)
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		_ = s.run(name, job)
	})
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}

	s.mu.Lock()
	s.jobs[name] = entryID
	s.mu.Unlock()

	s.log.InfoObj("scheduler job added", "scheduler_job", map[string]any{
		"name":     name,
		"schedule": schedule,
		"timezone": s.timezone.String(),
	})
	return nil
}

// RemoveJob removes a scheduled job.
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
	}
}

// RunNow executes job immediately with the scheduler's timeout.
func (s *Scheduler) RunNow(name string, job Job) error {
	return s.run(name, job)
}

func (s *Scheduler) run(name string, job Job) error {
	s.mu.Lock()
	base := s.base
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(base, s.timeout)
	defer cancel()

	start := time.Now()
	err := job(ctx)
	fields := map[string]any{
		"name":        name,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		s.log.ErrorObj("scheduled job failed", "scheduler_run", fields)
		return err
	}
	s.log.InfoObj("scheduled job completed", "scheduler_run", fields)
	return nil
}

// Start begins running jobs. Jobs inherit cancellation from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()
	s.cron.Start()
}

// Stop halts the scheduler; the returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// JobInfo describes a scheduled job.
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}

// ListJobs returns the registered jobs and their next run times.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for name, id := range s.jobs {
		entry := s.cron.Entry(id)
		infos = append(infos, JobInfo{Name: name, NextRun: entry.Next, LastRun: entry.Prev})
	}
	return infos
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.DebugObj("cron "+msg, "cron", kvMap(keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := kvMap(keysAndValues)
	fields["error"] = err.Error()
	c.log.ErrorObj("cron "+msg, "cron", fields)
}

func kvMap(kv []interface{}) map[string]any {
	out := make(map[string]any, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		out[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return out
}
