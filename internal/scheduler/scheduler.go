// Package scheduler runs the periodic jobs of the server: ICS export and
// subscription refresh.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "calsuite/internal/log"
)

// Job is one scheduled task. Jobs receive the scheduler's context.
type Job func(ctx context.Context) error

type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

// New creates a scheduler evaluating specs in loc. If loc is nil, time.Local
// is used.
func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		// A job still running when its next tick arrives is skipped.
		cron: cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:  context.Background(),
	}
}

// Add registers job under a standard five-field spec.
func (s *Scheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.run(name, job)
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	appLog.Info("job scheduled", "job", name, "spec", spec)
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	start := time.Now()
	if err := job(s.ctx); err != nil {
		appLog.Error("job failed", err, "job", name, "took", time.Since(start))
		return
	}
	appLog.Debug("job done", "job", name, "took", time.Since(start))
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start runs the jobs until ctx is canceled, then waits for running jobs to
// finish.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	appLog.Info("scheduler started", "jobs", s.Len())

	<-ctx.Done()

	stopped := s.cron.Stop()
	<-stopped.Done()
	appLog.Info("scheduler stopped")
}
