// Package schedule runs the periodic sweeps on a gocron scheduler.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"resortops/internal/app/sweep"
)

// Sweep is one periodic pass.
type Sweep interface {
	Run(ctx context.Context, now time.Time) (sweep.Result, error)
}

type Job struct {
	Name  string
	Sweep Sweep
}

type Options struct {
	Interval time.Duration
	// Locker, when set, keeps each tick on a single node.
	Locker gocron.Locker
	Logger *slog.Logger
	Now    func() time.Time
}

type Scheduler struct {
	inner  gocron.Scheduler
	logger *slog.Logger
	now    func() time.Time
	cancel context.CancelFunc
}

// New registers every job to run every opts.Interval in singleton mode: a
// tick that is still running when the next one is due skips it.
func New(ctx context.Context, opts Options, jobs ...Job) (*Scheduler, error) {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	schedOpts := []gocron.SchedulerOption{gocron.WithLocation(time.UTC)}
	if opts.Locker != nil {
		schedOpts = append(schedOpts, gocron.WithDistributedLocker(opts.Locker))
	}
	inner, err := gocron.NewScheduler(schedOpts...)
	if err != nil {
		return nil, fmt.Errorf("schedule: create scheduler: %w", err)
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Scheduler{inner: inner, logger: logger, now: now, cancel: cancel}
	for _, job := range jobs {
		_, err := inner.NewJob(
			gocron.DurationJob(opts.Interval),
			gocron.NewTask(func() { s.tick(runCtx, job) }),
			gocron.WithName(job.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			cancel()
			_ = inner.Shutdown()
			return nil, fmt.Errorf("schedule: register %s: %w", job.Name, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.inner.Start()
}

// Shutdown cancels running sweeps and waits for them to return.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	return s.inner.Shutdown()
}

// RunOnce runs every registered job immediately.
func (s *Scheduler) RunOnce() error {
	for _, j := range s.inner.Jobs() {
		if err := j.RunNow(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) tick(ctx context.Context, job Job) {
	start := s.now()
	res, err := job.Sweep.Run(ctx, start.UTC())
	attrs := []any{
		"job", job.Name,
		"scanned", res.Scanned,
		"changed", res.Changed,
		"failures", res.Failures,
		"duration", time.Since(start),
	}
	switch {
	case err != nil:
		s.logger.ErrorContext(ctx, "sweep failed", append(attrs, "error", err)...)
	case res.Changed > 0 || res.Failures > 0:
		s.logger.InfoContext(ctx, "sweep completed", attrs...)
	default:
		s.logger.DebugContext(ctx, "sweep completed", attrs...)
	}
}
