package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Step is one forward action with its compensating undo.
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Runner executes steps in order. When a step fails, every completed step is
// compensated in reverse order and the failure is returned joined with any
// compensation errors.
type Runner struct {
	Name   string
	Logger *slog.Logger
}

func (r Runner) Run(ctx context.Context, steps ...Step) error {
	done := make([]Step, 0, len(steps))
	for _, step := range steps {
		if err := step.Execute(ctx); err != nil {
			failure := fmt.Errorf("%s: %w", step.Name, err)
			r.log().WarnContext(ctx, "saga step failed, compensating", "saga", r.Name, "step", step.Name, "error", err)
			return errors.Join(failure, r.compensate(ctx, done))
		}
		done = append(done, step)
	}
	return nil
}

func (r Runner) compensate(ctx context.Context, done []Step) error {
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			r.log().ErrorContext(ctx, "saga compensation failed", "saga", r.Name, "step", step.Name, "error", err)
			errs = append(errs, fmt.Errorf("compensate %s: %w", step.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (r Runner) log() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
