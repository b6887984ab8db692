package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-pipeline/internal/logger"
)

// Run is the execution handle passed to a function handler for one attempt.
type Run struct {
	ID      uuid.UUID
	Event   Event
	Attempt int

	store  Store
	engine *Engine
	log    *logger.Logger
	seen   map[string]struct{}
}

// Logger returns a logger scoped to this run.
func (r *Run) Logger() *logger.Logger {
	return r.log
}

// Store returns the store holding this run's memoized step outputs.
func (r *Run) Store() Store {
	return r.store
}

// Step runs fn at most once per (run, name). When a previous attempt of the
// same run already recorded an output for name, that output is decoded and
// returned without calling fn. Outputs must round-trip through JSON.
func Step[T any](ctx context.Context, run *Run, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	if run == nil {
		return out, fmt.Errorf("step %s: nil run", name)
	}
	if _, dup := run.seen[name]; dup {
		return out, NonRetriable(fmt.Errorf("step name %q used twice in one run", name))
	}
	run.seen[name] = struct{}{}

	raw, ok, err := run.store.LoadStep(ctx, run.ID, name)
	if err != nil {
		return out, &StepError{Step: name, Cause: fmt.Errorf("failed to load memoized output: %w", err)}
	}
	if ok {
		if err := json.Unmarshal(raw, &out); err != nil {
			return out, &StepError{Step: name, Cause: NonRetriable(fmt.Errorf("failed to decode memoized output: %w", err))}
		}
		run.log.Debug("step memoized", "step", name)
		return out, nil
	}

	start := time.Now()
	out, err = fn(ctx)
	if err != nil {
		return out, &StepError{Step: name, Cause: err}
	}

	raw, err = json.Marshal(out)
	if err != nil {
		return out, &StepError{Step: name, Cause: NonRetriable(fmt.Errorf("failed to encode output: %w", err))}
	}
	if err := run.store.SaveStep(ctx, run.ID, name, raw); err != nil {
		return out, &StepError{Step: name, Cause: fmt.Errorf("failed to save output: %w", err)}
	}
	run.log.Debug("step completed", "step", name, "duration", time.Since(start))
	return out, nil
}

// Do is Step for side effects without a useful result.
func Do(ctx context.Context, run *Run, name string, fn func(ctx context.Context) error) error {
	_, err := Step(ctx, run, name, func(ctx context.Context) (bool, error) {
		if err := fn(ctx); err != nil {
			return false, err
		}
		return true, nil
	})
	return err
}

// Sleep is a memoized delay: once it has elapsed for a run, retries skip it.
func Sleep(ctx context.Context, run *Run, name string, d time.Duration) error {
	return Do(ctx, run, name, func(ctx context.Context) error {
		if d <= 0 {
			return nil
		}
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// Send submits a follow-up event exactly once per (run, name).
func Send(ctx context.Context, run *Run, name, eventName string, payload any) (uuid.UUID, error) {
	return Step(ctx, run, name, func(ctx context.Context) (uuid.UUID, error) {
		if run.engine == nil {
			return uuid.Nil, fmt.Errorf("run has no engine to submit %s", eventName)
		}
		return run.engine.Submit(ctx, eventName, payload)
	})
}
