// Package workflow is a small durable function engine: events are routed to
// registered functions, each function is split into memoized steps, and failed
// runs are retried up to a per-function limit.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-pipeline/internal/logger"
)

// HandlerFunc is the body of a function. It is called once per attempt.
type HandlerFunc func(ctx context.Context, run *Run) (any, error)

// FailureFunc runs once after a run exhausts its attempts or fails permanently.
type FailureFunc func(ctx context.Context, run *Run, cause error) error

// Function binds an event name to a handler.
type Function struct {
	ID        string
	Event     string
	Retries   int
	Handler   HandlerFunc
	OnFailure FailureFunc
}

// Options configures an Engine.
type Options struct {
	// Concurrency bounds the number of runs executing at once.
	Concurrency int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
	// FailureTimeout bounds OnFailure hooks.
	FailureTimeout time.Duration
	Logger         *logger.Logger
}

// Engine routes events from a Queue to registered functions.
type Engine struct {
	store Store
	queue Queue
	opts  Options
	log   *logger.Logger

	mu        sync.RWMutex
	functions map[string]Function
	now       func() time.Time
}

// New creates an engine. Functions must be registered before Start.
func New(store Store, queue Queue, opts Options) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Backoff < 0 {
		opts.Backoff = 0
	}
	if opts.FailureTimeout <= 0 {
		opts.FailureTimeout = 30 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		store:     store,
		queue:     queue,
		opts:      opts,
		log:       log,
		functions: make(map[string]Function),
		now:       time.Now,
	}
}

// Register adds fn. Each event name maps to exactly one function.
func (e *Engine) Register(fn Function) error {
	if fn.ID == "" {
		return errors.New("function id is required")
	}
	if fn.Event == "" {
		return fmt.Errorf("function %s: event name is required", fn.ID)
	}
	if fn.Handler == nil {
		return fmt.Errorf("function %s: handler is required", fn.ID)
	}
	if fn.Retries < 0 {
		return fmt.Errorf("function %s: retries must be >= 0", fn.ID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.functions[fn.Event]; ok {
		return fmt.Errorf("event %s already handled by %s", fn.Event, existing.ID)
	}
	e.functions[fn.Event] = fn
	e.log.Info("registered function", "function", fn.ID, "event", fn.Event, "retries", fn.Retries)
	return nil
}

// MustRegister is Register that panics, for wiring at startup.
func (e *Engine) MustRegister(fns ...Function) {
	for _, fn := range fns {
		if err := e.Register(fn); err != nil {
			panic(err)
		}
	}
}

// Events lists the registered event names.
func (e *Engine) Events() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.functions))
	for name := range e.functions {
		names = append(names, name)
	}
	return names
}

func (e *Engine) lookup(name string) (Function, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn, ok := e.functions[name]
	return fn, ok
}

// Submit publishes an event for asynchronous execution and returns its id.
func (e *Engine) Submit(ctx context.Context, name string, payload any) (uuid.UUID, error) {
	if _, ok := e.lookup(name); !ok {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrUnknownEvent, name)
	}
	ev, err := NewEvent(name, payload)
	if err != nil {
		return uuid.Nil, err
	}
	ev.CreatedAt = e.now().UTC()
	if err := e.queue.Publish(ctx, ev); err != nil {
		return uuid.Nil, fmt.Errorf("failed to publish %s: %w", name, err)
	}
	e.log.Debug("event submitted", "event", name, "event_id", ev.ID)
	return ev.ID, nil
}

// NewEvent builds an event with a fresh id. payload may be raw JSON bytes.
func NewEvent(name string, payload any) (Event, error) {
	var raw json.RawMessage
	switch p := payload.(type) {
	case nil:
		raw = json.RawMessage("{}")
	case json.RawMessage:
		raw = p
	case []byte:
		raw = json.RawMessage(p)
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("failed to marshal %s payload: %w", name, err)
		}
		raw = b
	}
	if !json.Valid(raw) {
		return Event{}, NonRetriable(fmt.Errorf("%s payload is not valid JSON", name))
	}
	return Event{ID: uuid.New(), Name: name, Payload: raw, CreatedAt: time.Now().UTC()}, nil
}

// RunID is the deterministic run id for a (function, event) pair, so a
// redelivered event resumes the same run and reuses its memoized steps.
func RunID(functionID string, eventID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(eventID, []byte(functionID))
}

// Start consumes the queue until ctx is cancelled, executing at most
// Concurrency runs at once. In-flight runs finish before Start returns.
func (e *Engine) Start(ctx context.Context) error {
	g := new(errgroup.Group)
	g.SetLimit(e.opts.Concurrency)

	e.log.Info("workflow engine started", "concurrency", e.opts.Concurrency)
	for {
		ev, err := e.queue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrQueueClosed) {
				break
			}
			e.log.Error("failed to receive event", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		g.Go(func() error {
			if _, err := e.Execute(ctx, ev); err != nil {
				e.log.Warn("run finished with error", "event", ev.Name, "event_id", ev.ID, "error", err)
			}
			return nil
		})
	}

	_ = g.Wait()
	e.log.Info("workflow engine stopped")
	return nil
}

// Execute runs the function registered for ev synchronously, with retries.
// The returned error is the final cause when the run failed.
func (e *Engine) Execute(ctx context.Context, ev Event) (*RunRecord, error) {
	fn, ok := e.lookup(ev.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Name)
	}

	rec, err := e.startRun(ctx, fn, ev)
	if err != nil {
		return nil, err
	}
	switch rec.Status {
	case RunCompleted:
		return rec, nil
	case RunFailed:
		return rec, fmt.Errorf("run %s already failed: %s", rec.ID, deref(rec.Error))
	}

	log := e.log.With("function", fn.ID, "run_id", rec.ID, "event_id", ev.ID)
	maxAttempts := fn.Retries + 1

	var lastErr error
	for attempt := rec.Attempts + 1; attempt <= maxAttempts; attempt++ {
		run := e.newRun(rec.ID, ev, attempt, log)
		out, err := e.invoke(ctx, fn, run)
		if err == nil {
			return e.complete(ctx, rec, attempt, out, log)
		}
		lastErr = err

		msg := err.Error()
		log.Warn("attempt failed", "attempt", attempt, "max_attempts", maxAttempts, "error", err)
		if uerr := e.store.UpdateRun(ctx, rec.ID, RunUpdate{Status: RunRunning, Attempts: attempt, Error: &msg}); uerr != nil {
			log.Error("failed to record attempt", "error", uerr)
		}
		rec.Attempts = attempt

		if ctx.Err() != nil {
			// Left running so a redelivered event resumes from the memoized steps.
			log.Warn("run interrupted", "attempt", attempt)
			return rec, ctx.Err()
		}
		if IsNonRetriable(err) || attempt == maxAttempts {
			break
		}
		if err := e.backoff(ctx, attempt); err != nil {
			log.Warn("run interrupted", "attempt", attempt)
			return rec, err
		}
	}

	return e.fail(ctx, fn, rec, ev, lastErr, log)
}

func (e *Engine) startRun(ctx context.Context, fn Function, ev Event) (*RunRecord, error) {
	id := RunID(fn.ID, ev.ID)
	existing, err := e.store.GetRun(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrRunNotFound) {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	rec := &RunRecord{
		ID:         id,
		FunctionID: fn.ID,
		EventID:    ev.ID,
		EventName:  ev.Name,
		Payload:    ev.Payload,
		Status:     RunRunning,
		CreatedAt:  e.now().UTC(),
	}
	if err := e.store.CreateRun(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return rec, nil
}

func (e *Engine) newRun(id uuid.UUID, ev Event, attempt int, log *logger.Logger) *Run {
	return &Run{
		ID:      id,
		Event:   ev,
		Attempt: attempt,
		store:   e.store,
		engine:  e,
		log:     log.With("attempt", attempt),
		seen:    make(map[string]struct{}),
	}
}

func (e *Engine) invoke(ctx context.Context, fn Function, run *Run) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			run.log.Error("handler panic", "panic", r, "stack", string(debug.Stack()))
			err = &PanicError{Value: r}
		}
	}()
	return fn.Handler(ctx, run)
}

func (e *Engine) complete(ctx context.Context, rec *RunRecord, attempt int, out any, log *logger.Logger) (*RunRecord, error) {
	var raw json.RawMessage
	if out != nil {
		b, err := json.Marshal(out)
		if err != nil {
			log.Warn("failed to encode run output", "error", err)
		} else {
			raw = b
		}
	}
	if err := e.store.UpdateRun(ctx, rec.ID, RunUpdate{Status: RunCompleted, Attempts: attempt, Output: raw}); err != nil {
		return nil, fmt.Errorf("failed to complete run %s: %w", rec.ID, err)
	}
	now := e.now().UTC()
	rec.Status = RunCompleted
	rec.Attempts = attempt
	rec.Output = raw
	rec.Error = nil
	rec.CompletedAt = &now
	log.Info("run completed", "attempts", attempt)
	return rec, nil
}

func (e *Engine) fail(ctx context.Context, fn Function, rec *RunRecord, ev Event, cause error, log *logger.Logger) (*RunRecord, error) {
	if cause == nil {
		cause = errors.New("run exhausted its attempts")
	}
	msg := cause.Error()

	// The caller's context may already be done; failure bookkeeping still has to land.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.FailureTimeout)
	defer cancel()

	if fn.OnFailure != nil {
		run := e.newRun(rec.ID, ev, rec.Attempts, log)
		if err := fn.OnFailure(fctx, run, cause); err != nil {
			log.Error("failure handler error", "error", err)
		}
	}

	if err := e.store.UpdateRun(fctx, rec.ID, RunUpdate{Status: RunFailed, Attempts: rec.Attempts, Error: &msg}); err != nil {
		log.Error("failed to mark run failed", "error", err)
	}
	now := e.now().UTC()
	rec.Status = RunFailed
	rec.Error = &msg
	rec.CompletedAt = &now
	log.Error("run failed", "attempts", rec.Attempts, "error", cause)
	return rec, cause
}

func (e *Engine) backoff(ctx context.Context, attempt int) error {
	d := e.opts.Backoff * time.Duration(attempt)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
