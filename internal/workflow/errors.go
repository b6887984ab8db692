package workflow

import (
	"errors"
	"fmt"
)

// ErrUnknownEvent is returned when no function is registered for an event name.
var ErrUnknownEvent = errors.New("no function registered for event")

// ErrQueueClosed is returned by a queue after Close.
var ErrQueueClosed = errors.New("event queue closed")

// NonRetriableError wraps an error that must fail the run without further attempts.
type NonRetriableError struct {
	Cause error
}

func (e *NonRetriableError) Error() string {
	return fmt.Sprintf("non-retriable: %v", e.Cause)
}

func (e *NonRetriableError) Unwrap() error {
	return e.Cause
}

// NonRetriable reports that the error is permanent.
func (e *NonRetriableError) NonRetriable() bool { return true }

// NonRetriable marks err as permanent. Returns nil for a nil error.
func NonRetriable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetriableError{Cause: err}
}

// permanent is implemented by errors from other packages that must not be retried
// (unsafe input, parse failures, invalid payloads).
type permanent interface {
	NonRetriable() bool
}

// IsNonRetriable reports whether any error in err's chain is marked permanent.
// A wrapper answering false does not hide a permanent cause, and every branch
// of a joined error is searched.
func IsNonRetriable(err error) bool {
	for err != nil {
		if p, ok := err.(permanent); ok && p.NonRetriable() {
			return true
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, e := range u.Unwrap() {
				if IsNonRetriable(e) {
					return true
				}
			}
			return false
		case interface{ Unwrap() error }:
			err = u.Unwrap()
		default:
			return false
		}
	}
	return false
}

// StepError records which step of a run failed.
type StepError struct {
	Step  string
	Cause error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Cause)
}

func (e *StepError) Unwrap() error {
	return e.Cause
}

// PanicError carries a recovered panic out of a function handler.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
