package sandbox

import (
	"errors"
	"fmt"
	"strings"
)

// UnsafeInputError is returned when the markup source uses a command that could
// reach the file system or a shell. It is never retried.
type UnsafeInputError struct {
	Command string
}

func (e *UnsafeInputError) Error() string {
	return fmt.Sprintf("unsafe LaTeX command detected: %s", e.Command)
}

// NonRetriable marks unsafe input as permanent.
func (e *UnsafeInputError) NonRetriable() bool { return true }

// CompileError is a compiler failure. Output holds the compiler's own text.
type CompileError struct {
	Message string
	Output  string
	// Status is the HTTP status reported by a remote compiler, 0 for local runs.
	Status int
	Cause  error
}

func (e *CompileError) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Output != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Output)
	}
	if e.Cause != nil {
		return fmt.Sprintf("LaTeX compilation error: %s: %v", msg, e.Cause)
	}
	return fmt.Sprintf("LaTeX compilation error: %s", msg)
}

func (e *CompileError) Unwrap() error {
	return e.Cause
}

// Text is the compiler's output, or the failure message when the compiler
// printed nothing, as when it was killed at the timeout.
func (e *CompileError) Text() string {
	if strings.TrimSpace(e.Output) != "" {
		return e.Output
	}
	return e.Message
}

// Permanent reports whether the remote compiler rejected the source itself,
// as opposed to being unreachable or overloaded.
func (e *CompileError) Permanent() bool {
	return e.Status == 400 || e.Status == 413
}

// ChainError reports that both the primary and the fallback compiler failed.
type ChainError struct {
	Primary  error
	Fallback error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("primary compiler: %v; fallback compiler: %v", e.Primary, e.Fallback)
}

func (e *ChainError) Unwrap() []error {
	return []error{e.Primary, e.Fallback}
}

// NonRetriable is true when both compilers rejected the source. A branch that
// tripped the sanitizer makes the whole chain permanent on its own.
func (e *ChainError) NonRetriable() bool {
	return isPermanent(e.Primary) && isPermanent(e.Fallback)
}

func isPermanent(err error) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Permanent()
	}
	var ue *UnsafeInputError
	return errors.As(err, &ue)
}
