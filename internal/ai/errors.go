package ai

import (
	"errors"

	"github.com/jonathan/resume-pipeline/internal/llm"
)

// APICallError is a failed call to the text-generation service. Transport and
// quota failures are retried by the workflow engine; blocked prompts are not.
type APICallError struct {
	Message string
	Cause   error
}

func (e *APICallError) Error() string { return wrapMessage("API call failed", e.Message, e.Cause) }
func (e *APICallError) Unwrap() error { return e.Cause }

// NonRetriable reports whether the provider refused the prompt outright.
func (e *APICallError) NonRetriable() bool { return errors.Is(e.Cause, llm.ErrBlocked) }

// ParseError is a response, or an input, that cannot be turned into the
// expected shape. Retrying the same input will not help.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string      { return wrapMessage("parse error", e.Message, e.Cause) }
func (e *ParseError) Unwrap() error      { return e.Cause }
func (e *ParseError) NonRetriable() bool { return true }

func wrapMessage(prefix, msg string, cause error) string {
	s := prefix + ": " + msg
	if cause != nil {
		s += ": " + cause.Error()
	}
	return s
}
