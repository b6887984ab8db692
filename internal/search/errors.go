package search

import (
	"fmt"
	"strings"
)

// ProviderError reports a failed provider call. Every provider failure, 4xx
// included, is retriable, so Cause is kept for logging but not unwrapped.
type ProviderError struct {
	Provider string
	Cause    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s search failed: %v", e.Provider, e.Cause)
}

// redact removes credentials that appear in URLs embedded in error text.
func redact(err error, secrets ...string) error {
	msg := err.Error()
	changed := false
	for _, s := range secrets {
		if s != "" && strings.Contains(msg, s) {
			msg = strings.ReplaceAll(msg, s, "***")
			changed = true
		}
	}
	if !changed {
		return err
	}
	return &redactedError{msg: msg, cause: err}
}

type redactedError struct {
	msg   string
	cause error
}

func (e *redactedError) Error() string { return e.msg }

// Unwrap keeps the original error reachable for errors.As.
func (e *redactedError) Unwrap() error { return e.cause }
