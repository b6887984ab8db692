package pipeline

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/resume-pipeline/internal/workflow"
)

// DocumentUploaded is the payload of document/uploaded.
type DocumentUploaded struct {
	DocumentID uuid.UUID `json:"documentId" validate:"required"`
	RawText    string    `json:"rawText,omitempty"`
	FileURL    string    `json:"fileUrl,omitempty" validate:"omitempty,url"`
}

// JobEnhance is the payload of job/enhance.
type JobEnhance struct {
	DocumentID     uuid.UUID `json:"documentId" validate:"required"`
	JobID          uuid.UUID `json:"jobId" validate:"required"`
	JobDescription string    `json:"jobDescription" validate:"required"`
	JobTitle       string    `json:"jobTitle,omitempty"`
}

// CompileRequested is the payload of compile/requested.
type CompileRequested struct {
	DocumentID uuid.UUID `json:"documentId" validate:"required"`
}

// SearchRequested is the payload of search/requested.
type SearchRequested struct {
	Query    string   `json:"query" validate:"required"`
	Location string   `json:"location"`
	Queries  []string `json:"queries,omitempty"`
}

// ValidationError reports missing or malformed input. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// NonRetriable marks validation failures as permanent.
func (e *ValidationError) NonRetriable() bool { return true }

var validate = validator.New()

// validateStruct runs struct-tag validation and reports the first failing field.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: lowerFirst(fe.Field()), Message: fmt.Sprintf("failed on '%s'", fe.Tag())}
	}
	return &ValidationError{Message: err.Error()}
}

// decodePayload unmarshals and validates an event payload.
func decodePayload(run *workflow.Run, v any) error {
	if err := run.Event.Decode(v); err != nil {
		return &ValidationError{Field: "payload", Message: err.Error()}
	}
	return validateStruct(v)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
