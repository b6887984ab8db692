package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/resume-pipeline/internal/lifecycle"
	"github.com/jonathan/resume-pipeline/internal/pipeline"
	"github.com/jonathan/resume-pipeline/internal/types"
	"github.com/jonathan/resume-pipeline/internal/workflow"
)

// ErrBadRequest indicates a malformed request (path parameter, body or query).
type ErrBadRequest struct {
	Field   string
	Message string
}

func (e *ErrBadRequest) Error() string {
	return fmt.Sprintf("bad request: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		badReq     *ErrBadRequest
		validation *pipeline.ValidationError
		transition *lifecycle.TransitionError
	)
	switch {
	case errors.As(err, &badReq), errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &transition):
		return http.StatusConflict
	case errors.Is(err, types.ErrNotFound), errors.Is(err, workflow.ErrRunNotFound),
		errors.Is(err, workflow.ErrUnknownEvent):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
