package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/jonathan/resume-pipeline/internal/workflow"
)

// SSEWriter helps write Server-Sent Events
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends an SSE event
func (s *SSEWriter) WriteEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteError sends an error event
func (s *SSEWriter) WriteError(message string) {
	s.WriteEvent("error", map[string]string{"error": message}) //nolint:errcheck
}

// WriteComplete sends a completion event
func (s *SSEWriter) WriteComplete(runID string, status workflow.RunStatus) {
	s.WriteEvent("complete", map[string]string{ //nolint:errcheck
		"run_id": runID,
		"status": string(status),
	})
}

// handleRunStream streams a run's step progress until it completes or fails.
// A "progress" event is sent whenever the set of finished steps changes.
func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	// Fail fast on unknown runs before switching to an event stream.
	first, err := s.runStatus(r, id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()

	var lastCompleted []string
	current := first
	for {
		var completed []string
		if current.Progress != nil {
			completed = current.Progress.Completed
		}
		if lastCompleted == nil || !slices.Equal(completed, lastCompleted) {
			if err := sse.WriteEvent("progress", current); err != nil {
				return
			}
			lastCompleted = append([]string{}, completed...)
		}
		if current.Run.Status != workflow.RunRunning {
			sse.WriteComplete(id.String(), current.Run.Status)
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		current, err = s.runStatus(r, id)
		if err != nil {
			sse.WriteError(err.Error())
			return
		}
	}
}
