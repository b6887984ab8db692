package sandbox

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jonathan/resume-pipeline/internal/logger"
)

// Handler serves POST /compile.
type Handler struct {
	compiler     Client
	maxBodyBytes int64
	slots        *semaphore.Weighted
	log          *logger.Logger
}

// NewHandler creates a Handler. maxConcurrent bounds simultaneous compiler
// processes; 0 means unbounded.
func NewHandler(c Client, maxBodyBytes int64, maxConcurrent int, log *logger.Logger) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	if log == nil {
		log = logger.Nop()
	}
	h := &Handler{compiler: c, maxBodyBytes: maxBodyBytes, log: log}
	if maxConcurrent > 0 {
		h.slots = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.log.Warn("rejected oversized source", "limit", h.maxBodyBytes)
			textResponse(w, http.StatusRequestEntityTooLarge, "LaTeX source too large")
			return
		}
		textResponse(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	source := string(body)

	// Callers sanitize before dispatch; checked again so the compiler never sees unsafe input.
	if err := Sanitize(source); err != nil {
		h.log.Warn("rejected unsafe source", "error", err)
		textResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.slots != nil {
		if err := h.slots.Acquire(r.Context(), 1); err != nil {
			textResponse(w, http.StatusServiceUnavailable, "Compilation failed")
			return
		}
		defer h.slots.Release(1)
	}

	start := time.Now()
	pdf, err := h.compiler.Compile(r.Context(), source)
	if err != nil {
		var ce *CompileError
		if errors.As(err, &ce) {
			h.log.Info("compilation failed", "error", ce.Message, "duration", time.Since(start))
			textResponse(w, http.StatusBadRequest, ce.Text())
			return
		}
		h.log.Error("compilation resource failure", "error", err)
		textResponse(w, http.StatusInternalServerError, "Compilation failed")
		return
	}

	h.log.Info("compiled", "bytes", len(pdf), "duration", time.Since(start))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func textResponse(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
