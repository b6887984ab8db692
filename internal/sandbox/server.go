package sandbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jonathan/resume-pipeline/internal/config"
	"github.com/jonathan/resume-pipeline/internal/logger"
	"github.com/jonathan/resume-pipeline/internal/server/ratelimit"
)

// Server is the standalone compiler service.
type Server struct {
	httpServer  *http.Server
	rateLimiter *ratelimit.Limiter
	log         *logger.Logger
}

// NewServer wires POST /compile and GET /health.
func NewServer(cfg config.SandboxConfig, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	compiler := NewCompiler(cfg.Binary, cfg.Args, cfg.TempRoot, cfg.Timeout.Std())
	handler := NewHandler(compiler, cfg.MaxBodyBytes, cfg.MaxConcurrent, log.With("component", "sandbox"))

	mux := http.NewServeMux()
	mux.Handle("POST /compile", handler)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		textResponse(w, http.StatusOK, "ok")
	})

	s := &Server{
		rateLimiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
		log:         log,
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      ratelimit.Middleware(s.rateLimiter, log)(withLogging(log, mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Timeout.Std() + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer s.rateLimiter.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("LaTeX sandbox listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("sandbox server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("sandbox shutdown failed: %w", err)
	}
	s.log.Info("LaTeX sandbox stopped")
	return nil
}

func withLogging(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info(fmt.Sprintf("[%s] %s", r.Method, r.URL.Path), "remote", r.RemoteAddr, "duration", time.Since(start))
	})
}
