package ratelimit

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jonathan/resume-pipeline/internal/logger"
)

// Middleware rejects requests over the limit with 429 and sets the
// X-RateLimit-* headers on every limited response.
func Middleware(l *Limiter, log *logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, info := l.Allow(ClientID(r), r.URL.Path, r.Method)
			setHeaders(w, info)
			if !allowed {
				log.Warn("rate limit exceeded", "path", r.URL.Path, "limit", info.Limit,
					"reset", info.ResetTime.Format(time.RFC3339))
				writeLimited(w, info)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr; X-Forwarded-For is not trusted.
func ClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func setHeaders(w http.ResponseWriter, info Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

func writeLimited(w http.ResponseWriter, info Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}
	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(response)
}
