// Package middleware provides HTTP middleware for request identity.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// userIDKey is the context key for storing the caller's user ID.
const userIDKey ContextKey = "userID"

// UserHeader carries the caller's user id. Authentication happens upstream;
// this layer only propagates the identity it is given.
const UserHeader = "X-User-ID"

// UserID creates middleware that reads the user header and adds the parsed id to
// the request context. A malformed header is rejected with 400; a missing one
// leaves the request anonymous.
func UserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(UserHeader))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			http.Error(w, "invalid "+UserHeader+" header", http.StatusBadRequest)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}

// WithUserID returns a copy of ctx carrying id.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// GetUserID extracts the caller's user ID from the request context.
func GetUserID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(userIDKey).(uuid.UUID)
	return id, ok
}
