package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUserID(t *testing.T) {
	valid := uuid.New()

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantID     *uuid.UUID
	}{
		{name: "no header", header: "", wantStatus: http.StatusOK},
		{name: "valid id", header: valid.String(), wantStatus: http.StatusOK, wantID: &valid},
		{name: "padded id", header: "  " + valid.String() + " ", wantStatus: http.StatusOK, wantID: &valid},
		{name: "malformed", header: "not-a-uuid", wantStatus: http.StatusBadRequest},
		{name: "nil uuid", header: uuid.Nil.String(), wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				got    uuid.UUID
				gotOK  bool
				called bool
			)
			handler := UserID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				got, gotOK = GetUserID(r)
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(UserHeader, tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				assert.False(t, called)
				return
			}
			assert.True(t, called)
			if tt.wantID == nil {
				assert.False(t, gotOK)
				return
			}
			assert.True(t, gotOK)
			assert.Equal(t, *tt.wantID, got)
		})
	}
}

func TestWithUserID(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUserID(req.Context(), id))

	got, ok := GetUserID(req)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}
