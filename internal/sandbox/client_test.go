package sandbox

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-pipeline/internal/workflow"
)

func TestHTTPClient_PostsRawSource(t *testing.T) {
	var gotBody, gotType string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody, gotType = string(b), r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-primary"))
	}))
	defer ts.Close()

	pdf, err := NewHTTPClient(ts.URL, time.Second).Compile(context.Background(), `\documentclass{article}`)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-primary", string(pdf))
	assert.Equal(t, `\documentclass{article}`, gotBody)
	assert.Equal(t, "text/plain", gotType)
}

func TestHTTPClient_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "! Undefined control sequence.", http.StatusBadRequest)
	}))
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL, time.Second).Compile(context.Background(), "x")
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusBadRequest, ce.Status)
	assert.Contains(t, ce.Output, "Undefined control sequence")
	assert.True(t, ce.Permanent())
}

func TestOnlineClient_PostsForm(t *testing.T) {
	var text string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		text = r.PostForm.Get("text")
		_, _ = w.Write([]byte("%PDF-online"))
	}))
	defer ts.Close()

	pdf, err := NewOnlineClient(ts.URL, time.Second).Compile(context.Background(), `a & b \\ c`)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-online", string(pdf))
	assert.Equal(t, `a & b \\ c`, text)
}

func TestChain_FallsBackWhenPrimaryUnreachable(t *testing.T) {
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-fallback"))
	}))
	defer fallback.Close()

	// Closed server: connection refused.
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	chain := NewChain(NewHTTPClient(deadURL, time.Second), NewOnlineClient(fallback.URL, time.Second), nil)
	pdf, err := chain.Compile(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-fallback", string(pdf))
}

func TestChain_PrimarySuccessSkipsFallback(t *testing.T) {
	primary := &fakeClient{pdf: []byte("%PDF-primary")}
	fallback := &fakeClient{pdf: []byte("%PDF-fallback")}

	pdf, err := NewChain(primary, fallback, nil).Compile(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-primary", string(pdf))
	assert.Zero(t, fallback.calls)
}

func TestChain_BothFail(t *testing.T) {
	tests := []struct {
		name      string
		primary   error
		fallback  error
		permanent bool
	}{
		{
			name:      "both rejected the source",
			primary:   &CompileError{Status: 400, Output: "bad"},
			fallback:  &CompileError{Status: 400, Output: "bad"},
			permanent: true,
		},
		{
			name:     "fallback overloaded",
			primary:  &CompileError{Status: 400, Output: "bad"},
			fallback: &CompileError{Status: 503},
		},
		{
			name:     "primary unreachable",
			primary:  context.DeadlineExceeded,
			fallback: &CompileError{Status: 400},
		},
		{
			name:      "primary refused unsafe input",
			primary:   &UnsafeInputError{Command: `\write18`},
			fallback:  &CompileError{Status: 503},
			permanent: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := NewChain(&fakeClient{err: tt.primary}, &fakeClient{err: tt.fallback}, nil)
			_, err := chain.Compile(context.Background(), "x")
			var chainErr *ChainError
			require.ErrorAs(t, err, &chainErr)
			assert.Equal(t, tt.permanent, workflow.IsNonRetriable(err))
		})
	}
}
