package sandbox

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-pipeline/internal/config"
)

type fakeClient struct {
	pdf   []byte
	err   error
	calls int
	last  string
}

func (f *fakeClient) Compile(_ context.Context, source string) ([]byte, error) {
	f.calls++
	f.last = source
	return f.pdf, f.err
}

func postCompile(h http.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/compile", strings.NewReader(body))
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Success(t *testing.T) {
	fc := &fakeClient{pdf: []byte("%PDF-1.4")}
	rec := postCompile(NewHandler(fc, 0, 0, nil), `\documentclass{article}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
	assert.Equal(t, `\documentclass{article}`, fc.last)
}

func TestHandler_TooLarge(t *testing.T) {
	fc := &fakeClient{pdf: []byte("%PDF")}
	rec := postCompile(NewHandler(fc, 0, 0, nil), strings.Repeat("a", DefaultMaxBodyBytes+1))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "LaTeX source too large", rec.Body.String())
	assert.Zero(t, fc.calls)
}

func TestHandler_AtLimitAccepted(t *testing.T) {
	fc := &fakeClient{pdf: []byte("%PDF")}
	rec := postCompile(NewHandler(fc, 0, 0, nil), strings.Repeat("a", DefaultMaxBodyBytes))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_UnsafeSourceNeverCompiled(t *testing.T) {
	fc := &fakeClient{pdf: []byte("%PDF")}
	rec := postCompile(NewHandler(fc, 0, 0, nil), `\input{/etc/passwd}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `\input`)
	assert.Zero(t, fc.calls)
}

func TestHandler_CompileErrorReturnsCompilerText(t *testing.T) {
	fc := &fakeClient{err: &CompileError{Message: "compiler exited with an error", Output: "! Missing $ inserted.\nl.12"}}
	rec := postCompile(NewHandler(fc, 0, 0, nil), "x")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "! Missing $ inserted.\nl.12", rec.Body.String())
}

func TestHandler_TimeoutReturnsMessage(t *testing.T) {
	root := t.TempDir()
	c := NewCompiler(stubCompiler(t, `exec sleep 5`), nil, root, 200*time.Millisecond)
	rec := postCompile(NewHandler(c, 0, 0, nil), `\documentclass{article}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "compilation timed out after 200ms", rec.Body.String())
	assertEmptyDir(t, root)
}

func TestHandler_SilentCompilerFailureIsNotEmpty(t *testing.T) {
	fc := &fakeClient{err: &CompileError{Message: "PDF was not generated", Output: "  \n"}}
	rec := postCompile(NewHandler(fc, 0, 0, nil), "x")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "PDF was not generated", rec.Body.String())
}

func TestHandler_ResourceFailure(t *testing.T) {
	fc := &fakeClient{err: errors.New("failed to create working directory: disk full")}
	rec := postCompile(NewHandler(fc, 0, 0, nil), "x")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Compilation failed", rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "disk full")
}

func TestServer_EndToEndWithStubCompiler(t *testing.T) {
	root := t.TempDir()
	srv := NewServer(config.SandboxConfig{
		Binary:       stubCompiler(t, `printf '%%PDF-1.4 ok' > main.pdf`),
		Args:         []string{"main.tex"},
		TempRoot:     root,
		Timeout:      config.Duration(2 * time.Second),
		MaxBodyBytes: DefaultMaxBodyBytes,
	}, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/compile", "text/plain", strings.NewReader(`\documentclass{article}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "%PDF-1.4 ok", string(body))
	assertEmptyDir(t, root)

	notFound, err := http.Get(ts.URL + "/compile")
	require.NoError(t, err)
	notFound.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, notFound.StatusCode)

	health, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}
