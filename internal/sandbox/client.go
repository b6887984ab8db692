package sandbox

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/resume-pipeline/internal/logger"
)

// maxPDFBytes caps how much of a remote compiler's response is read.
const maxPDFBytes = 20 << 20

// Client compiles markup into a PDF.
type Client interface {
	Compile(ctx context.Context, source string) ([]byte, error)
}

// HTTPClient posts raw markup to a sandbox service's /compile endpoint.
type HTTPClient struct {
	URL        string
	HTTPClient *http.Client
}

// NewHTTPClient creates a client for the sandbox at url.
func NewHTTPClient(url string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{URL: url, HTTPClient: &http.Client{Timeout: timeout}}
}

// Compile sends source as a text/plain body.
func (c *HTTPClient) Compile(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	return doCompile(c.HTTPClient, req)
}

// OnlineClient posts markup as a form field to a hosted compiler.
type OnlineClient struct {
	URL        string
	HTTPClient *http.Client
}

// NewOnlineClient creates a client for a hosted compiler at url.
func NewOnlineClient(url string, timeout time.Duration) *OnlineClient {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &OnlineClient{URL: url, HTTPClient: &http.Client{Timeout: timeout}}
}

// Compile sends source as the form field "text".
func (c *OnlineClient) Compile(ctx context.Context, source string) ([]byte, error) {
	form := url.Values{"text": {source}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return doCompile(c.HTTPClient, req)
}

func doCompile(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("compiler request to %s failed: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read compiler response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &CompileError{
			Message: "remote compiler rejected the source",
			Output:  string(body),
			Status:  resp.StatusCode,
		}
	}
	if len(body) == 0 {
		return nil, &CompileError{Message: "remote compiler returned an empty document", Status: resp.StatusCode}
	}
	return body, nil
}

// Chain tries Primary and falls back to Fallback on any error.
type Chain struct {
	Primary  Client
	Fallback Client
	log      *logger.Logger
}

// NewChain builds a fallback chain. fallback may be nil.
func NewChain(primary, fallback Client, log *logger.Logger) *Chain {
	if log == nil {
		log = logger.Nop()
	}
	return &Chain{Primary: primary, Fallback: fallback, log: log}
}

func (c *Chain) Compile(ctx context.Context, source string) ([]byte, error) {
	pdf, err := c.Primary.Compile(ctx, source)
	if err == nil {
		return pdf, nil
	}
	if c.Fallback == nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, err
	}

	c.log.Warn("primary compiler failed, falling back", "error", err)
	pdf, fbErr := c.Fallback.Compile(ctx, source)
	if fbErr != nil {
		return nil, &ChainError{Primary: err, Fallback: fbErr}
	}
	return pdf, nil
}
