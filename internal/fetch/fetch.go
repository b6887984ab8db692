// Package fetch provides bounded HTTP GETs and HTML-to-text processing shared by
// document ingestion and the job-search providers.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultMaxBytes  = 20 << 20
	DefaultUserAgent = "Mozilla/5.0 (compatible; ResumePipeline/1.0)"
)

var (
	ErrInvalidURL = errors.New("invalid URL")
	ErrTooLarge   = errors.New("response too large")
	ErrStatus     = errors.New("unexpected HTTP status")
)

// Result is a fetched response body.
type Result struct {
	URL         string
	Body        []byte
	ContentType string
	StatusCode  int
}

// Error describes a failed fetch. Err is one of the sentinel errors above or
// the underlying transport or decoding error.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NonRetriable reports whether repeating the request is pointless: a bad URL,
// an oversized body, or a 4xx other than 408 and 429.
func (e *Error) NonRetriable() bool {
	if errors.Is(e.Err, ErrInvalidURL) || errors.Is(e.Err, ErrTooLarge) {
		return true
	}
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// Options configures a fetch. The zero value is usable.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	MaxBytes  int64
	Client    *http.Client
}

// DefaultOptions returns the options used for document downloads.
func DefaultOptions() *Options {
	return &Options{Timeout: DefaultTimeout, UserAgent: DefaultUserAgent, MaxBytes: DefaultMaxBytes}
}

func (o *Options) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (o *Options) maxBytes() int64 {
	if o.MaxBytes > 0 {
		return o.MaxBytes
	}
	return DefaultMaxBytes
}

// URL GETs rawURL and reads at most MaxBytes of the body. Any 2xx status
// succeeds; other statuses return the result together with an *Error.
func URL(ctx context.Context, rawURL string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, &Error{URL: rawURL, Err: ErrInvalidURL}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := opts.client().Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	limit := opts.maxBytes()
	if resp.ContentLength > limit {
		return nil, &Error{URL: rawURL, Err: ErrTooLarge}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, &Error{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > limit {
		return nil, &Error{URL: rawURL, Err: ErrTooLarge}
	}

	result := &Result{
		URL:         rawURL,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, &Error{URL: rawURL, StatusCode: resp.StatusCode, Err: ErrStatus}
	}
	return result, nil
}

// JSON fetches rawURL and decodes the body into out.
func JSON(ctx context.Context, rawURL string, opts *Options, out any) error {
	result, err := URL(ctx, rawURL, opts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(result.Body, out); err != nil {
		return &Error{URL: rawURL, Err: fmt.Errorf("failed to decode JSON response: %w", err)}
	}
	return nil
}
