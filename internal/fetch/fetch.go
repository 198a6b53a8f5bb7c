// Package fetch provides bounded HTTP fetching of images and scripts.
// This package centralizes outbound GET logic used by remediation and auditing.
package fetch

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; WCAGCheck/1.0)"

// DefaultMaxBytes caps the size of a fetched body.
const DefaultMaxBytes int64 = 20 << 20

// Result holds the raw content from a URL fetch.
type Result struct {
	URL         string
	Body        []byte
	ContentType string
	MediaType   string
	StatusCode  int
}

// Text returns the body as a string.
func (r *Result) Text() string {
	return string(r.Body)
}

// Error describes a failed fetch; Cause is nil for status and size rejections.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options bounds a fetch. Zero values fall back to the package defaults.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	MaxBytes  int64
	// Client overrides the HTTP client; Timeout is ignored when set.
	Client *http.Client
}

// DefaultOptions returns the package defaults.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
		MaxBytes:  DefaultMaxBytes,
	}
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

// URL retrieves content from a URL and requires a 200 response.
func URL(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	result, err := get(ctx, urlStr, opts)
	if err != nil {
		return result, err
	}
	if result.StatusCode != http.StatusOK {
		return result, fail(urlStr, fmt.Sprintf("HTTP status %d", result.StatusCode), nil)
	}
	return result, nil
}

// Image retrieves raw image bytes. Any 2xx or 3xx final status is accepted,
// matching how browsers treat image responses.
func Image(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	result, err := get(ctx, urlStr, opts)
	if err != nil {
		return result, err
	}
	if result.StatusCode < 200 || result.StatusCode >= 400 {
		return result, fail(urlStr, fmt.Sprintf("HTTP status %d", result.StatusCode), nil)
	}
	if len(result.Body) == 0 {
		return result, fail(urlStr, "empty response body", nil)
	}
	return result, nil
}

func fail(urlStr, message string, cause error) *Error {
	return &Error{URL: urlStr, Message: message, Cause: cause}
}

// get performs one bounded GET. The status code is left for callers to judge.
func get(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fail(urlStr, "invalid URL", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fail(urlStr, "failed to create request", err)
	}
	req.Header.Set("User-Agent", cmp.Or(opts.UserAgent, DefaultUserAgent))
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := opts.client().Do(req)
	if err != nil {
		return nil, fail(urlStr, "HTTP request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	limit := opts.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	switch {
	case err != nil:
		return nil, fail(urlStr, "failed to read response body", err)
	case int64(len(body)) > limit:
		return nil, fail(urlStr, fmt.Sprintf("response body exceeds %d bytes", limit), nil)
	}

	contentType := resp.Header.Get("Content-Type")
	return &Result{
		URL:         urlStr,
		Body:        body,
		ContentType: contentType,
		MediaType:   MediaType(contentType),
		StatusCode:  resp.StatusCode,
	}, nil
}

// MediaType strips parameters from a Content-Type value and lower-cases it.
func MediaType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
