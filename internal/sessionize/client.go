// Package sessionize fetches talk objects from a Sessionize JSON endpoint.
package sessionize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultUserAgent = "talkshelf/1.0"
	defaultTimeout   = 15 * time.Second

	// maxBodySize caps a response body; Sessionize exports are far smaller.
	maxBodySize = 10 << 20
)

// Sentinel errors.
var (
	// ErrRequestFailed is returned when the request could not be sent or
	// its body could not be read.
	ErrRequestFailed = errors.New("sessionize request failed")

	// ErrInvalidResponse is returned when the body is not one of the
	// recognised JSON shapes.
	ErrInvalidResponse = errors.New("invalid sessionize response")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sessionize returned status %d", e.StatusCode)
}

// retryable reports whether a later attempt may succeed.
func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Config configures a Client. Zero Timeout, UserAgent and RetryDelay select
// defaults; zero Retries disables retrying.
type Config struct {
	Timeout   time.Duration
	Retries   int // extra attempts after a 429, 5xx or network failure
	UserAgent string

	// RetryDelay is the first backoff delay; it doubles per attempt.
	RetryDelay time.Duration

	// Transport overrides the base transport (tests).
	Transport http.RoundTripper
}

// Client is a Sessionize HTTP client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	userAgent  string
	retries    int
	retryDelay time.Duration
}

// NewClient creates a client from cfg.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(base),
		},
		userAgent:  cfg.UserAgent,
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay,
	}
}

// Fetch downloads url and returns its session objects. Rate limiting, 5xx
// responses and network failures are retried with exponential backoff.
func (c *Client) Fetch(ctx context.Context, url string) ([]map[string]any, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	objects, err := ParseSessions(body)
	if err != nil {
		return nil, err
	}
	return objects, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	delay := c.retryDelay

	for attempt := 0; attempt <= c.retries; attempt++ {
		// Wait before retry (skip on first attempt)
		if attempt > 0 {
			slog.Debug("retrying sessionize fetch", "attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		body, err := c.doSingleRequest(ctx, url)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var statusErr *StatusError
		switch {
		case errors.As(err, &statusErr) && statusErr.retryable():
			lastErr = err
		case errors.Is(err, ErrRequestFailed):
			lastErr = err
		default:
			// Non-retryable error
			return nil, err
		}
	}

	return nil, lastErr
}

func (c *Client) doSingleRequest(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %w", ErrRequestFailed, err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrInvalidResponse, maxBodySize)
	}
	return body, nil
}

// ParseSessions extracts session objects from any of the shapes Sessionize
// serves:
//
//   - a bare array of sessions
//   - an object with a "sessions" array (the "All" endpoint)
//   - an array of groups, each with a "sessions" array
func ParseSessions(body []byte) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidResponse)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	switch trimmed[0] {
	case '[':
		var items []map[string]any
		if err := dec.Decode(&items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		return flattenGroups(items)

	case '{':
		var doc struct {
			Sessions []map[string]any `json:"sessions"`
		}
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		if doc.Sessions == nil {
			return nil, fmt.Errorf("%w: object has no sessions array", ErrInvalidResponse)
		}
		return flattenGroups(doc.Sessions)

	default:
		return nil, fmt.Errorf("%w: expected a JSON array or object", ErrInvalidResponse)
	}
}

// flattenGroups expands group objects ({groupName, sessions}) in place and
// keeps plain session objects as they are.
func flattenGroups(items []map[string]any) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if _, isSession := item["title"]; isSession {
			out = append(out, item)
			continue
		}
		sessions, ok := item["sessions"].([]any)
		if !ok {
			out = append(out, item)
			continue
		}
		for _, s := range sessions {
			obj, ok := s.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: group session is not an object", ErrInvalidResponse)
			}
			out = append(out, obj)
		}
	}
	return out, nil
}
