// Package httpx provides a bounded-retry HTTP fetch primitive shared by
// every remote integration in postpilot.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultAttemptTimeout = 20 * time.Second
	defaultMaxRetries     = 2
	defaultBackoffBase    = 250 * time.Millisecond

	maxErrorBodyBytes = 512
)

// Options controls retry behavior for a single fetch.
type Options struct {
	// Client is the underlying HTTP client. The per-attempt timeout is
	// applied via context, so the client itself needs no Timeout.
	Client *http.Client

	// AttemptTimeout bounds each individual attempt.
	AttemptTimeout time.Duration

	// MaxRetries is the number of retries after the first attempt, so
	// MaxRetries=2 means up to 3 attempts total.
	MaxRetries int

	// BackoffBase is the wait before the first retry; each subsequent
	// retry doubles it.
	BackoffBase time.Duration

	// Classify overrides the status-code classification. It is only
	// consulted for non-2xx responses; returning true marks the
	// response retryable. Nil means RetryableStatus.
	Classify func(statusCode int) bool
}

// Default returns the standard options: 20s per attempt, 2 retries,
// 250ms exponential backoff.
func Default() Options {
	return Options{
		AttemptTimeout: defaultAttemptTimeout,
		MaxRetries:     defaultMaxRetries,
		BackoffBase:    defaultBackoffBase,
	}
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// RetryableStatus reports whether an HTTP status code indicates a
// transient condition worth retrying: 429 and all 5xx.
func RetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// Fetch performs a GET against rawURL with bounded retry. A malformed
// URL is rejected before any network call. A 200 with an empty body is
// a success with empty content.
func Fetch(ctx context.Context, rawURL string, opts Options) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL %q: scheme must be http or https", rawURL)
	}

	return Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	}, opts)
}

// Do performs a request built by build with bounded retry. The builder
// is invoked once per attempt so request bodies are safe to consume.
func Do(ctx context.Context, build func(ctx context.Context) (*http.Request, error), opts Options) ([]byte, error) {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = defaultAttemptTimeout
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = defaultBackoffBase
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}

	attempts := opts.MaxRetries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := opts.BackoffBase << (attempt - 1)
			slog.Debug("retrying after backoff", "attempt", attempt, "wait", wait)
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, retryable, err := doAttempt(ctx, client, build, opts)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		slog.Debug("attempt failed", "attempt", attempt, "error", err)
	}

	return nil, fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}

// doAttempt runs one attempt under its own deadline and classifies the
// outcome as retryable or fatal.
func doAttempt(ctx context.Context, client *http.Client, build func(ctx context.Context) (*http.Request, error), opts Options) (body []byte, retryable bool, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, opts.AttemptTimeout)
	defer cancel()

	req, err := build(attemptCtx)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		// A caller-driven cancellation is final; a per-attempt deadline
		// or network-level failure is transient.
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, true, fmt.Errorf("attempt timed out after %s: %w", opts.AttemptTimeout, err)
		}
		return nil, true, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		statusErr := &StatusError{Code: resp.StatusCode, Body: string(snippet)}
		classify := opts.Classify
		if classify == nil {
			classify = RetryableStatus
		}
		return nil, classify(resp.StatusCode), statusErr
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	return body, false, nil
}

// sleep blocks for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
