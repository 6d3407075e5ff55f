package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/platewise/resolver/internal/domain"
)

// correlationHeaders are checked in order for a backend request id to
// surface in error messages.
var correlationHeaders = []string{"X-Request-ID", "X-Correlation-ID", "X-Amzn-Trace-Id"}

// StatusError is a non-2xx response that was not retried away.
type StatusError struct {
	Status        int
	Body          string
	CorrelationID string
}

func (e *StatusError) Error() string {
	if e.CorrelationID != "" {
		return fmt.Sprintf("unexpected status %d (correlation id %s): %s", e.Status, e.CorrelationID, e.Body)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// Retryable reports whether the status indicates a transient condition.
func (e *StatusError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Client is a GET client with bounded retry: 429 and 5xx are retried with
// exponential backoff plus jitter, any other non-2xx fails immediately.
type Client struct {
	httpClient  *http.Client
	maxAttempts int
	baseBackoff time.Duration
	userAgent   string
}

// New creates a client. attemptTimeout bounds a single attempt; the caller's
// ctx still wins when it is cancelled first.
func New(attemptTimeout time.Duration, maxAttempts int, userAgent string) *Client {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Client{
		httpClient:  &http.Client{Timeout: attemptTimeout},
		maxAttempts: maxAttempts,
		baseBackoff: 200 * time.Millisecond,
		userAgent:   userAgent,
	}
}

// Get fetches reqURL and returns the response body.
func (c *Client) Get(ctx context.Context, reqURL string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
				return nil, err
			}
		}

		body, err := c.do(ctx, reqURL)
		if err == nil {
			return body, nil
		}

		// Caller cancellation always wins immediately.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %d attempts exhausted: %v", domain.ErrBackendError, c.maxAttempts, lastErr)
}

func (c *Client) do(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", domain.ErrBackendError, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Status:        resp.StatusCode,
			Body:          snippet(body),
			CorrelationID: correlationID(resp.Header),
		}
	}
	return body, nil
}

// backoff doubles per attempt with up to 25% random jitter.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.baseBackoff << (attempt - 2)
	jitter := time.Duration(rand.Int63n(int64(d)/4 + 1))
	return d + jitter
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func correlationID(h http.Header) string {
	for _, name := range correlationHeaders {
		if v := h.Get(name); v != "" {
			return v
		}
	}
	return ""
}

func snippet(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
