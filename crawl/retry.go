package crawl

import (
	"context"
	"time"

	"github.com/fwojciec/harvest"
)

// FetchFunc is the signature for a fetch function.
type FetchFunc func(ctx context.Context, url string) (string, error)

// LogFunc is the signature for a logging function.
type LogFunc func(format string, args ...any)

// Retry defaults: 5 retries with delays of factor * 2^n.
const (
	DefaultRetries       = 5
	DefaultBackoffFactor = 600 * time.Millisecond
)

// BackoffDelays returns retries exponential delays starting at factor.
func BackoffDelays(factor time.Duration, retries int) []time.Duration {
	delays := make([]time.Duration, retries)
	for i := range delays {
		delays[i] = factor << i
	}
	return delays
}

// DefaultRetryDelays returns the backoff delays for fetch retries:
// 0.6s, 1.2s, 2.4s, 4.8s, 9.6s.
func DefaultRetryDelays() []time.Duration {
	return BackoffDelays(DefaultBackoffFactor, DefaultRetries)
}

// FetchWithRetry attempts to fetch a URL with the default backoff.
func FetchWithRetry(ctx context.Context, url string, fetch FetchFunc, logger LogFunc) (string, error) {
	return FetchWithRetryDelays(ctx, url, fetch, logger, DefaultRetryDelays())
}

// FetchWithRetryDelays is like FetchWithRetry but allows configurable delays.
// Only errors reported retryable by harvest.IsRetryable are repeated; any
// other error is returned at once.
func FetchWithRetryDelays(ctx context.Context, url string, fetch FetchFunc, logger LogFunc, delays []time.Duration) (string, error) {
	maxAttempts := len(delays) + 1

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		html, err := fetch(ctx, url)
		if err == nil {
			return html, nil
		}
		lastErr = err

		if attempt >= maxAttempts-1 || !harvest.IsRetryable(err) {
			break
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		if logger != nil {
			logger("  retry %s (attempt %d): %v", url, attempt+2, err)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}

	return "", lastErr
}
