package crawl

import (
	"context"
	"net/url"
	"time"

	"github.com/fwojciec/harvest"
)

// DefaultDelay is the politeness pause after each request.
const DefaultDelay = 700 * time.Millisecond

var _ harvest.Fetcher = (*Session)(nil)

// Session is the politeness layer of one run. It waits for the host's
// rate limiter, retries retryable failures with backoff, and pauses for
// Delay after every request before returning control. Each run owns its
// Session; workers of that run share it.
type Session struct {
	Fetcher     harvest.Fetcher
	Limiter     harvest.DomainLimiter
	Delay       time.Duration
	RetryDelays []time.Duration
	Logger      LogFunc
}

// NewSession returns a Session over f that spaces requests to one host by
// delay and uses the default retry schedule.
func NewSession(f harvest.Fetcher, delay time.Duration) *Session {
	return &Session{
		Fetcher:     f,
		Limiter:     NewDomainLimiterEvery(delay),
		Delay:       delay,
		RetryDelays: DefaultRetryDelays(),
	}
}

// Fetch retrieves rawURL. Failures that survive the retries are returned as
// EFETCH errors wrapping the last *harvest.FetchError.
func (s *Session) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", harvest.Errorf(harvest.EINVALID, "invalid URL %q", rawURL)
	}

	delays := s.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}
	fetch := func(ctx context.Context, rawURL string) (string, error) {
		if s.Limiter != nil {
			if err := s.Limiter.Wait(ctx, u.Host); err != nil {
				return "", err
			}
		}
		return s.Fetcher.Fetch(ctx, rawURL)
	}

	html, err := FetchWithRetryDelays(ctx, rawURL, fetch, s.Logger, delays)
	if perr := s.pause(ctx); perr != nil && err == nil {
		err = perr
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", harvest.WrapError(harvest.EFETCH, err, "failed to fetch %s", rawURL)
	}
	return html, nil
}

// Close closes the underlying fetcher.
func (s *Session) Close() error {
	return s.Fetcher.Close()
}

func (s *Session) pause(ctx context.Context) error {
	if s.Delay <= 0 {
		return nil
	}
	t := time.NewTimer(s.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
