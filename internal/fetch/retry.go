package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/shanehull/annwatch/internal/errs"
	"github.com/shanehull/annwatch/internal/logger"
)

// Retrying repeats retryable failures. The wait before attempt n+1 is n*delay.
type Retrying struct {
	next     Fetcher
	attempts int
	delay    time.Duration
	timeout  time.Duration
	sleep    func(context.Context, time.Duration) error
	log      *logger.Logger
}

func NewRetrying(next Fetcher, attempts int, delay, timeout time.Duration) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrying{
		next:     next,
		attempts: attempts,
		delay:    delay,
		timeout:  timeout,
		sleep:    sleepContext,
		log:      logger.For("fetch"),
	}
}

func (r *Retrying) Name() string { return r.next.Name() }

func (r *Retrying) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	attempt := 1

	for ; attempt <= r.attempts; attempt++ {
		body, err := r.fetchOnce(ctx, url)
		if err == nil {
			r.log.Info().
				Str("strategy", r.next.Name()).
				Int("attempt", attempt).
				Int("bytes", len(body)).
				Msg("Page fetched")
			return body, nil
		}
		lastErr = err

		if !errs.IsRetryable(err) || attempt == r.attempts {
			break
		}

		wait := r.delay * time.Duration(attempt)
		r.log.Warn().
			Err(err).
			Str("strategy", r.next.Name()).
			Int("attempt", attempt).
			Int("max_attempts", r.attempts).
			Dur("wait", wait).
			Msg("Fetch failed, retrying")

		if err := r.sleep(ctx, wait); err != nil {
			return nil, errs.Network("fetch", "cancelled while waiting to retry", err)
		}
	}

	if attempt > r.attempts {
		attempt = r.attempts
	}
	return nil, fmt.Errorf("fetch %s gave up after %d attempt(s): %w", url, attempt, lastErr)
}

func (r *Retrying) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	if r.timeout <= 0 {
		return r.next.Fetch(ctx, url)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.next.Fetch(ctx, url)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
