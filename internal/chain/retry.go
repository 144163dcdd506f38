package chain

import (
	"context"
	"time"
)

// RetryPolicy bounds how a failing RPC read is retried.
type RetryPolicy struct {
	MaxRetries int
	// Backoff is the first delay; it doubles after each attempt up to MaxBackoff.
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// Do calls fn until it succeeds or the retries run out, returning the last
// error. onRetry, if set, sees each failure that will be retried.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error, onRetry func(attempt int, err error)) error {
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := p.Backoff
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}
		if onRetry != nil {
			onRetry(attempt+1, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if p.MaxBackoff > 0 && delay > p.MaxBackoff {
			delay = p.MaxBackoff
		}
	}
}
