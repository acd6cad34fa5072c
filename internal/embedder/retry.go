package embedder

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig bounds the retry loop around provider API calls
type RetryConfig struct {
	Attempts int           // Total tries, including the first
	Base     time.Duration // Delay before the first retry
	Cap      time.Duration // Upper bound on any single delay
	Jitter   float64       // Fraction of each delay randomized, 0..1
}

// DefaultRetryConfig returns the backoff used for provider API calls
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts: 3,
		Base:     100 * time.Millisecond,
		Cap:      5 * time.Second,
		Jitter:   0.2,
	}
}

// delay computes the wait before retry n (0-based). Delays double per
// retry up to Cap, with a randomized fraction so concurrent batches
// hitting the same rate limit do not retry in lockstep.
func (c RetryConfig) delay(n int) time.Duration {
	d := c.Base << n
	if c.Cap > 0 && d > c.Cap {
		d = c.Cap
	}
	if c.Jitter > 0 {
		spread := float64(d) * c.Jitter
		d = time.Duration(float64(d) - spread/2 + rand.Float64()*spread)
	}
	return d
}

// retryWithBackoff runs fn until it succeeds, the attempts are exhausted,
// or ctx is cancelled. The last error is returned when every try fails.
func retryWithBackoff[T any](ctx context.Context, config RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < config.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(config.delay(attempt - 1)):
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}
