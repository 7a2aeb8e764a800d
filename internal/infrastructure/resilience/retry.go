// Package resilience wraps calls to external catalogs with retry, timeout,
// batching, circuit breaking and rate limiting.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/YKLee98/naver-sub003/internal/domain/shared"
)

// RetryConfig controls exponential backoff
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	// Retryable decides whether an error is retried. Defaults to IsRetryable.
	Retryable func(error) bool
}

// DefaultRetryConfig returns 3 attempts starting at 1s, doubling, capped at 10s
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Multiplier:   2,
		MaxDelay:     10 * time.Second,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.Multiplier < 1 {
		c.Multiplier = 1
	}
	if c.Retryable == nil {
		c.Retryable = IsRetryable
	}
	return c
}

// Delay returns the wait before attempt n+1, where n counts from 1
func (c RetryConfig) Delay(n int) time.Duration {
	c = c.withDefaults()
	d := float64(c.InitialDelay)
	for i := 1; i < n; i++ {
		d *= c.Multiplier
		if c.MaxDelay > 0 && d >= float64(c.MaxDelay) {
			return c.MaxDelay
		}
	}
	if c.MaxDelay > 0 && time.Duration(d) > c.MaxDelay {
		return c.MaxDelay
	}
	return time.Duration(d)
}

// IsRetryable retries transient platform errors and timeouts only
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return shared.IsRetryable(err)
}

// Retry runs op until it succeeds, returns a non-retryable error, or attempts run out.
// The last error is returned unchanged.
func Retry(ctx context.Context, cfg RetryConfig, op func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts || !cfg.Retryable(lastErr) {
			return lastErr
		}

		timer := time.NewTimer(cfg.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}

// RetryValue is Retry for operations that produce a value
func RetryValue[T any](ctx context.Context, cfg RetryConfig, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Retry(ctx, cfg, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
