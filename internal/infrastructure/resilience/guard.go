package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/YKLee98/naver-sub003/internal/domain/shared"
)

// GuardConfig configures the call path to one external platform
type GuardConfig struct {
	Name string
	// RatePerSecond of 0 disables throttling
	RatePerSecond float64
	Burst         int
	Timeout       time.Duration
	Retry         RetryConfig

	// BreakerFailures is the consecutive failure count that opens the breaker
	BreakerFailures uint32
	// BreakerOpenTimeout is how long the breaker stays open before probing
	BreakerOpenTimeout time.Duration
	// BreakerHalfOpenRequests is the number of probes allowed while half-open
	BreakerHalfOpenRequests uint32
}

// DefaultGuardConfig returns conservative defaults for name
func DefaultGuardConfig(name string) GuardConfig {
	return GuardConfig{
		Name:                    name,
		RatePerSecond:           2,
		Burst:                   2,
		Timeout:                 10 * time.Second,
		Retry:                   DefaultRetryConfig(),
		BreakerFailures:         5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenRequests: 1,
	}
}

// Guard applies rate limit, circuit breaker, timeout and retry to every call, in that order per attempt
type Guard struct {
	name    string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	retry   RetryConfig
	logger  *zap.Logger
}

// NewGuard creates a Guard
func NewGuard(cfg GuardConfig, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	g := &Guard{
		name:    cfg.Name,
		limiter: rate.NewLimiter(limit, burst),
		timeout: cfg.Timeout,
		retry:   cfg.Retry,
		logger:  logger.Named("guard").With(zap.String("platform", cfg.Name)),
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.BreakerHalfOpenRequests,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		// Only transient failures count against the breaker
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("Circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return g
}

// State returns the breaker state name
func (g *Guard) State() string {
	return g.breaker.State().String()
}

// Do runs fn through the guard
func (g *Guard) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return Retry(ctx, g.retry, func(ctx context.Context) error {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		_, err := g.breaker.Execute(func() (interface{}, error) {
			return nil, WithTimeout(ctx, g.name+"."+op, g.timeout, fn)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return shared.NewTransientPlatformError(g.name, err)
		}
		if errors.Is(err, ErrTimeout) {
			return shared.NewTransientPlatformError(g.name, err)
		}
		return err
	})
}

// DoValue is Do for calls that produce a value
func DoValue[T any](ctx context.Context, g *Guard, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		mu  sync.Mutex
		out T
	)
	err := g.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		out = v
		mu.Unlock()
		return nil
	})
	mu.Lock()
	defer mu.Unlock()
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
