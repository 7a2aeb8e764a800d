package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/YKLee98/naver-sub003/internal/domain/shared"
)

func testGuardConfig() GuardConfig {
	return GuardConfig{
		Name:                    "naver",
		Timeout:                 50 * time.Millisecond,
		Retry:                   fastRetry(2),
		BreakerFailures:         2,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenRequests: 1,
	}
}

func TestGuard_OpensBreakerOnTransientFailures(t *testing.T) {
	g := NewGuard(testGuardConfig(), zap.NewNop())

	calls := 0
	err := g.Do(context.Background(), "get", func(ctx context.Context) error {
		calls++
		return shared.NewTransientPlatformError("naver", errors.New("503"))
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "open", g.State())

	err = g.Do(context.Background(), "get", func(ctx context.Context) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, shared.ErrTransientPlatform)
	assert.Equal(t, 2, calls, "open breaker must short-circuit")
}

func TestGuard_ValidationErrorsDoNotTrip(t *testing.T) {
	g := NewGuard(testGuardConfig(), zap.NewNop())

	for i := 0; i < 5; i++ {
		err := g.Do(context.Background(), "put", func(ctx context.Context) error {
			return shared.NewValidationError("bad request")
		})
		assert.Equal(t, shared.KindValidation, shared.KindOf(err))
	}
	assert.Equal(t, "closed", g.State())
}

func TestGuard_TimeoutIsTransient(t *testing.T) {
	cfg := testGuardConfig()
	cfg.Retry = fastRetry(1)
	g := NewGuard(cfg, zap.NewNop())

	err := g.Do(context.Background(), "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, shared.ErrTransientPlatform)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestDoValue(t *testing.T) {
	g := NewGuard(testGuardConfig(), zap.NewNop())
	v, err := DoValue(context.Background(), g, "qty", func(ctx context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
