package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is matched by every TimeoutError
var ErrTimeout = errors.New("resilience: operation timed out")

// TimeoutError reports an operation that lost the race against its timer
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.After)
}

// Is matches ErrTimeout
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// WithTimeout races op against d. op receives a context cancelled at the deadline;
// if it has not returned by then a *TimeoutError is returned and op's late result is dropped.
func WithTimeout(ctx context.Context, name string, d time.Duration, op func(ctx context.Context) error) error {
	if d <= 0 {
		return op(ctx)
	}
	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(tctx)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return &TimeoutError{Op: name, After: d}
		}
		return err
	case <-tctx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TimeoutError{Op: name, After: d}
	}
}
