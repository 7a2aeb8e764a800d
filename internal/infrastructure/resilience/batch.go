package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrBatchStopped is returned when BeforeBatch asks to stop
var ErrBatchStopped = errors.New("resilience: batch processing stopped")

// BatchOptions controls Batch
type BatchOptions[T any] struct {
	// Size is the number of items per batch
	Size int
	// Concurrency bounds in-flight items within a batch
	Concurrency int
	// Pause is slept between batches to throttle calls against platforms
	Pause time.Duration
	// BeforeBatch runs at each batch boundary with the index of the next batch.
	// Returning false stops processing; batches already dispatched are not interrupted.
	BeforeBatch func(index int) bool
	// OnItemError observes failed items. It may be called concurrently.
	OnItemError func(item T, err error)
}

// Batch processes items in fixed-size batches with bounded concurrency inside each batch.
// Failed items are skipped; only successes are collected, in no particular order.
func Batch[T, R any](ctx context.Context, items []T, process func(ctx context.Context, item T) (R, error), opts BatchOptions[T]) ([]R, error) {
	size := opts.Size
	if size <= 0 {
		size = len(items)
	}
	if size == 0 {
		return nil, nil
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		mu      sync.Mutex
		results = make([]R, 0, len(items))
	)

	for start, index := 0, 0; start < len(items); start, index = start+size, index+1 {
		if opts.BeforeBatch != nil && !opts.BeforeBatch(index) {
			return results, ErrBatchStopped
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		end := start + size
		if end > len(items) {
			end = len(items)
		}

		var g errgroup.Group
		g.SetLimit(concurrency)
		for _, item := range items[start:end] {
			item := item
			g.Go(func() error {
				r, err := process(ctx, item)
				if err != nil {
					if opts.OnItemError != nil {
						opts.OnItemError(item, err)
					}
					return nil
				}
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		if end < len(items) && opts.Pause > 0 {
			timer := time.NewTimer(opts.Pause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return results, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return results, nil
}
