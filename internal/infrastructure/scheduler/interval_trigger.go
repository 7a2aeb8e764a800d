package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one tick of periodic work
type Task func(ctx context.Context) error

// IntervalTriggerConfig holds configuration for a periodic task
type IntervalTriggerConfig struct {
	Name     string
	Interval time.Duration
	// RunOnStart fires the task once immediately instead of waiting a full interval
	RunOnStart bool
}

// IntervalTrigger runs a task on a fixed cadence. Runs never overlap;
// ticks missed while a run is in progress are coalesced.
type IntervalTrigger struct {
	config IntervalTriggerConfig
	task   Task
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewIntervalTrigger creates a new interval trigger
func NewIntervalTrigger(config IntervalTriggerConfig, task Task, logger *zap.Logger) *IntervalTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntervalTrigger{
		config: config,
		task:   task,
		logger: logger.Named("trigger").With(zap.String("task", config.Name)),
	}
}

// Start starts the trigger loop
func (c *IntervalTrigger) Start(ctx context.Context) error {
	if c.config.Interval <= 0 {
		return ErrInvalidConfig
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isRunning {
		return nil
	}
	c.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Interval trigger started", zap.Duration("interval", c.config.Interval))
	return nil
}

// Stop stops the trigger and waits for an in-flight run
func (c *IntervalTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Interval trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *IntervalTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	if c.config.RunOnStart {
		c.fire(ctx)
	}

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.fire(ctx)
		}
	}
}

func (c *IntervalTrigger) fire(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Periodic task panicked", zap.Any("panic", r))
		}
	}()
	if err := c.task(ctx); err != nil && ctx.Err() == nil {
		c.logger.Error("Periodic task failed", zap.Error(err))
	}
}
