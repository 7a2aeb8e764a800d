// Package scheduler runs sync jobs on a bounded worker pool and drives periodic tasks.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobExecutor runs one persisted job to completion
type JobExecutor interface {
	Execute(ctx context.Context, jobID uuid.UUID) error
}

// ExecutorFunc adapts a function to JobExecutor
type ExecutorFunc func(ctx context.Context, jobID uuid.UUID) error

// Execute calls f
func (f ExecutorFunc) Execute(ctx context.Context, jobID uuid.UUID) error {
	return f(ctx, jobID)
}

// DispatcherConfig holds worker pool configuration
type DispatcherConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// DefaultDispatcherConfig returns default dispatcher configuration
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:    2,
		QueueSize:  100,
		JobTimeout: 30 * time.Minute,
	}
}

// Validate checks the configuration
func (c DispatcherConfig) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalidConfig)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("%w: queue size must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// Dispatcher executes submitted jobs on a fixed number of workers
type Dispatcher struct {
	config   DispatcherConfig
	executor JobExecutor
	logger   *zap.Logger

	jobs      chan uuid.UUID
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewDispatcher creates a new dispatcher instance
func NewDispatcher(config DispatcherConfig, executor JobExecutor, logger *zap.Logger) (*Dispatcher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		config:   config,
		executor: executor,
		logger:   logger.Named("dispatcher"),
		jobs:     make(chan uuid.UUID, config.QueueSize),
	}, nil
}

// Start starts the worker pool
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.isRunning {
		return nil
	}
	d.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	for i := 0; i < d.config.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}

	d.logger.Info("Job dispatcher started",
		zap.Int("workers", d.config.Workers),
		zap.Int("queue_size", d.config.QueueSize),
		zap.Duration("job_timeout", d.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for workers to exit.
// Queued jobs stay pending in the store and are picked up again on restart.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.isRunning {
		d.mu.Unlock()
		return nil
	}
	d.isRunning = false
	d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("Job dispatcher stopped gracefully")
		return nil
	case <-ctx.Done():
		d.logger.Warn("Job dispatcher stop timed out")
		return ctx.Err()
	}
}

// Submit queues a job for execution without blocking
func (d *Dispatcher) Submit(jobID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case d.jobs <- jobID:
		d.logger.Debug("Job submitted", zap.String("job_id", jobID.String()))
		return nil
	default:
		return ErrJobQueueFull
	}
}

// Pending returns the number of queued jobs
func (d *Dispatcher) Pending() int {
	return len(d.jobs)
}

func (d *Dispatcher) worker(ctx context.Context, workerID int) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			d.logger.Debug("Worker stopping", zap.Int("worker_id", workerID))
			return
		case jobID := <-d.jobs:
			d.process(ctx, jobID, workerID)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, jobID uuid.UUID, workerID int) {
	jobCtx := ctx
	if d.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, d.config.JobTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Job panicked",
				zap.Int("worker_id", workerID),
				zap.String("job_id", jobID.String()),
				zap.Any("panic", r),
			)
		}
	}()

	start := time.Now()
	if err := d.executor.Execute(jobCtx, jobID); err != nil {
		d.logger.Error("Job execution failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", jobID.String()),
			zap.Error(err),
		)
		return
	}
	d.logger.Info("Job finished",
		zap.Int("worker_id", workerID),
		zap.String("job_id", jobID.String()),
		zap.Duration("elapsed", time.Since(start)),
	)
}
