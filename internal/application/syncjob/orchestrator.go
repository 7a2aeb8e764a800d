// Package syncjob drives bulk and partial reconciliation runs as trackable jobs.
package syncjob

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/YKLee98/naver-sub003/internal/application/reconciliation"
	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
	"github.com/YKLee98/naver-sub003/internal/domain/syncjob"
)

const tracerName = "github.com/YKLee98/naver-sub003/internal/application/syncjob"

// Reconciler is the per-SKU work a job performs
type Reconciler interface {
	SyncInventory(ctx context.Context, sku string) (*reconciliation.InventoryResult, error)
	SyncPrice(ctx context.Context, sku string, opts reconciliation.PriceOptions) (*reconciliation.PriceResult, error)
}

// RateResolver picks the exchange rate for a run
type RateResolver interface {
	Resolve(ctx context.Context, live bool) (*integration.ExchangeRate, error)
}

// Submitter queues a job for asynchronous execution
type Submitter interface {
	Submit(jobID uuid.UUID) error
}

// Config controls batching
type Config struct {
	BatchSize   int
	Concurrency int
	BatchPause  time.Duration
}

// DefaultConfig returns batches of 10, 5 in flight, 1s apart
func DefaultConfig() Config {
	return Config{BatchSize: 10, Concurrency: 5, BatchPause: time.Second}
}

// Deps are the collaborators of Orchestrator
type Deps struct {
	Jobs     syncjob.Repository
	Mappings integration.MappingReader
	Rules    integration.PriceRuleRepository
	Engine   Reconciler
	Rates    RateResolver
	Alerts   reconciliation.AlertSink
	Clock    shared.Clock
	Logger   *zap.Logger
}

// runState is the in-process handle of a running job
type runState struct {
	cancelled atomic.Bool
	// cancelledAt is guarded by Orchestrator.mu
	cancelledAt time.Time
}

// Orchestrator owns the SyncJob lifecycle. All status transitions of a job
// happen under mu so a cancel cannot be overwritten by a concurrent run.
type Orchestrator struct {
	jobs      syncjob.Repository
	mappings  integration.MappingReader
	rules     integration.PriceRuleRepository
	engine    Reconciler
	rates     RateResolver
	alerts    reconciliation.AlertSink
	submitter Submitter
	cfg       Config
	clock     shared.Clock
	logger    *zap.Logger
	validate  *validator.Validate

	mu      sync.Mutex
	running map[uuid.UUID]*runState
}

// NewOrchestrator creates an Orchestrator. Call SetSubmitter before CreateJob.
func NewOrchestrator(deps Deps, cfg Config) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = shared.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	return &Orchestrator{
		jobs:     deps.Jobs,
		mappings: deps.Mappings,
		rules:    deps.Rules,
		engine:   deps.Engine,
		rates:    deps.Rates,
		alerts:   deps.Alerts,
		cfg:      cfg,
		clock:    deps.Clock,
		logger:   deps.Logger.Named("orchestrator"),
		validate: validator.New(),
		running:  make(map[uuid.UUID]*runState),
	}
}

// SetSubmitter wires the dispatcher. The dispatcher itself executes through Execute.
func (o *Orchestrator) SetSubmitter(s Submitter) {
	o.submitter = s
}

// ---------------------------------------------------------------------------
// Job control
// ---------------------------------------------------------------------------

// CreateJobInput is the payload for CreateJob
type CreateJobInput struct {
	Type    syncjob.Type    `json:"type" validate:"required,oneof=full partial"`
	Options syncjob.Options `json:"options"`
}

// CreateJob validates options, persists a pending job and queues it
func (o *Orchestrator) CreateJob(ctx context.Context, in CreateJobInput) (*syncjob.SyncJob, error) {
	if err := o.validate.Struct(in); err != nil {
		return nil, shared.NewValidationError(err.Error())
	}
	job, err := syncjob.NewSyncJob(in.Type, in.Options, o.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", err, shared.ErrValidation)
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if err := o.enqueue(ctx, job); err != nil {
		return nil, err
	}

	o.logger.Info("Sync job created",
		zap.String("job_id", job.ID.String()),
		zap.String("type", string(job.Type)),
		zap.Int("skus", len(job.Options.SKUs)),
	)
	return job, nil
}

// enqueue submits job; a rejected submission cancels the job so it does not linger as pending
func (o *Orchestrator) enqueue(ctx context.Context, job *syncjob.SyncJob) error {
	if o.submitter == nil {
		return nil
	}
	err := o.submitter.Submit(job.ID)
	if err == nil {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if cerr := job.Cancel(o.clock.Now()); cerr == nil {
		job.FailureReason = "not queued: " + err.Error()
		if serr := o.jobs.Save(ctx, job); serr != nil {
			o.logger.Error("Failed to cancel unqueued job", zap.String("job_id", job.ID.String()), zap.Error(serr))
		}
	}
	return shared.NewUnavailableError(fmt.Sprintf("job %s not queued", job.ID), err)
}

// GetJob returns the job with its counters and errors
func (o *Orchestrator) GetJob(ctx context.Context, id uuid.UUID) (*syncjob.SyncJob, error) {
	return o.jobs.FindByID(ctx, id)
}

// ListJobs lists jobs newest first
func (o *Orchestrator) ListJobs(ctx context.Context, filter syncjob.Filter) (shared.Paginated[syncjob.SyncJob], error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	jobs, total, err := o.jobs.List(ctx, filter)
	if err != nil {
		return shared.Paginated[syncjob.SyncJob]{}, err
	}
	return shared.NewPaginated(jobs, total, filter.Page, filter.PageSize), nil
}

// Cancel flips the job to cancelled and persists it immediately. A running job
// also stops at its next batch boundary; the batch in flight completes.
func (o *Orchestrator) Cancel(ctx context.Context, id uuid.UUID) (*syncjob.SyncJob, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	job, err := o.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: job is already %s: %w", syncjob.ErrInvalidTransition, job.Status, shared.ErrInvalidState)
	}

	now := o.clock.Now()
	if err := job.Cancel(now); err != nil {
		return nil, fmt.Errorf("%w: %w", err, shared.ErrInvalidState)
	}
	if err := o.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	if state, ok := o.running[id]; ok {
		state.cancelledAt = now
		state.cancelled.Store(true)
		o.logger.Info("Cancellation requested", zap.String("job_id", id.String()))
	}
	return job, nil
}

// Retry creates a partial job over the SKUs that failed in a finished job
func (o *Orchestrator) Retry(ctx context.Context, id uuid.UUID) (*syncjob.SyncJob, error) {
	prev, err := o.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	job, err := prev.NewRetryJob(o.clock.Now())
	switch {
	case errors.Is(err, syncjob.ErrRetryRequiresTerminal):
		return nil, fmt.Errorf("%w: %w", err, shared.ErrInvalidState)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", err, shared.ErrValidation)
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create retry job: %w", err)
	}
	if err := o.enqueue(ctx, job); err != nil {
		return nil, err
	}

	o.logger.Info("Retry job created",
		zap.String("job_id", job.ID.String()),
		zap.String("retry_of", id.String()),
		zap.Int("skus", len(job.Options.SKUs)),
	)
	return job, nil
}

// RecoverInterrupted runs at startup: jobs left running by a crash are failed,
// pending jobs are queued again.
func (o *Orchestrator) RecoverInterrupted(ctx context.Context) (failed, requeued int, err error) {
	jobs, err := o.jobs.FindByStatus(ctx, syncjob.StatusRunning, syncjob.StatusPending)
	if err != nil {
		return 0, 0, fmt.Errorf("find unfinished jobs: %w", err)
	}

	for i := range jobs {
		job := &jobs[i]
		switch job.Status {
		case syncjob.StatusRunning:
			if err := job.Fail("interrupted by restart", o.clock.Now()); err != nil {
				continue
			}
			if err := o.jobs.Save(ctx, job); err != nil {
				return failed, requeued, fmt.Errorf("save job %s: %w", job.ID, err)
			}
			failed++
		case syncjob.StatusPending:
			if o.submitter == nil {
				continue
			}
			if err := o.submitter.Submit(job.ID); err != nil {
				o.logger.Warn("Failed to requeue pending job", zap.String("job_id", job.ID.String()), zap.Error(err))
				continue
			}
			requeued++
		}
	}

	if failed > 0 || requeued > 0 {
		o.logger.Info("Recovered unfinished jobs", zap.Int("failed", failed), zap.Int("requeued", requeued))
	}
	return failed, requeued, nil
}
