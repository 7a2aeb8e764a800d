package syncjob

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/YKLee98/naver-sub003/internal/application/reconciliation"
	"github.com/YKLee98/naver-sub003/internal/domain/alert"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
	"github.com/YKLee98/naver-sub003/internal/domain/syncjob"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/resilience"
)

// Execute runs a pending job to a terminal state. It implements scheduler.JobExecutor.
// Jobs that are no longer pending are skipped.
func (o *Orchestrator) Execute(ctx context.Context, jobID uuid.UUID) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "syncjob.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", jobID.String()))

	job, state, err := o.start(ctx, jobID)
	if err != nil || job == nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
	defer o.release(jobID)

	log := o.logger.With(zap.String("job_id", jobID.String()))
	log.Info("Sync job started", zap.String("type", string(job.Type)))

	err = o.run(ctx, job, state, log)
	span.SetAttributes(
		attribute.String("job.status", string(job.Status)),
		attribute.Int("job.total", job.TotalItems),
		attribute.Int("job.failed", job.FailedCount),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// start moves the job to running and registers it for cooperative cancellation
func (o *Orchestrator) start(ctx context.Context, jobID uuid.UUID) (*syncjob.SyncJob, *runState, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	job, err := o.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("load job %s: %w", jobID, err)
	}
	if job.Status != syncjob.StatusPending {
		o.logger.Debug("Skipping job that is no longer pending",
			zap.String("job_id", jobID.String()), zap.String("status", string(job.Status)))
		return nil, nil, nil
	}
	if err := job.Start(o.clock.Now()); err != nil {
		return nil, nil, err
	}
	if err := o.jobs.Save(ctx, job); err != nil {
		return nil, nil, fmt.Errorf("save job %s: %w", jobID, err)
	}

	state := &runState{}
	o.running[jobID] = state
	return job, state, nil
}

func (o *Orchestrator) release(jobID uuid.UUID) {
	o.mu.Lock()
	delete(o.running, jobID)
	o.mu.Unlock()
}

// plan is the resolved setup of a run
type plan struct {
	skus  []string
	price reconciliation.PriceOptions
}

// setup resolves the target SKUs, price rules and exchange rate.
// Any failure here is fatal for the job.
func (o *Orchestrator) setup(ctx context.Context, job *syncjob.SyncJob) (*plan, error) {
	p := &plan{}

	if len(job.Options.SKUs) > 0 {
		p.skus = dedupe(job.Options.SKUs)
	} else {
		mappings, err := o.mappings.FindActive(ctx)
		if err != nil {
			return nil, shared.NewFatalSetupError("resolve target SKUs", err)
		}
		p.skus = make([]string, 0, len(mappings))
		for i := range mappings {
			p.skus = append(p.skus, mappings[i].SKU)
		}
	}

	if !job.Options.SyncPrice {
		return p, nil
	}

	p.price = reconciliation.PriceOptions{
		Rounding: job.Options.RoundingStrategy,
		Margin:   job.Options.Margin,
	}
	if job.Options.ApplyPriceRules && o.rules != nil {
		rules, err := o.rules.FindActive(ctx)
		if err != nil {
			return nil, shared.NewFatalSetupError("load price rules", err)
		}
		p.price.Rules = rules
	}
	if o.rates != nil {
		rate, err := o.rates.Resolve(ctx, job.Options.RateSource == syncjob.RateSourceLive)
		if err != nil {
			return nil, shared.NewFatalSetupError("resolve exchange rate", err)
		}
		p.price.Rate = rate
	}
	return p, nil
}

func (o *Orchestrator) run(ctx context.Context, job *syncjob.SyncJob, state *runState, log *zap.Logger) error {
	p, err := o.setup(ctx, job)
	if err != nil {
		log.Error("Sync job setup failed", zap.Error(err))
		return o.finish(ctx, job, state, err)
	}
	job.SetTotal(len(p.skus))
	if err := o.saveProgress(ctx, job, state); err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}

	var (
		jobMu sync.Mutex
		fatal error
	)
	_, batchErr := resilience.Batch(ctx, p.skus, func(ctx context.Context, sku string) (string, error) {
		if err := o.reconcile(ctx, job.Options, sku, p.price); err != nil {
			return "", err
		}
		jobMu.Lock()
		job.RecordSuccess()
		jobMu.Unlock()
		return sku, nil
	}, resilience.BatchOptions[string]{
		Size:        o.cfg.BatchSize,
		Concurrency: o.cfg.Concurrency,
		Pause:       o.cfg.BatchPause,
		BeforeBatch: func(index int) bool {
			jobMu.Lock()
			defer jobMu.Unlock()
			if index > 0 {
				if err := o.saveProgress(ctx, job, state); err != nil {
					log.Warn("Failed to persist job progress", zap.Error(err))
				}
			}
			return fatal == nil && !state.cancelled.Load()
		},
		OnItemError: func(sku string, err error) {
			jobMu.Lock()
			job.RecordFailure(sku, err, o.clock.Now())
			if shared.IsFatal(err) && fatal == nil {
				fatal = err
			}
			jobMu.Unlock()

			log.Warn("SKU reconciliation failed",
				zap.String("sku", sku),
				zap.String("kind", string(shared.KindOf(err))),
				zap.Error(err),
			)
			o.raise(ctx, sku, job.ID, err)
		},
	})

	switch {
	case fatal != nil:
		return o.finish(ctx, job, state, fatal)
	case batchErr != nil && !errors.Is(batchErr, resilience.ErrBatchStopped):
		return o.finish(ctx, job, state, fmt.Errorf("interrupted: %w", batchErr))
	}
	return o.finish(ctx, job, state, nil)
}

// reconcile performs the per-SKU work selected by the job options
func (o *Orchestrator) reconcile(ctx context.Context, opts syncjob.Options, sku string, price reconciliation.PriceOptions) error {
	if opts.SyncInventory {
		if _, err := o.engine.SyncInventory(ctx, sku); err != nil {
			return err
		}
	}
	if opts.SyncPrice {
		if _, err := o.engine.SyncPrice(ctx, sku, price); err != nil {
			return err
		}
	}
	return nil
}

// saveProgress persists the counters of a running job. Once a cancel has been
// requested the stored status stays cancelled.
func (o *Orchestrator) saveProgress(ctx context.Context, job *syncjob.SyncJob, state *runState) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	snapshot := *job
	if state.cancelled.Load() {
		at := state.cancelledAt
		snapshot.Status = syncjob.StatusCancelled
		snapshot.CompletedAt = &at
	}
	return o.jobs.Save(ctx, &snapshot)
}

// finish persists the terminal state. Cancellation wins over completion.
func (o *Orchestrator) finish(ctx context.Context, job *syncjob.SyncJob, state *runState, cause error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.clock.Now()
	var err error
	switch {
	case state.cancelled.Load():
		err = job.Cancel(now)
	case cause != nil:
		err = job.Fail(cause.Error(), now)
	default:
		err = job.Complete(now)
	}
	if err != nil {
		return err
	}
	if err := o.jobs.Save(ctx, job); err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}

	o.logger.Info("Sync job finished",
		zap.String("job_id", job.ID.String()),
		zap.String("status", string(job.Status)),
		zap.Int("total", job.TotalItems),
		zap.Int("success", job.SuccessCount),
		zap.Int("failed", job.FailedCount),
		zap.Duration("execution_time", job.ExecutionTime),
	)
	return nil
}

func (o *Orchestrator) raise(ctx context.Context, sku string, jobID uuid.UUID, cause error) {
	if o.alerts == nil {
		return
	}
	if shared.KindOf(cause) == shared.KindUnresolvedMapping {
		return
	}
	a, err := alert.New(alert.TypeSyncFailed, alert.SeverityMedium, sku,
		fmt.Sprintf("Reconciliation failed for %s", sku),
		map[string]any{"job_id": jobID.String(), "error": cause.Error(), "code": shared.CodeOf(cause)},
		o.clock.Now())
	if err != nil {
		return
	}
	if err := o.alerts.Raise(ctx, a); err != nil {
		o.logger.Warn("Failed to raise sync_failed alert", zap.String("sku", sku), zap.Error(err))
	}
}

func dedupe(skus []string) []string {
	seen := make(map[string]struct{}, len(skus))
	out := make([]string, 0, len(skus))
	for _, s := range skus {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
