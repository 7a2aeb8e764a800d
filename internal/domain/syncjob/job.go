package syncjob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
)

// Job errors
var (
	ErrJobNotFound           = errors.New("syncjob: job not found")
	ErrInvalidJobType        = errors.New("syncjob: invalid job type")
	ErrPartialRequiresSKUs   = errors.New("syncjob: partial job requires target SKUs")
	ErrInvalidTransition     = errors.New("syncjob: invalid status transition")
	ErrNothingToRetry        = errors.New("syncjob: job has no failed SKUs to retry")
	ErrRetryRequiresTerminal = errors.New("syncjob: only finished jobs can be retried")
)

// Type distinguishes full fleet runs from targeted runs
type Type string

const (
	TypeFull    Type = "full"
	TypePartial Type = "partial"
)

// IsValid returns true if the type is known
func (t Type) IsValid() bool {
	return t == TypeFull || t == TypePartial
}

// Status is the job lifecycle state
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsValid returns true if the status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true for states with no outgoing transitions
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// RateSource selects which exchange rate a price sync uses
type RateSource string

const (
	RateSourceActive RateSource = "active"
	RateSourceLive   RateSource = "live"
)

// Options configures a run
type Options struct {
	SKUs             []string                     `json:"skus,omitempty" validate:"omitempty,max=5000,dive,required,max=100"`
	SyncInventory    bool                         `json:"sync_inventory"`
	SyncPrice        bool                         `json:"sync_price"`
	ApplyPriceRules  bool                         `json:"apply_price_rules"`
	Margin           *decimal.Decimal             `json:"margin,omitempty"`
	RateSource       RateSource                   `json:"rate_source,omitempty" validate:"omitempty,oneof=active live"`
	RoundingStrategy integration.RoundingStrategy `json:"rounding_strategy,omitempty" validate:"omitempty,oneof=up down nearest"`
	RetryOf          *uuid.UUID                   `json:"retry_of,omitempty"`
}

// Normalize fills unset switches. A run with neither switch syncs both.
func (o *Options) Normalize() {
	if !o.SyncInventory && !o.SyncPrice {
		o.SyncInventory = true
		o.SyncPrice = true
	}
	if o.RateSource == "" {
		o.RateSource = RateSourceActive
	}
	if o.RoundingStrategy == "" {
		o.RoundingStrategy = integration.RoundNearest
	}
}

// ItemError is one per-SKU failure
type ItemError struct {
	SKU       string    `json:"sku"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Progress is the polling view of a job
type Progress struct {
	Total     int     `json:"total"`
	Processed int     `json:"processed"`
	Percent   float64 `json:"percent"`
}

// ---------------------------------------------------------------------------
// SyncJob Aggregate
// ---------------------------------------------------------------------------

// SyncJob is the unit-of-work record for one reconciliation run
type SyncJob struct {
	ID      uuid.UUID
	Type    Type
	Status  Status
	Options Options

	TotalItems     int
	ProcessedItems int
	SuccessCount   int
	FailedCount    int
	Errors         []ItemError

	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	ExecutionTime time.Duration
}

// NewSyncJob creates a pending job
func NewSyncJob(jobType Type, opts Options, now time.Time) (*SyncJob, error) {
	if !jobType.IsValid() {
		return nil, ErrInvalidJobType
	}
	if jobType == TypePartial && len(opts.SKUs) == 0 {
		return nil, ErrPartialRequiresSKUs
	}
	opts.Normalize()

	return &SyncJob{
		ID:        uuid.New(),
		Type:      jobType,
		Status:    StatusPending,
		Options:   opts,
		Errors:    make([]ItemError, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (j *SyncJob) transition(to Status, allowed ...Status) error {
	for _, from := range allowed {
		if j.Status == from {
			j.Status = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
}

// Start moves pending to running
func (j *SyncJob) Start(now time.Time) error {
	if err := j.transition(StatusRunning, StatusPending); err != nil {
		return err
	}
	j.StartedAt = &now
	j.UpdatedAt = now
	return nil
}

// SetTotal records the size of the resolved target set
func (j *SyncJob) SetTotal(n int) {
	j.TotalItems = n
}

// RecordSuccess counts a reconciled SKU
func (j *SyncJob) RecordSuccess() {
	j.ProcessedItems++
	j.SuccessCount++
}

// RecordFailure counts a failed SKU and captures its error
func (j *SyncJob) RecordFailure(sku string, err error, now time.Time) {
	j.ProcessedItems++
	j.FailedCount++
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	j.Errors = append(j.Errors, ItemError{
		SKU:       sku,
		Code:      shared.CodeOf(err),
		Message:   msg,
		Timestamp: now,
	})
}

// Complete moves running to completed
func (j *SyncJob) Complete(now time.Time) error {
	if err := j.transition(StatusCompleted, StatusRunning); err != nil {
		return err
	}
	j.finish(now)
	return nil
}

// Fail moves running to failed with a reason
func (j *SyncJob) Fail(reason string, now time.Time) error {
	if err := j.transition(StatusFailed, StatusRunning); err != nil {
		return err
	}
	j.FailureReason = reason
	j.finish(now)
	return nil
}

// Cancel moves pending or running to cancelled
func (j *SyncJob) Cancel(now time.Time) error {
	if err := j.transition(StatusCancelled, StatusPending, StatusRunning); err != nil {
		return err
	}
	j.finish(now)
	return nil
}

func (j *SyncJob) finish(now time.Time) {
	j.CompletedAt = &now
	j.UpdatedAt = now
	if j.StartedAt != nil {
		j.ExecutionTime = now.Sub(*j.StartedAt)
	}
}

// Progress returns counters for polling
func (j *SyncJob) Progress() Progress {
	p := Progress{Total: j.TotalItems, Processed: j.ProcessedItems}
	if j.TotalItems > 0 {
		p.Percent = float64(j.ProcessedItems) * 100 / float64(j.TotalItems)
	}
	return p
}

// FailedSKUs returns distinct SKUs with a recorded item failure, in first-seen order
func (j *SyncJob) FailedSKUs() []string {
	seen := make(map[string]struct{}, len(j.Errors))
	skus := make([]string, 0, len(j.Errors))
	for _, e := range j.Errors {
		if e.SKU == "" {
			continue
		}
		if _, ok := seen[e.SKU]; ok {
			continue
		}
		seen[e.SKU] = struct{}{}
		skus = append(skus, e.SKU)
	}
	return skus
}

// NewRetryJob builds a partial job over the failed SKUs of a finished job
func (j *SyncJob) NewRetryJob(now time.Time) (*SyncJob, error) {
	if !j.Status.IsTerminal() {
		return nil, ErrRetryRequiresTerminal
	}
	skus := j.FailedSKUs()
	if len(skus) == 0 {
		return nil, ErrNothingToRetry
	}
	opts := j.Options
	opts.SKUs = skus
	id := j.ID
	opts.RetryOf = &id
	return NewSyncJob(TypePartial, opts, now)
}

// ---------------------------------------------------------------------------
// Repository
// ---------------------------------------------------------------------------

// Filter narrows job listings
type Filter struct {
	shared.Filter
	Status *Status
	Type   *Type
	Since  *time.Time
}

// Repository persists jobs
type Repository interface {
	Create(ctx context.Context, job *SyncJob) error
	Save(ctx context.Context, job *SyncJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*SyncJob, error)
	List(ctx context.Context, filter Filter) ([]SyncJob, int64, error)
	// FindFinishedSince returns terminal jobs completed at or after since
	FindFinishedSince(ctx context.Context, since time.Time) ([]SyncJob, error)
	// FindByStatus returns jobs in any of the given states, oldest first
	FindByStatus(ctx context.Context, statuses ...Status) ([]SyncJob, error)
}
