// Package monitoring samples fleet health, raises and ages alerts.
package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/YKLee98/naver-sub003/internal/application/reconciliation"
	"github.com/YKLee98/naver-sub003/internal/domain/alert"
	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
	"github.com/YKLee98/naver-sub003/internal/domain/syncjob"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/scheduler"
)

const (
	metricsCacheKey = "monitoring:fleet_metrics"
	// ResolvedBySystem marks alerts closed by the aging sweep
	ResolvedBySystem = "system"
	successWindow    = 24 * time.Hour
)

// JobHistory is the slice of the job store monitoring reads
type JobHistory interface {
	FindFinishedSince(ctx context.Context, since time.Time) ([]syncjob.SyncJob, error)
}

// Config controls both cadences
type Config struct {
	SampleInterval  time.Duration
	AgingInterval   time.Duration
	AutoResolveAge  time.Duration
	GracePeriod     time.Duration
	MetricsCacheTTL time.Duration
	Thresholds      reconciliation.Thresholds
}

// DefaultConfig returns 60s sampling, 5m aging, 24h auto-resolve, 1h grace, 1m metrics cache
func DefaultConfig() Config {
	return Config{
		SampleInterval:  60 * time.Second,
		AgingInterval:   5 * time.Minute,
		AutoResolveAge:  24 * time.Hour,
		GracePeriod:     time.Hour,
		MetricsCacheTTL: time.Minute,
		Thresholds:      reconciliation.DefaultThresholds(),
	}
}

// Deps are the Monitor collaborators. Cache, Notifier and Publisher are optional.
type Deps struct {
	Alerts    alert.Repository
	Mappings  integration.MappingReader
	Jobs      JobHistory
	Cache     shared.Cache
	Notifier  Notifier
	Publisher MetricsPublisher
	Clock     shared.Clock
	Logger    *zap.Logger
}

// Monitor owns the alert lifecycle and the fleet metrics sample
type Monitor struct {
	alerts    alert.Repository
	mappings  integration.MappingReader
	jobs      JobHistory
	cache     shared.Cache
	notifier  Notifier
	publisher MetricsPublisher
	clock     shared.Clock
	logger    *zap.Logger
	cfg       Config

	mu       sync.Mutex
	triggers []*scheduler.IntervalTrigger
}

// NewMonitor creates a Monitor
func NewMonitor(deps Deps, cfg Config) *Monitor {
	def := DefaultConfig()
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = def.SampleInterval
	}
	if cfg.AgingInterval <= 0 {
		cfg.AgingInterval = def.AgingInterval
	}
	if cfg.AutoResolveAge <= 0 {
		cfg.AutoResolveAge = def.AutoResolveAge
	}
	if cfg.GracePeriod < 0 {
		cfg.GracePeriod = def.GracePeriod
	}
	if cfg.MetricsCacheTTL <= 0 {
		cfg.MetricsCacheTTL = def.MetricsCacheTTL
	}
	if cfg.Thresholds == (reconciliation.Thresholds{}) {
		cfg.Thresholds = def.Thresholds
	}
	if deps.Clock == nil {
		deps.Clock = shared.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	logger := deps.Logger.Named("monitoring")
	if deps.Notifier == nil {
		deps.Notifier = NewLogNotifier(logger)
	}
	return &Monitor{
		alerts:    deps.Alerts,
		mappings:  deps.Mappings,
		jobs:      deps.Jobs,
		cache:     deps.Cache,
		notifier:  deps.Notifier,
		publisher: deps.Publisher,
		clock:     deps.Clock,
		logger:    logger,
		cfg:       cfg,
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Start runs the sampling cycle and the aging sweep on their own cadences
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.triggers) > 0 {
		return nil
	}

	sample := scheduler.NewIntervalTrigger(scheduler.IntervalTriggerConfig{
		Name:       "alert-sampling",
		Interval:   m.cfg.SampleInterval,
		RunOnStart: true,
	}, func(ctx context.Context) error {
		_, err := m.SampleCycle(ctx)
		return err
	}, m.logger)

	aging := scheduler.NewIntervalTrigger(scheduler.IntervalTriggerConfig{
		Name:     "alert-aging",
		Interval: m.cfg.AgingInterval,
	}, func(ctx context.Context) error {
		_, _, err := m.AgingSweep(ctx)
		return err
	}, m.logger)

	for _, t := range []*scheduler.IntervalTrigger{sample, aging} {
		if err := t.Start(ctx); err != nil {
			for _, started := range m.triggers {
				_ = started.Stop(ctx)
			}
			m.triggers = nil
			return fmt.Errorf("start monitor: %w", err)
		}
		m.triggers = append(m.triggers, t)
	}

	m.logger.Info("Monitor started",
		zap.Duration("sample_interval", m.cfg.SampleInterval),
		zap.Duration("aging_interval", m.cfg.AgingInterval),
	)
	return nil
}

// Stop halts both cadences and waits for in-flight runs
func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	triggers := m.triggers
	m.triggers = nil
	m.mu.Unlock()

	var errs []error
	for _, t := range triggers {
		if err := t.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ---------------------------------------------------------------------------
// Alerts
// ---------------------------------------------------------------------------

// Raise persists a and notifies. Each call creates a new alert.
func (m *Monitor) Raise(ctx context.Context, a *alert.Alert) error {
	if err := m.alerts.Create(ctx, a); err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	if err := m.notifier.Notify(ctx, a); err != nil {
		m.logger.Warn("Alert notification failed", zap.String("alert_id", a.ID), zap.Error(err))
	}
	return nil
}

// SampleCycle evaluates every active mapping, raises alerts for conditions
// with no unresolved alert of the same type and SKU, then refreshes the
// cached fleet metrics. It returns the number of alerts created.
func (m *Monitor) SampleCycle(ctx context.Context) (int, error) {
	mappings, err := m.mappings.FindActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("load active mappings: %w", err)
	}

	now := m.clock.Now()
	created := 0
	for i := range mappings {
		if ctx.Err() != nil {
			return created, ctx.Err()
		}
		d := reconciliation.ComputeDiscrepancy(&mappings[i], m.cfg.Thresholds)
		if !d.HasCondition() {
			continue
		}
		open, err := m.alerts.HasUnresolved(ctx, d.Type, d.SKU)
		if err != nil {
			m.logger.Warn("Alert lookup failed", zap.String("sku", d.SKU), zap.Error(err))
			continue
		}
		if open {
			continue
		}
		a, err := alert.New(d.Type, d.Severity, d.SKU, describe(d), map[string]any{
			"field":   string(d.Field),
			"naver":   d.Naver,
			"shopify": d.Shopify,
			"delta":   d.Delta,
		}, now)
		if err != nil {
			m.logger.Error("Invalid alert", zap.String("sku", d.SKU), zap.Error(err))
			continue
		}
		if err := m.Raise(ctx, a); err != nil {
			m.logger.Warn("Failed to raise alert", zap.String("sku", d.SKU), zap.Error(err))
			continue
		}
		created++
	}

	metrics, err := m.sample(ctx, mappings, now)
	if err != nil {
		return created, err
	}
	m.store(ctx, metrics)

	m.logger.Debug("Sampling cycle complete",
		zap.Int("mappings", len(mappings)),
		zap.Int("alerts_created", created),
	)
	return created, nil
}

// AgingSweep auto-resolves alerts left unresolved past AutoResolveAge and
// purges resolved alerts whose grace period has elapsed.
func (m *Monitor) AgingSweep(ctx context.Context) (resolved int, purged int64, err error) {
	now := m.clock.Now()
	stale, err := m.alerts.FindUnresolvedBefore(ctx, now.Add(-m.cfg.AutoResolveAge))
	if err != nil {
		return 0, 0, fmt.Errorf("find stale alerts: %w", err)
	}
	for i := range stale {
		a := &stale[i]
		if !a.Resolve(ResolvedBySystem, now, m.cfg.GracePeriod) {
			continue
		}
		if err := m.alerts.Save(ctx, a); err != nil {
			m.logger.Warn("Failed to auto-resolve alert", zap.String("alert_id", a.ID), zap.Error(err))
			continue
		}
		resolved++
	}

	purged, err = m.alerts.DeleteRemovable(ctx, now)
	if err != nil {
		return resolved, 0, fmt.Errorf("purge alerts: %w", err)
	}
	if resolved > 0 || purged > 0 {
		m.logger.Info("Alert aging sweep", zap.Int("auto_resolved", resolved), zap.Int64("purged", purged))
	}
	return resolved, purged, nil
}

// ListAlerts returns visible alerts, newest first
func (m *Monitor) ListAlerts(ctx context.Context, unresolvedOnly bool) ([]alert.Alert, error) {
	return m.alerts.List(ctx, alert.Filter{
		UnresolvedOnly: unresolvedOnly,
		VisibleAt:      m.clock.Now(),
	})
}

// ResolveAlert resolves the alert by hand. It returns false if the alert
// does not exist or was already resolved.
func (m *Monitor) ResolveAlert(ctx context.Context, id, by string) (bool, error) {
	a, err := m.alerts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, alert.ErrAlertNotFound) {
			return false, nil
		}
		return false, err
	}
	if by == "" {
		by = "operator"
	}
	if !a.Resolve(by, m.clock.Now(), m.cfg.GracePeriod) {
		return false, nil
	}
	if err := m.alerts.Save(ctx, a); err != nil {
		return false, fmt.Errorf("save alert %s: %w", id, err)
	}
	m.logger.Info("Alert resolved", zap.String("alert_id", id), zap.String("resolved_by", by))
	return true, nil
}

// ---------------------------------------------------------------------------
// Metrics
// ---------------------------------------------------------------------------

// Metrics returns the cached fleet sample, computing it on a miss
func (m *Monitor) Metrics(ctx context.Context) (*FleetMetrics, error) {
	if m.cache != nil {
		var cached FleetMetrics
		hit, err := m.cache.Get(ctx, metricsCacheKey, &cached)
		if err != nil {
			m.logger.Warn("Metrics cache read failed", zap.Error(err))
		}
		if hit {
			return &cached, nil
		}
	}

	mappings, err := m.mappings.FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active mappings: %w", err)
	}
	metrics, err := m.sample(ctx, mappings, m.clock.Now())
	if err != nil {
		return nil, err
	}
	m.store(ctx, metrics)
	return metrics, nil
}

func (m *Monitor) sample(ctx context.Context, mappings []integration.Mapping, now time.Time) (*FleetMetrics, error) {
	metrics := &FleetMetrics{SampledAt: now}
	tally(metrics, mappings, m.cfg.Thresholds)

	jobs, err := m.jobs.FindFinishedSince(ctx, now.Add(-successWindow))
	if err != nil {
		return nil, fmt.Errorf("load finished jobs: %w", err)
	}
	successRate(metrics, jobs)

	counts, err := m.alerts.CountUnresolvedBySeverity(ctx)
	if err != nil {
		return nil, fmt.Errorf("count alerts: %w", err)
	}
	metrics.UnresolvedAlerts = make(map[alert.Severity]int, len(alert.AllSeverities()))
	for _, sev := range alert.AllSeverities() {
		metrics.UnresolvedAlerts[sev] = counts[sev]
	}
	return metrics, nil
}

func (m *Monitor) store(ctx context.Context, metrics *FleetMetrics) {
	if m.cache != nil {
		if err := m.cache.Set(ctx, metricsCacheKey, metrics, m.cfg.MetricsCacheTTL); err != nil {
			m.logger.Warn("Metrics cache write failed", zap.Error(err))
		}
	}
	if m.publisher != nil {
		m.publisher.Publish(ctx, *metrics)
	}
}

func describe(d reconciliation.Discrepancy) string {
	switch d.Type {
	case alert.TypeOutOfStock:
		return "out of stock on at least one platform"
	case alert.TypeDiscrepancy:
		return fmt.Sprintf("inventory differs by %d", d.AbsDelta())
	default:
		return fmt.Sprintf("stock low (%d)", min(d.Naver, d.Shopify))
	}
}
