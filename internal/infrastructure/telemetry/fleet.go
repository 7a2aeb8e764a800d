package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/YKLee98/naver-sub003/internal/application/monitoring"
	"github.com/YKLee98/naver-sub003/internal/domain/alert"
)

// FleetPublisher records each fleet sample as gauges
type FleetPublisher struct {
	mappings    metric.Int64Gauge
	successRate metric.Float64Gauge
	jobs        metric.Int64Gauge
	alerts      metric.Int64Gauge
}

// NewFleetPublisher registers the fleet gauges on meter
func NewFleetPublisher(meter metric.Meter) (*FleetPublisher, error) {
	var (
		p   FleetPublisher
		err error
	)
	if p.mappings, err = meter.Int64Gauge("sync.mappings",
		metric.WithDescription("Active mappings by reconciliation state"),
		metric.WithUnit("{mapping}")); err != nil {
		return nil, fmt.Errorf("register sync.mappings: %w", err)
	}
	if p.successRate, err = meter.Float64Gauge("sync.success_rate",
		metric.WithDescription("Succeeded over processed items across jobs finished in the last 24h"),
		metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("register sync.success_rate: %w", err)
	}
	if p.jobs, err = meter.Int64Gauge("sync.jobs_finished",
		metric.WithDescription("Jobs finished in the last 24h"),
		metric.WithUnit("{job}")); err != nil {
		return nil, fmt.Errorf("register sync.jobs_finished: %w", err)
	}
	if p.alerts, err = meter.Int64Gauge("sync.alerts_unresolved",
		metric.WithDescription("Unresolved alerts by severity"),
		metric.WithUnit("{alert}")); err != nil {
		return nil, fmt.Errorf("register sync.alerts_unresolved: %w", err)
	}
	return &p, nil
}

// Publish implements monitoring.MetricsPublisher
func (p *FleetPublisher) Publish(ctx context.Context, m monitoring.FleetMetrics) {
	for state, n := range map[string]int{
		"active":       m.ActiveMappings,
		"synced":       m.Synced,
		"out_of_sync":  m.OutOfSync,
		"low_stock":    m.LowStock,
		"out_of_stock": m.OutOfStock,
	} {
		p.mappings.Record(ctx, int64(n), metric.WithAttributes(attribute.String("state", state)))
	}
	p.successRate.Record(ctx, m.SyncSuccessRate)
	p.jobs.Record(ctx, int64(m.JobsFinished))
	for _, sev := range alert.AllSeverities() {
		p.alerts.Record(ctx, int64(m.UnresolvedAlerts[sev]), metric.WithAttributes(attribute.String("severity", string(sev))))
	}
}

var _ monitoring.MetricsPublisher = (*FleetPublisher)(nil)
