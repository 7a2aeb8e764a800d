package monitoring

import (
	"context"
	"time"

	"github.com/YKLee98/naver-sub003/internal/application/reconciliation"
	"github.com/YKLee98/naver-sub003/internal/domain/alert"
	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/syncjob"
)

// FleetMetrics is the sampled health of every active mapping
type FleetMetrics struct {
	ActiveMappings int `json:"active_mappings"`
	Synced         int `json:"synced"`
	OutOfSync      int `json:"out_of_sync"`
	LowStock       int `json:"low_stock"`
	OutOfStock     int `json:"out_of_stock"`

	// JobsFinished counts terminal jobs in the trailing window
	JobsFinished int `json:"jobs_finished"`
	// SyncSuccessRate is succeeded items over processed items across those jobs, 0..1
	SyncSuccessRate float64 `json:"sync_success_rate"`

	UnresolvedAlerts map[alert.Severity]int `json:"unresolved_alerts"`
	SampledAt        time.Time              `json:"sampled_at"`
}

// MetricsPublisher exports sampled metrics to a backend
type MetricsPublisher interface {
	Publish(ctx context.Context, m FleetMetrics)
}

// tally classifies mappings independently: a SKU can be both out of sync and low
func tally(m *FleetMetrics, mappings []integration.Mapping, t reconciliation.Thresholds) {
	m.ActiveMappings = len(mappings)
	for i := range mappings {
		naver := mappings[i].Quantity(integration.PlatformNaver)
		shopify := mappings[i].Quantity(integration.PlatformShopify)
		d := reconciliation.ComputeDiscrepancy(&mappings[i], t)

		if d.AbsDelta() >= t.Tolerance {
			m.OutOfSync++
		} else {
			m.Synced++
		}
		switch low := min(naver, shopify); {
		case low == 0:
			m.OutOfStock++
		case low <= t.Low:
			m.LowStock++
		}
	}
}

// successRate is 1 when nothing was processed
func successRate(m *FleetMetrics, jobs []syncjob.SyncJob) {
	m.JobsFinished = len(jobs)
	processed, succeeded := 0, 0
	for _, j := range jobs {
		processed += j.ProcessedItems
		succeeded += j.SuccessCount
	}
	if processed == 0 {
		m.SyncSuccessRate = 1
		return
	}
	m.SyncSuccessRate = float64(succeeded) / float64(processed)
}
