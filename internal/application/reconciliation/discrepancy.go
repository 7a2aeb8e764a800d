// Package reconciliation compares and corrects inventory and price between the
// Naver and Shopify catalogs for one SKU at a time.
package reconciliation

import (
	"github.com/YKLee98/naver-sub003/internal/domain/alert"
	"github.com/YKLee98/naver-sub003/internal/domain/integration"
)

// Thresholds drive discrepancy classification
type Thresholds struct {
	// Critical is the quantity at or below which stock is critically low
	Critical int
	// Low is the quantity at or below which stock is low
	Low int
	// Tolerance is the cross-platform difference reported as a discrepancy
	Tolerance int
}

// DefaultThresholds returns 5 / 10 / 5
func DefaultThresholds() Thresholds {
	return Thresholds{Critical: 5, Low: 10, Tolerance: 5}
}

// Field is the attribute a discrepancy concerns
type Field string

const FieldInventory Field = "inventory"

// Discrepancy is the classified comparison of both cached quantities.
// An empty Type means the SKU is healthy.
type Discrepancy struct {
	SKU      string         `json:"sku"`
	Field    Field          `json:"field"`
	Naver    int            `json:"naver"`
	Shopify  int            `json:"shopify"`
	Delta    int            `json:"delta"`
	Type     alert.Type     `json:"type,omitempty"`
	Severity alert.Severity `json:"severity,omitempty"`
}

// HasCondition reports whether the comparison should raise an alert
func (d Discrepancy) HasCondition() bool {
	return d.Type != ""
}

// AbsDelta returns |Delta|
func (d Discrepancy) AbsDelta() int {
	if d.Delta < 0 {
		return -d.Delta
	}
	return d.Delta
}

// ComputeDiscrepancy classifies the cached quantities of m. First match wins:
// a zero on either side, then a difference at or beyond tolerance, then the
// smaller side against the critical and low thresholds.
func ComputeDiscrepancy(m *integration.Mapping, t Thresholds) Discrepancy {
	d := Discrepancy{
		SKU:     m.SKU,
		Field:   FieldInventory,
		Naver:   m.Quantity(integration.PlatformNaver),
		Shopify: m.Quantity(integration.PlatformShopify),
	}
	d.Delta = d.Naver - d.Shopify
	low := min(d.Naver, d.Shopify)

	switch {
	case d.Naver == 0 || d.Shopify == 0:
		d.Type, d.Severity = alert.TypeOutOfStock, alert.SeverityCritical
	case d.AbsDelta() >= t.Tolerance:
		d.Type = alert.TypeDiscrepancy
		switch {
		case d.AbsDelta() >= 20:
			d.Severity = alert.SeverityHigh
		case d.AbsDelta() >= 10:
			d.Severity = alert.SeverityMedium
		default:
			d.Severity = alert.SeverityLow
		}
	case low <= t.Critical:
		d.Type, d.Severity = alert.TypeLowStock, alert.SeverityHigh
	case low <= t.Low:
		d.Type, d.Severity = alert.TypeLowStock, alert.SeverityMedium
	}
	return d
}
