// Package alert models operator-facing alerts raised by monitoring and failure handlers.
package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Errors
var (
	ErrAlertNotFound    = errors.New("alert: not found")
	ErrInvalidAlertType = errors.New("alert: invalid type")
	ErrInvalidSeverity  = errors.New("alert: invalid severity")
	ErrAlertSKURequired = errors.New("alert: SKU is required")
)

// Type is the condition an alert reports
type Type string

const (
	TypeSyncFailed   Type = "sync_failed"
	TypeDiscrepancy  Type = "discrepancy"
	TypeLowStock     Type = "low_stock"
	TypeOutOfStock   Type = "out_of_stock"
	TypeUpdateFailed Type = "update_failed"
)

// IsValid returns true if the type is known
func (t Type) IsValid() bool {
	switch t {
	case TypeSyncFailed, TypeDiscrepancy, TypeLowStock, TypeOutOfStock, TypeUpdateFailed:
		return true
	}
	return false
}

// Severity ranks alerts
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AllSeverities in ascending order
func AllSeverities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

// IsValid returns true if the severity is known
func (s Severity) IsValid() bool {
	return s.Rank() > 0
}

// Rank orders severities; 0 means unknown
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// Alert identity is {type, sku, createdAt}; a recurring condition yields a new alert.
type Alert struct {
	ID         string
	Type       Type
	Severity   Severity
	SKU        string
	Message    string
	Details    map[string]any
	Resolved   bool
	ResolvedAt *time.Time
	ResolvedBy string
	// RemoveAfter is set once resolved; the alert is hidden and purged after it
	RemoveAfter *time.Time
	CreatedAt   time.Time
}

// ComposeID builds the composite identity. The random suffix keeps alerts of
// the same type and SKU raised at the same instant distinct.
func ComposeID(t Type, sku string, createdAt time.Time) string {
	return fmt.Sprintf("%s:%s:%d:%s", t, sku, createdAt.UnixNano(), uuid.NewString()[:8])
}

// New creates an unresolved alert
func New(t Type, severity Severity, sku, message string, details map[string]any, now time.Time) (*Alert, error) {
	if !t.IsValid() {
		return nil, ErrInvalidAlertType
	}
	if !severity.IsValid() {
		return nil, ErrInvalidSeverity
	}
	if sku == "" {
		return nil, ErrAlertSKURequired
	}
	if details == nil {
		details = map[string]any{}
	}
	return &Alert{
		ID:        ComposeID(t, sku, now),
		Type:      t,
		Severity:  severity,
		SKU:       sku,
		Message:   message,
		Details:   details,
		CreatedAt: now,
	}, nil
}

// Resolve marks the alert resolved and schedules its removal after grace.
// It returns false if the alert was already resolved.
func (a *Alert) Resolve(by string, now time.Time, grace time.Duration) bool {
	if a.Resolved {
		return false
	}
	removeAt := now.Add(grace)
	a.Resolved = true
	a.ResolvedAt = &now
	a.ResolvedBy = by
	a.RemoveAfter = &removeAt
	return true
}

// IsVisibleAt reports whether the alert is still queryable at t
func (a *Alert) IsVisibleAt(t time.Time) bool {
	return a.RemoveAfter == nil || t.Before(*a.RemoveAfter)
}

// Filter narrows alert listings
type Filter struct {
	UnresolvedOnly bool
	SKU            string
	Type           *Type
	// VisibleAt hides alerts whose RemoveAfter has passed
	VisibleAt time.Time
	Limit     int
}

// Repository persists alerts
type Repository interface {
	Create(ctx context.Context, a *Alert) error
	Save(ctx context.Context, a *Alert) error
	FindByID(ctx context.Context, id string) (*Alert, error)
	List(ctx context.Context, filter Filter) ([]Alert, error)
	// HasUnresolved reports whether an unresolved alert exists for {type, sku}
	HasUnresolved(ctx context.Context, t Type, sku string) (bool, error)
	// FindUnresolvedBefore returns unresolved alerts created before cutoff
	FindUnresolvedBefore(ctx context.Context, cutoff time.Time) ([]Alert, error)
	// DeleteRemovable physically removes resolved alerts whose RemoveAfter is at or before now
	DeleteRemovable(ctx context.Context, now time.Time) (int64, error)
	// CountUnresolvedBySeverity counts open alerts per severity
	CountUnresolvedBySeverity(ctx context.Context) (map[Severity]int, error)
}
