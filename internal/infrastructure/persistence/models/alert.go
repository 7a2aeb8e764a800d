package models

import (
	"encoding/json"
	"time"

	"github.com/YKLee98/naver-sub003/internal/domain/alert"
)

// AlertModel is the persistence model for alerts
type AlertModel struct {
	ID          string         `gorm:"type:varchar(200);primary_key"`
	Type        alert.Type     `gorm:"type:varchar(30);not null;index:idx_alerts_type_sku,priority:1"`
	Severity    alert.Severity `gorm:"type:varchar(20);not null"`
	SKU         string         `gorm:"type:varchar(100);not null;index:idx_alerts_type_sku,priority:2"`
	Message     string         `gorm:"type:text"`
	DetailsJSON string         `gorm:"type:text;column:details"`
	Resolved    bool           `gorm:"not null;index:idx_alerts_resolved"`
	ResolvedAt  *time.Time
	ResolvedBy  string     `gorm:"type:varchar(100)"`
	RemoveAfter *time.Time `gorm:"index:idx_alerts_remove_after"`
	CreatedAt   time.Time  `gorm:"not null;index:idx_alerts_created_at"`
}

// TableName returns the table name for GORM
func (AlertModel) TableName() string {
	return "alerts"
}

// ToDomain converts the persistence model to a domain Alert
func (m *AlertModel) ToDomain() *alert.Alert {
	a := &alert.Alert{
		ID:          m.ID,
		Type:        m.Type,
		Severity:    m.Severity,
		SKU:         m.SKU,
		Message:     m.Message,
		Details:     map[string]any{},
		Resolved:    m.Resolved,
		ResolvedAt:  m.ResolvedAt,
		ResolvedBy:  m.ResolvedBy,
		RemoveAfter: m.RemoveAfter,
		CreatedAt:   m.CreatedAt,
	}
	if m.DetailsJSON != "" {
		var details map[string]any
		if err := json.Unmarshal([]byte(m.DetailsJSON), &details); err == nil && details != nil {
			a.Details = details
		}
	}
	return a
}

// FromDomain populates the persistence model from a domain Alert
func (m *AlertModel) FromDomain(a *alert.Alert) {
	m.ID = a.ID
	m.Type = a.Type
	m.Severity = a.Severity
	m.SKU = a.SKU
	m.Message = a.Message
	m.Resolved = a.Resolved
	m.ResolvedAt = a.ResolvedAt
	m.ResolvedBy = a.ResolvedBy
	m.RemoveAfter = a.RemoveAfter
	m.CreatedAt = a.CreatedAt

	m.DetailsJSON = "{}"
	if len(a.Details) > 0 {
		if jsonBytes, err := json.Marshal(a.Details); err == nil {
			m.DetailsJSON = string(jsonBytes)
		}
	}
}

// AlertModelFromDomain creates a new persistence model from a domain Alert
func AlertModelFromDomain(a *alert.Alert) *AlertModel {
	m := &AlertModel{}
	m.FromDomain(a)
	return m
}
