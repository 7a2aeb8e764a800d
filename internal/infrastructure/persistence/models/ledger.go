package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/inventory"
)

// InventoryTransactionModel is the persistence model for ledger entries.
// Rows are only ever inserted.
type InventoryTransactionModel struct {
	ID               uuid.UUID                 `gorm:"type:uuid;primary_key"`
	SKU              string                    `gorm:"type:varchar(100);not null;index:idx_inventory_tx_sku_platform,priority:1"`
	Platform         integration.PlatformCode  `gorm:"type:varchar(20);not null;index:idx_inventory_tx_sku_platform,priority:2"`
	Type             inventory.TransactionType `gorm:"type:varchar(20);not null;index:idx_inventory_tx_type"`
	PreviousQuantity int                       `gorm:"not null"`
	NewQuantity      int                       `gorm:"not null"`
	Delta            int                       `gorm:"not null"`
	Reason           string                    `gorm:"type:text"`
	InitiatedBy      string                    `gorm:"type:varchar(100);not null"`
	OrderID          string                    `gorm:"type:varchar(100);index:idx_inventory_tx_order"`
	CreatedAt        time.Time                 `gorm:"not null;index:idx_inventory_tx_sku_platform,priority:3"`
}

// TableName returns the table name for GORM
func (InventoryTransactionModel) TableName() string {
	return "inventory_transactions"
}

// ToDomain converts the persistence model to a domain ledger entry
func (m *InventoryTransactionModel) ToDomain() *inventory.InventoryTransaction {
	return &inventory.InventoryTransaction{
		ID:               m.ID,
		SKU:              m.SKU,
		Platform:         m.Platform,
		Type:             m.Type,
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		Delta:            m.Delta,
		Reason:           m.Reason,
		InitiatedBy:      m.InitiatedBy,
		OrderID:          m.OrderID,
		CreatedAt:        m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain ledger entry
func (m *InventoryTransactionModel) FromDomain(t *inventory.InventoryTransaction) {
	m.ID = t.ID
	m.SKU = t.SKU
	m.Platform = t.Platform
	m.Type = t.Type
	m.PreviousQuantity = t.PreviousQuantity
	m.NewQuantity = t.NewQuantity
	m.Delta = t.Delta
	m.Reason = t.Reason
	m.InitiatedBy = t.InitiatedBy
	m.OrderID = t.OrderID
	m.CreatedAt = t.CreatedAt
}

// InventoryTransactionModelFromDomain creates a new persistence model from a ledger entry
func InventoryTransactionModelFromDomain(t *inventory.InventoryTransaction) *InventoryTransactionModel {
	m := &InventoryTransactionModel{}
	m.FromDomain(t)
	return m
}
