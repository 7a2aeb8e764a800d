package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
)

// TransactionType represents the kind of ledger entry
type TransactionType string

const (
	// TransactionTypeSale is a decrement caused by a paid order
	TransactionTypeSale TransactionType = "sale"
	// TransactionTypeAdjustment is a manual or compensating delta
	TransactionTypeAdjustment TransactionType = "adjustment"
	// TransactionTypeSync records a level observed on or pushed to a platform
	TransactionTypeSync TransactionType = "sync"
	// TransactionTypeUpdateFailed records a push to a platform that did not land
	TransactionTypeUpdateFailed TransactionType = "update_failed"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsValid returns true if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeSale,
		TransactionTypeAdjustment,
		TransactionTypeSync,
		TransactionTypeUpdateFailed:
		return true
	}
	return false
}

// InventoryTransaction is an append-only ledger entry.
// Corrections are new entries; the latest entry per SKU+platform is authoritative.
type InventoryTransaction struct {
	ID               uuid.UUID
	SKU              string
	Platform         integration.PlatformCode
	Type             TransactionType
	PreviousQuantity int
	NewQuantity      int
	Delta            int
	Reason           string
	InitiatedBy      string
	OrderID          string
	CreatedAt        time.Time
}

// NewTransactionParams holds constructor input
type NewTransactionParams struct {
	SKU              string
	Platform         integration.PlatformCode
	Type             TransactionType
	PreviousQuantity int
	NewQuantity      int
	Reason           string
	InitiatedBy      string
	OrderID          string
}

// NewInventoryTransaction creates a ledger entry. Delta is derived from the two quantities.
func NewInventoryTransaction(p NewTransactionParams, now time.Time) (*InventoryTransaction, error) {
	if strings.TrimSpace(p.SKU) == "" {
		return nil, shared.NewFieldError("INVALID_SKU", "SKU cannot be empty")
	}
	if !p.Platform.IsValid() {
		return nil, shared.NewFieldError("INVALID_PLATFORM", "Invalid platform")
	}
	if !p.Type.IsValid() {
		return nil, shared.NewFieldError("INVALID_TRANSACTION_TYPE", "Invalid transaction type")
	}
	if p.NewQuantity < 0 {
		return nil, shared.NewFieldError("INVALID_QUANTITY", "Resulting quantity cannot be negative")
	}
	if p.InitiatedBy == "" {
		p.InitiatedBy = "system"
	}

	return &InventoryTransaction{
		ID:               uuid.New(),
		SKU:              p.SKU,
		Platform:         p.Platform,
		Type:             p.Type,
		PreviousQuantity: p.PreviousQuantity,
		NewQuantity:      p.NewQuantity,
		Delta:            p.NewQuantity - p.PreviousQuantity,
		Reason:           p.Reason,
		InitiatedBy:      p.InitiatedBy,
		OrderID:          p.OrderID,
		CreatedAt:        now,
	}, nil
}

// IsIncrease returns true if the entry raised the quantity
func (t *InventoryTransaction) IsIncrease() bool {
	return t.Delta > 0
}

// TransactionFilter narrows ledger queries
type TransactionFilter struct {
	SKU      string
	Platform *integration.PlatformCode
	Type     *TransactionType
	OrderID  string
	Since    *time.Time
	Limit    int
}

// TransactionRepository is the ledger store. There is no update or delete.
type TransactionRepository interface {
	Append(ctx context.Context, tx *InventoryTransaction) error
	// FindLatest returns the newest entry for sku on platform or shared.ErrNotFound
	FindLatest(ctx context.Context, sku string, platform integration.PlatformCode) (*InventoryTransaction, error)
	// List returns entries newest first
	List(ctx context.Context, filter TransactionFilter) ([]InventoryTransaction, error)
	Count(ctx context.Context, filter TransactionFilter) (int64, error)
}
