package integration

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/YKLee98/naver-sub003/internal/domain/shared"
)

// Mapping errors
var (
	ErrMappingInvalidSKU       = errors.New("integration: mapping SKU is required")
	ErrMappingMissingNaverID   = errors.New("integration: naver product id is required")
	ErrMappingMissingShopifyID = errors.New("integration: shopify variant id is required")
	ErrMappingNegativeMargin   = errors.New("integration: margin cannot be negative")
	ErrMappingNegativeQuantity = errors.New("integration: quantity cannot be negative")
	ErrMappingNotFound         = errors.New("integration: mapping not found")
	ErrMappingDuplicateSKU     = errors.New("integration: mapping for SKU already exists")
	ErrMappingInactive         = errors.New("integration: mapping is inactive")
)

// MappingStatus is the lifecycle state of a mapping
type MappingStatus string

const (
	MappingStatusActive   MappingStatus = "ACTIVE"
	MappingStatusInactive MappingStatus = "INACTIVE"
	MappingStatusError    MappingStatus = "ERROR"
	MappingStatusPending  MappingStatus = "PENDING"
)

// IsValid returns true if the status is known
func (s MappingStatus) IsValid() bool {
	switch s {
	case MappingStatusActive, MappingStatusInactive, MappingStatusError, MappingStatusPending:
		return true
	}
	return false
}

// SyncStatus is the outcome of the latest reconciliation
type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusPending SyncStatus = "pending"
	SyncStatusError   SyncStatus = "error"
)

// IsValid returns true if the sync status is known
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusSynced, SyncStatusPending, SyncStatusError:
		return true
	}
	return false
}

// PlatformInventory is the last quantity observed or written on one catalog
type PlatformInventory struct {
	AvailableQty int
	LastUpdate   *time.Time
}

// ---------------------------------------------------------------------------
// Mapping Entity
// ---------------------------------------------------------------------------

// Mapping links a Naver product to a Shopify variant for one SKU.
// Quantities and prices here are caches; the ledger is the history.
type Mapping struct {
	shared.BaseEntity

	SKU         string
	ProductName string
	Vendor      string
	Category    string
	Brand       string

	NaverProductID string

	ShopifyProductID       string
	ShopifyVariantID       string
	ShopifyInventoryItemID string
	ShopifyLocationID      string

	// Margin is a fraction, 0.15 means 15% on top of the converted price
	Margin decimal.Decimal

	IsActive   bool
	Status     MappingStatus
	SyncStatus SyncStatus

	NaverInventory   PlatformInventory
	ShopifyInventory PlatformInventory

	NaverPrice   decimal.Decimal
	ShopifyPrice decimal.Decimal
	ExchangeRate decimal.Decimal

	LastSyncedAt *time.Time
	LastError    string
}

// NewMappingParams holds constructor input
type NewMappingParams struct {
	SKU                    string
	ProductName            string
	Vendor                 string
	Category               string
	Brand                  string
	NaverProductID         string
	ShopifyProductID       string
	ShopifyVariantID       string
	ShopifyInventoryItemID string
	ShopifyLocationID      string
	Margin                 decimal.Decimal
}

// NewMapping creates a pending mapping
func NewMapping(p NewMappingParams, now time.Time) (*Mapping, error) {
	sku := strings.TrimSpace(p.SKU)
	if sku == "" {
		return nil, ErrMappingInvalidSKU
	}
	if p.NaverProductID == "" {
		return nil, ErrMappingMissingNaverID
	}
	if p.ShopifyVariantID == "" {
		return nil, ErrMappingMissingShopifyID
	}
	if p.Margin.IsNegative() {
		return nil, ErrMappingNegativeMargin
	}

	return &Mapping{
		BaseEntity:             shared.NewBaseEntity(now),
		SKU:                    sku,
		ProductName:            p.ProductName,
		Vendor:                 p.Vendor,
		Category:               p.Category,
		Brand:                  p.Brand,
		NaverProductID:         p.NaverProductID,
		ShopifyProductID:       p.ShopifyProductID,
		ShopifyVariantID:       p.ShopifyVariantID,
		ShopifyInventoryItemID: p.ShopifyInventoryItemID,
		ShopifyLocationID:      p.ShopifyLocationID,
		Margin:                 p.Margin,
		IsActive:               true,
		Status:                 MappingStatusPending,
		SyncStatus:             SyncStatusPending,
	}, nil
}

// Ref returns the product address of this mapping on platform
func (m *Mapping) Ref(platform PlatformCode) ProductRef {
	if platform == PlatformNaver {
		return ProductRef{SKU: m.SKU, ProductID: m.NaverProductID}
	}
	return ProductRef{
		SKU:             m.SKU,
		ProductID:       m.ShopifyProductID,
		VariantID:       m.ShopifyVariantID,
		InventoryItemID: m.ShopifyInventoryItemID,
		LocationID:      m.ShopifyLocationID,
	}
}

// Quantity returns the cached quantity for platform
func (m *Mapping) Quantity(platform PlatformCode) int {
	if platform == PlatformNaver {
		return m.NaverInventory.AvailableQty
	}
	return m.ShopifyInventory.AvailableQty
}

// SetQuantity overwrites the cached quantity for platform
func (m *Mapping) SetQuantity(platform PlatformCode, qty int, at time.Time) {
	inv := PlatformInventory{AvailableQty: qty, LastUpdate: &at}
	if platform == PlatformNaver {
		m.NaverInventory = inv
	} else {
		m.ShopifyInventory = inv
	}
	m.Touch(at)
}

// Price returns the cached price on platform
func (m *Mapping) Price(platform PlatformCode) decimal.Decimal {
	if platform == PlatformNaver {
		return m.NaverPrice
	}
	return m.ShopifyPrice
}

// SetPrice overwrites the cached price on platform
func (m *Mapping) SetPrice(platform PlatformCode, price decimal.Decimal, at time.Time) {
	if platform == PlatformNaver {
		m.NaverPrice = price
	} else {
		m.ShopifyPrice = price
	}
	m.Touch(at)
}

// Activate makes the mapping eligible for reconciliation
func (m *Mapping) Activate(at time.Time) {
	m.IsActive = true
	m.Status = MappingStatusActive
	m.Touch(at)
}

// Deactivate takes the mapping out of reconciliation without deleting it
func (m *Mapping) Deactivate(at time.Time) {
	m.IsActive = false
	m.Status = MappingStatusInactive
	m.Touch(at)
}

// RecordSyncSuccess marks a successful reconciliation
func (m *Mapping) RecordSyncSuccess(at time.Time) {
	m.SyncStatus = SyncStatusSynced
	m.LastSyncedAt = &at
	m.LastError = ""
	if m.IsActive {
		m.Status = MappingStatusActive
	}
	m.Touch(at)
}

// RecordSyncFailure marks a failed reconciliation
func (m *Mapping) RecordSyncFailure(err error, at time.Time) {
	m.SyncStatus = SyncStatusError
	m.Status = MappingStatusError
	if err != nil {
		m.LastError = err.Error()
	}
	m.Touch(at)
}

// MatchesInventoryLevel reports whether an inventory level key addresses this mapping.
// An empty location on the mapping matches any location.
func (m *Mapping) MatchesInventoryLevel(inventoryItemID, locationID string) bool {
	if m.ShopifyInventoryItemID == "" || m.ShopifyInventoryItemID != inventoryItemID {
		return false
	}
	return m.ShopifyLocationID == "" || locationID == "" || m.ShopifyLocationID == locationID
}

// ---------------------------------------------------------------------------
// Repository
// ---------------------------------------------------------------------------

// MappingFilter narrows mapping listings
type MappingFilter struct {
	shared.Filter
	IsActive   *bool
	SyncStatus *SyncStatus
	Vendor     string
	Search     string
}

// MappingReader is the read side of the mapping store
type MappingReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Mapping, error)
	FindBySKU(ctx context.Context, sku string) (*Mapping, error)
	FindByShopifyVariantID(ctx context.Context, variantID string) (*Mapping, error)
	FindByInventoryItem(ctx context.Context, inventoryItemID, locationID string) (*Mapping, error)
	FindActive(ctx context.Context) ([]Mapping, error)
	List(ctx context.Context, filter MappingFilter) ([]Mapping, int64, error)
}

// MappingWriter is the write side of the mapping store.
// Save is last-write-wins; there is no version column.
type MappingWriter interface {
	Create(ctx context.Context, mapping *Mapping) error
	Save(ctx context.Context, mapping *Mapping) error
}

// MappingRepository combines reads and writes
type MappingRepository interface {
	MappingReader
	MappingWriter
}
