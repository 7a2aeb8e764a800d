package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/YKLee98/naver-sub003/internal/domain/integration"
)

// MappingModel is the persistence model for the Mapping domain entity.
type MappingModel struct {
	BaseModel
	SKU                    string                    `gorm:"type:varchar(100);not null;uniqueIndex:idx_product_mappings_sku"`
	ProductName            string                    `gorm:"type:varchar(255)"`
	Vendor                 string                    `gorm:"type:varchar(100);index:idx_product_mappings_vendor"`
	Category               string                    `gorm:"type:varchar(100)"`
	Brand                  string                    `gorm:"type:varchar(100)"`
	NaverProductID         string                    `gorm:"type:varchar(100);not null;index:idx_product_mappings_naver_product"`
	ShopifyProductID       string                    `gorm:"type:varchar(100)"`
	ShopifyVariantID       string                    `gorm:"type:varchar(100);not null;index:idx_product_mappings_shopify_variant"`
	ShopifyInventoryItemID string                    `gorm:"type:varchar(100);index:idx_product_mappings_inventory_item"`
	ShopifyLocationID      string                    `gorm:"type:varchar(100)"`
	Margin                 decimal.Decimal           `gorm:"type:decimal(10,4);not null"`
	IsActive               bool                      `gorm:"not null;index:idx_product_mappings_active"`
	Status                 integration.MappingStatus `gorm:"type:varchar(20);not null"`
	SyncStatus             integration.SyncStatus    `gorm:"type:varchar(20);not null;index:idx_product_mappings_sync_status"`
	NaverQuantity          int                       `gorm:"not null"`
	NaverQuantityAt        *time.Time
	ShopifyQuantity        int `gorm:"not null"`
	ShopifyQuantityAt      *time.Time
	NaverPrice             decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ShopifyPrice           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ExchangeRate           decimal.Decimal `gorm:"type:decimal(18,8);not null"`
	LastSyncedAt           *time.Time      `gorm:"index"`
	LastError              string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (MappingModel) TableName() string {
	return "product_mappings"
}

// ToDomain converts the persistence model to a domain Mapping entity.
func (m *MappingModel) ToDomain() *integration.Mapping {
	return &integration.Mapping{
		BaseEntity:             m.BaseModel.ToDomain(),
		SKU:                    m.SKU,
		ProductName:            m.ProductName,
		Vendor:                 m.Vendor,
		Category:               m.Category,
		Brand:                  m.Brand,
		NaverProductID:         m.NaverProductID,
		ShopifyProductID:       m.ShopifyProductID,
		ShopifyVariantID:       m.ShopifyVariantID,
		ShopifyInventoryItemID: m.ShopifyInventoryItemID,
		ShopifyLocationID:      m.ShopifyLocationID,
		Margin:                 m.Margin,
		IsActive:               m.IsActive,
		Status:                 m.Status,
		SyncStatus:             m.SyncStatus,
		NaverInventory: integration.PlatformInventory{
			AvailableQty: m.NaverQuantity,
			LastUpdate:   m.NaverQuantityAt,
		},
		ShopifyInventory: integration.PlatformInventory{
			AvailableQty: m.ShopifyQuantity,
			LastUpdate:   m.ShopifyQuantityAt,
		},
		NaverPrice:   m.NaverPrice,
		ShopifyPrice: m.ShopifyPrice,
		ExchangeRate: m.ExchangeRate,
		LastSyncedAt: m.LastSyncedAt,
		LastError:    m.LastError,
	}
}

// FromDomain populates the persistence model from a domain Mapping entity.
func (m *MappingModel) FromDomain(e *integration.Mapping) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.SKU = e.SKU
	m.ProductName = e.ProductName
	m.Vendor = e.Vendor
	m.Category = e.Category
	m.Brand = e.Brand
	m.NaverProductID = e.NaverProductID
	m.ShopifyProductID = e.ShopifyProductID
	m.ShopifyVariantID = e.ShopifyVariantID
	m.ShopifyInventoryItemID = e.ShopifyInventoryItemID
	m.ShopifyLocationID = e.ShopifyLocationID
	m.Margin = e.Margin
	m.IsActive = e.IsActive
	m.Status = e.Status
	m.SyncStatus = e.SyncStatus
	m.NaverQuantity = e.NaverInventory.AvailableQty
	m.NaverQuantityAt = e.NaverInventory.LastUpdate
	m.ShopifyQuantity = e.ShopifyInventory.AvailableQty
	m.ShopifyQuantityAt = e.ShopifyInventory.LastUpdate
	m.NaverPrice = e.NaverPrice
	m.ShopifyPrice = e.ShopifyPrice
	m.ExchangeRate = e.ExchangeRate
	m.LastSyncedAt = e.LastSyncedAt
	m.LastError = e.LastError
}

// MappingModelFromDomain creates a new persistence model from a domain Mapping entity.
func MappingModelFromDomain(e *integration.Mapping) *MappingModel {
	m := &MappingModel{}
	m.FromDomain(e)
	return m
}
