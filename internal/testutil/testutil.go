// Package testutil provides in-memory stores, fake platforms and a manual clock
// for application-layer tests.
package testutil

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/YKLee98/naver-sub003/internal/domain/integration"
)

// Epoch is the default start time of a ManualClock
var Epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// ManualClock is a shared.Clock that only moves when told to
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock stopped at start, or Epoch when start is zero
func NewManualClock(start time.Time) *ManualClock {
	if start.IsZero() {
		start = Epoch
	}
	return &ManualClock{now: start}
}

// Now returns the current fake time
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// MappingOption customizes NewMapping
type MappingOption func(*integration.Mapping)

// WithQuantities sets both cached quantities
func WithQuantities(naver, shopify int) MappingOption {
	return func(m *integration.Mapping) {
		m.SetQuantity(integration.PlatformNaver, naver, m.CreatedAt)
		m.SetQuantity(integration.PlatformShopify, shopify, m.CreatedAt)
	}
}

// WithPrices sets both cached prices
func WithPrices(naver, shopify string) MappingOption {
	return func(m *integration.Mapping) {
		m.NaverPrice = decimal.RequireFromString(naver)
		m.ShopifyPrice = decimal.RequireFromString(shopify)
	}
}

// WithCategory sets category and brand
func WithCategory(category, brand string) MappingOption {
	return func(m *integration.Mapping) {
		m.Category = category
		m.Brand = brand
	}
}

// Inactive deactivates the mapping
func Inactive() MappingOption {
	return func(m *integration.Mapping) {
		m.Deactivate(m.CreatedAt)
	}
}

// NewMapping builds an active mapping for sku with deterministic platform ids
func NewMapping(sku string, opts ...MappingOption) *integration.Mapping {
	m, err := integration.NewMapping(integration.NewMappingParams{
		SKU:                    sku,
		ProductName:            "Product " + sku,
		Vendor:                 "acme",
		NaverProductID:         "naver-" + sku,
		ShopifyProductID:       "prod-" + sku,
		ShopifyVariantID:       "var-" + sku,
		ShopifyInventoryItemID: "inv-" + sku,
		ShopifyLocationID:      "loc-1",
		Margin:                 decimal.RequireFromString("0.15"),
	}, Epoch)
	if err != nil {
		panic(err)
	}
	m.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(sku))
	m.Activate(Epoch)
	for _, opt := range opts {
		opt(m)
	}
	return m
}
