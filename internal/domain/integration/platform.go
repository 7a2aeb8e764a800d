package integration

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Errors for platform integrations
var (
	ErrPlatformNotConfigured = errors.New("integration: platform not configured")
	ErrPlatformUnavailable   = errors.New("integration: platform unavailable")
	ErrPlatformRateLimited   = errors.New("integration: platform rate limited")
	ErrPlatformAuthFailed    = errors.New("integration: platform authentication failed")
	ErrPlatformProductAbsent = errors.New("integration: product not found on platform")
	ErrInvalidPlatformCode   = errors.New("integration: invalid platform code")
)

// PlatformCode identifies one of the two catalogs
type PlatformCode string

const (
	PlatformNaver   PlatformCode = "naver"
	PlatformShopify PlatformCode = "shopify"
)

// IsValid returns true if the platform code is known
func (p PlatformCode) IsValid() bool {
	switch p {
	case PlatformNaver, PlatformShopify:
		return true
	}
	return false
}

// String returns the string representation
func (p PlatformCode) String() string {
	return string(p)
}

// Other returns the opposite catalog
func (p PlatformCode) Other() PlatformCode {
	if p == PlatformNaver {
		return PlatformShopify
	}
	return PlatformNaver
}

// Currency returns the ISO currency a platform prices in
func (p PlatformCode) Currency() string {
	if p == PlatformNaver {
		return "KRW"
	}
	return "USD"
}

// ParsePlatformCode converts a raw string into a PlatformCode
func ParsePlatformCode(s string) (PlatformCode, error) {
	p := PlatformCode(s)
	if !p.IsValid() {
		return "", ErrInvalidPlatformCode
	}
	return p, nil
}

// ProductRef addresses one product/variant on a platform
type ProductRef struct {
	SKU             string
	ProductID       string
	VariantID       string
	InventoryItemID string
	LocationID      string
}

// CatalogPlatform is the port for reading and writing one catalog.
// Adapters map transport failures onto the shared error taxonomy.
type CatalogPlatform interface {
	// Code returns the platform this adapter serves
	Code() PlatformCode
	// GetInventory returns the available quantity for ref
	GetInventory(ctx context.Context, ref ProductRef) (int, error)
	// UpdateInventory sets the available quantity for ref
	UpdateInventory(ctx context.Context, ref ProductRef, quantity int) error
	// GetPrice returns the current selling price in the platform's currency
	GetPrice(ctx context.Context, ref ProductRef) (decimal.Decimal, error)
	// UpdatePrice sets the selling price in the platform's currency
	UpdatePrice(ctx context.Context, ref ProductRef, price decimal.Decimal) error
}

// PlatformRegistry resolves adapters by code
type PlatformRegistry struct {
	platforms map[PlatformCode]CatalogPlatform
}

// NewPlatformRegistry builds a registry from the given adapters
func NewPlatformRegistry(platforms ...CatalogPlatform) *PlatformRegistry {
	r := &PlatformRegistry{platforms: make(map[PlatformCode]CatalogPlatform, len(platforms))}
	for _, p := range platforms {
		r.platforms[p.Code()] = p
	}
	return r
}

// Get returns the adapter for code
func (r *PlatformRegistry) Get(code PlatformCode) (CatalogPlatform, error) {
	if r == nil {
		return nil, ErrPlatformNotConfigured
	}
	p, ok := r.platforms[code]
	if !ok {
		return nil, ErrPlatformNotConfigured
	}
	return p, nil
}

// Has reports whether an adapter is registered for code
func (r *PlatformRegistry) Has(code PlatformCode) bool {
	_, err := r.Get(code)
	return err == nil
}

// RateProvider fetches a live exchange rate from an external quote source
type RateProvider interface {
	// FetchRate returns how many units of target one unit of base buys
	FetchRate(ctx context.Context, base, target string) (decimal.Decimal, error)
}
