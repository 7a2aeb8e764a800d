package testutil

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
)

// FakePlatform is an in-memory integration.CatalogPlatform keyed by SKU
type FakePlatform struct {
	code integration.PlatformCode

	mu         sync.Mutex
	quantities map[string]int
	prices     map[string]decimal.Decimal
	failures   map[string]error
	writeErrs  map[string]error
	writes     int
}

// NewFakePlatform creates an empty fake catalog
func NewFakePlatform(code integration.PlatformCode) *FakePlatform {
	return &FakePlatform{
		code:       code,
		quantities: make(map[string]int),
		prices:     make(map[string]decimal.Decimal),
		failures:   make(map[string]error),
		writeErrs:  make(map[string]error),
	}
}

// SetQuantity seeds a quantity
func (p *FakePlatform) SetQuantity(sku string, qty int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quantities[sku] = qty
}

// SetPrice seeds a price
func (p *FakePlatform) SetPrice(sku, price string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[sku] = decimal.RequireFromString(price)
}

// FailSKU makes every call for sku return err
func (p *FakePlatform) FailSKU(sku string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[sku] = err
}

// FailWrites makes writes for sku return err while reads keep working
func (p *FakePlatform) FailWrites(sku string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErrs[sku] = err
}

// Quantity returns the current quantity for sku
func (p *FakePlatform) Quantity(sku string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quantities[sku]
}

// Price returns the current price for sku
func (p *FakePlatform) Price(sku string) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prices[sku]
}

// Writes returns the number of successful writes
func (p *FakePlatform) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// Code implements integration.CatalogPlatform
func (p *FakePlatform) Code() integration.PlatformCode { return p.code }

func (p *FakePlatform) read(ref integration.ProductRef) error {
	if err := p.failures[ref.SKU]; err != nil {
		return err
	}
	return nil
}

func (p *FakePlatform) write(ref integration.ProductRef) error {
	if err := p.read(ref); err != nil {
		return err
	}
	return p.writeErrs[ref.SKU]
}

// GetInventory implements integration.CatalogPlatform
func (p *FakePlatform) GetInventory(_ context.Context, ref integration.ProductRef) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.read(ref); err != nil {
		return 0, err
	}
	q, ok := p.quantities[ref.SKU]
	if !ok {
		return 0, shared.NewUnresolvedMappingError(ref.SKU)
	}
	return q, nil
}

// UpdateInventory implements integration.CatalogPlatform
func (p *FakePlatform) UpdateInventory(_ context.Context, ref integration.ProductRef, qty int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.write(ref); err != nil {
		return err
	}
	p.quantities[ref.SKU] = qty
	p.writes++
	return nil
}

// GetPrice implements integration.CatalogPlatform
func (p *FakePlatform) GetPrice(_ context.Context, ref integration.ProductRef) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.read(ref); err != nil {
		return decimal.Zero, err
	}
	v, ok := p.prices[ref.SKU]
	if !ok {
		return decimal.Zero, shared.NewUnresolvedMappingError(ref.SKU)
	}
	return v, nil
}

// UpdatePrice implements integration.CatalogPlatform
func (p *FakePlatform) UpdatePrice(_ context.Context, ref integration.ProductRef, price decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.write(ref); err != nil {
		return err
	}
	p.prices[ref.SKU] = price
	p.writes++
	return nil
}

// FakeRateProvider returns a fixed quote and counts calls
type FakeRateProvider struct {
	mu    sync.Mutex
	Rate  decimal.Decimal
	Err   error
	calls int
}

// FetchRate implements integration.RateProvider
func (p *FakeRateProvider) FetchRate(_ context.Context, _, _ string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.Err != nil {
		return decimal.Zero, p.Err
	}
	return p.Rate, nil
}

// Calls returns how many quotes were requested
func (p *FakeRateProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

var (
	_ integration.CatalogPlatform = (*FakePlatform)(nil)
	_ integration.RateProvider    = (*FakeRateProvider)(nil)
)
