package integration

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/YKLee98/naver-sub003/internal/domain/shared"
)

// Exchange rate errors
var (
	ErrRateNotPositive      = errors.New("integration: exchange rate must be positive")
	ErrRateInvalidValidity  = errors.New("integration: validity days must be positive")
	ErrRateReasonRequired   = errors.New("integration: manual rate requires a reason")
	ErrNoActiveExchangeRate = errors.New("integration: no active exchange rate")
)

// RateSource records where a rate came from
type RateSource string

const (
	RateSourceManual RateSource = "manual"
	RateSourceAPI    RateSource = "api"
)

// Default currency pair: Naver prices are KRW, Shopify prices are USD
const (
	BaseCurrency   = "KRW"
	TargetCurrency = "USD"
)

// ExchangeRate converts BaseCurrency into TargetCurrency
type ExchangeRate struct {
	shared.BaseEntity

	BaseCurrency   string
	TargetCurrency string
	Rate           decimal.Decimal
	Source         RateSource
	IsActive       bool
	Reason         string
	ValidFrom      time.Time
	ValidUntil     *time.Time
}

// NewManualExchangeRate builds an active manual rate valid for validDays from now
func NewManualExchangeRate(rate decimal.Decimal, reason string, validDays int, now time.Time) (*ExchangeRate, error) {
	if !rate.IsPositive() {
		return nil, ErrRateNotPositive
	}
	if validDays <= 0 {
		return nil, ErrRateInvalidValidity
	}
	if strings.TrimSpace(reason) == "" {
		return nil, ErrRateReasonRequired
	}
	until := now.AddDate(0, 0, validDays)
	return &ExchangeRate{
		BaseEntity:     shared.NewBaseEntity(now),
		BaseCurrency:   BaseCurrency,
		TargetCurrency: TargetCurrency,
		Rate:           rate,
		Source:         RateSourceManual,
		IsActive:       true,
		Reason:         reason,
		ValidFrom:      now,
		ValidUntil:     &until,
	}, nil
}

// NewLiveExchangeRate wraps a quote fetched from a rate provider. It is never persisted as active.
func NewLiveExchangeRate(rate decimal.Decimal, now time.Time) *ExchangeRate {
	return &ExchangeRate{
		BaseEntity:     shared.NewBaseEntity(now),
		BaseCurrency:   BaseCurrency,
		TargetCurrency: TargetCurrency,
		Rate:           rate,
		Source:         RateSourceAPI,
		ValidFrom:      now,
	}
}

// IsValidAt reports whether t falls inside the validity window
func (r *ExchangeRate) IsValidAt(t time.Time) bool {
	if t.Before(r.ValidFrom) {
		return false
	}
	return r.ValidUntil == nil || t.Before(*r.ValidUntil)
}

// Deactivate clears the active flag
func (r *ExchangeRate) Deactivate(at time.Time) {
	r.IsActive = false
	r.Touch(at)
}

// Convert applies the rate to an amount in BaseCurrency
func (r *ExchangeRate) Convert(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(r.Rate)
}

// ExchangeRateRepository persists rate records
type ExchangeRateRepository interface {
	// FindActive returns the active rate for the pair or shared.ErrNotFound
	FindActive(ctx context.Context, base, target string) (*ExchangeRate, error)
	// ReplaceActive deactivates every active record for the pair and inserts rate, atomically
	ReplaceActive(ctx context.Context, rate *ExchangeRate) error
	// CountActive returns the number of active records for the pair
	CountActive(ctx context.Context, base, target string) (int64, error)
	// ListRecent returns the newest records first
	ListRecent(ctx context.Context, limit int) ([]ExchangeRate, error)
}
