package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/YKLee98/naver-sub003/internal/domain/integration"
)

// ExchangeRateModel is the persistence model for exchange rate records
type ExchangeRateModel struct {
	BaseModel
	BaseCurrency   string                 `gorm:"type:varchar(3);not null;index:idx_exchange_rates_pair,priority:1"`
	TargetCurrency string                 `gorm:"type:varchar(3);not null;index:idx_exchange_rates_pair,priority:2"`
	Rate           decimal.Decimal        `gorm:"type:decimal(18,8);not null"`
	Source         integration.RateSource `gorm:"type:varchar(20);not null"`
	IsActive       bool                   `gorm:"not null;index:idx_exchange_rates_pair,priority:3"`
	Reason         string                 `gorm:"type:text"`
	ValidFrom      time.Time              `gorm:"not null"`
	ValidUntil     *time.Time
}

// TableName returns the table name for GORM
func (ExchangeRateModel) TableName() string {
	return "exchange_rates"
}

// ToDomain converts the persistence model to a domain ExchangeRate
func (m *ExchangeRateModel) ToDomain() *integration.ExchangeRate {
	return &integration.ExchangeRate{
		BaseEntity:     m.BaseModel.ToDomain(),
		BaseCurrency:   m.BaseCurrency,
		TargetCurrency: m.TargetCurrency,
		Rate:           m.Rate,
		Source:         m.Source,
		IsActive:       m.IsActive,
		Reason:         m.Reason,
		ValidFrom:      m.ValidFrom,
		ValidUntil:     m.ValidUntil,
	}
}

// FromDomain populates the persistence model from a domain ExchangeRate
func (m *ExchangeRateModel) FromDomain(r *integration.ExchangeRate) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.BaseCurrency = r.BaseCurrency
	m.TargetCurrency = r.TargetCurrency
	m.Rate = r.Rate
	m.Source = r.Source
	m.IsActive = r.IsActive
	m.Reason = r.Reason
	m.ValidFrom = r.ValidFrom
	m.ValidUntil = r.ValidUntil
}

// ExchangeRateModelFromDomain creates a new persistence model from a domain ExchangeRate
func ExchangeRateModelFromDomain(r *integration.ExchangeRate) *ExchangeRateModel {
	m := &ExchangeRateModel{}
	m.FromDomain(r)
	return m
}

// PriceRuleModel is the persistence model for price rules
type PriceRuleModel struct {
	BaseModel
	Name     string                    `gorm:"type:varchar(100);not null"`
	Type     integration.PriceRuleType `gorm:"type:varchar(20);not null;index:idx_price_rules_type"`
	SKU      string                    `gorm:"type:varchar(100)"`
	Category string                    `gorm:"type:varchar(100)"`
	Brand    string                    `gorm:"type:varchar(100)"`
	MinPrice decimal.NullDecimal       `gorm:"type:decimal(18,4)"`
	MaxPrice decimal.NullDecimal       `gorm:"type:decimal(18,4)"`
	Margin   decimal.Decimal           `gorm:"type:decimal(10,4);not null"`
	IsActive bool                      `gorm:"not null;index:idx_price_rules_active"`
}

// TableName returns the table name for GORM
func (PriceRuleModel) TableName() string {
	return "price_rules"
}

// ToDomain converts the persistence model to a domain PriceRule
func (m *PriceRuleModel) ToDomain() *integration.PriceRule {
	r := &integration.PriceRule{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
		Type:       m.Type,
		SKU:        m.SKU,
		Category:   m.Category,
		Brand:      m.Brand,
		Margin:     m.Margin,
		IsActive:   m.IsActive,
	}
	if m.MinPrice.Valid {
		v := m.MinPrice.Decimal
		r.MinPrice = &v
	}
	if m.MaxPrice.Valid {
		v := m.MaxPrice.Decimal
		r.MaxPrice = &v
	}
	return r
}

// FromDomain populates the persistence model from a domain PriceRule
func (m *PriceRuleModel) FromDomain(r *integration.PriceRule) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.Name = r.Name
	m.Type = r.Type
	m.SKU = r.SKU
	m.Category = r.Category
	m.Brand = r.Brand
	m.Margin = r.Margin
	m.IsActive = r.IsActive
	m.MinPrice = decimal.NullDecimal{}
	m.MaxPrice = decimal.NullDecimal{}
	if r.MinPrice != nil {
		m.MinPrice = decimal.NewNullDecimal(*r.MinPrice)
	}
	if r.MaxPrice != nil {
		m.MaxPrice = decimal.NewNullDecimal(*r.MaxPrice)
	}
}

// PriceRuleModelFromDomain creates a new persistence model from a domain PriceRule
func PriceRuleModelFromDomain(r *integration.PriceRule) *PriceRuleModel {
	m := &PriceRuleModel{}
	m.FromDomain(r)
	return m
}
