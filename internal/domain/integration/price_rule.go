package integration

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/YKLee98/naver-sub003/internal/domain/shared"
)

// Price rule errors
var (
	ErrPriceRuleInvalidType   = errors.New("integration: invalid price rule type")
	ErrPriceRuleMissingTarget = errors.New("integration: price rule target is required")
	ErrPriceRuleInvalidRange  = errors.New("integration: price range min must not exceed max")
	ErrInvalidRounding        = errors.New("integration: invalid rounding strategy")
)

// PriceRuleType determines what a rule matches on
type PriceRuleType string

const (
	PriceRuleSKU        PriceRuleType = "sku"
	PriceRuleCategory   PriceRuleType = "category"
	PriceRuleBrand      PriceRuleType = "brand"
	PriceRulePriceRange PriceRuleType = "price_range"
	PriceRuleDefault    PriceRuleType = "default"
)

// priority: lower wins
var priceRulePriority = map[PriceRuleType]int{
	PriceRuleSKU:        0,
	PriceRuleCategory:   1,
	PriceRuleBrand:      2,
	PriceRulePriceRange: 3,
	PriceRuleDefault:    4,
}

// IsValid returns true if the rule type is known
func (t PriceRuleType) IsValid() bool {
	_, ok := priceRulePriority[t]
	return ok
}

// Priority returns the selection rank of the type; lower is preferred
func (t PriceRuleType) Priority() int {
	if p, ok := priceRulePriority[t]; ok {
		return p
	}
	return len(priceRulePriority)
}

// RoundingStrategy controls how a computed price is rounded to cents
type RoundingStrategy string

const (
	RoundUp      RoundingStrategy = "up"
	RoundDown    RoundingStrategy = "down"
	RoundNearest RoundingStrategy = "nearest"
)

// IsValid returns true if the strategy is known
func (s RoundingStrategy) IsValid() bool {
	switch s {
	case RoundUp, RoundDown, RoundNearest:
		return true
	}
	return false
}

// Apply rounds price to two decimal places
func (s RoundingStrategy) Apply(price decimal.Decimal) decimal.Decimal {
	switch s {
	case RoundUp:
		return price.RoundCeil(2)
	case RoundDown:
		return price.RoundFloor(2)
	default:
		return price.Round(2)
	}
}

// PriceRule supplies the margin for matching mappings
type PriceRule struct {
	shared.BaseEntity

	Name     string
	Type     PriceRuleType
	SKU      string
	Category string
	Brand    string
	// MinPrice and MaxPrice bound the source (KRW) price, both inclusive
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Margin   decimal.Decimal
	IsActive bool
}

// Validate checks the rule is internally consistent
func (r *PriceRule) Validate() error {
	if !r.Type.IsValid() {
		return ErrPriceRuleInvalidType
	}
	if r.Margin.IsNegative() {
		return ErrMappingNegativeMargin
	}
	switch r.Type {
	case PriceRuleSKU:
		if r.SKU == "" {
			return ErrPriceRuleMissingTarget
		}
	case PriceRuleCategory:
		if r.Category == "" {
			return ErrPriceRuleMissingTarget
		}
	case PriceRuleBrand:
		if r.Brand == "" {
			return ErrPriceRuleMissingTarget
		}
	case PriceRulePriceRange:
		if r.MinPrice == nil && r.MaxPrice == nil {
			return ErrPriceRuleMissingTarget
		}
		if r.MinPrice != nil && r.MaxPrice != nil && r.MinPrice.GreaterThan(*r.MaxPrice) {
			return ErrPriceRuleInvalidRange
		}
	}
	return nil
}

// Matches reports whether the rule applies to m at the given source price
func (r *PriceRule) Matches(m *Mapping, sourcePrice decimal.Decimal) bool {
	if !r.IsActive {
		return false
	}
	switch r.Type {
	case PriceRuleSKU:
		return r.SKU == m.SKU
	case PriceRuleCategory:
		return m.Category != "" && strings.EqualFold(r.Category, m.Category)
	case PriceRuleBrand:
		return m.Brand != "" && strings.EqualFold(r.Brand, m.Brand)
	case PriceRulePriceRange:
		if r.MinPrice != nil && sourcePrice.LessThan(*r.MinPrice) {
			return false
		}
		if r.MaxPrice != nil && sourcePrice.GreaterThan(*r.MaxPrice) {
			return false
		}
		return true
	case PriceRuleDefault:
		return true
	}
	return false
}

// SelectPriceRule picks the highest-priority matching rule.
// Ties within a type keep the caller's order. Returns nil when nothing matches.
func SelectPriceRule(rules []PriceRule, m *Mapping, sourcePrice decimal.Decimal) *PriceRule {
	candidates := make([]*PriceRule, 0, len(rules))
	for i := range rules {
		if rules[i].Matches(m, sourcePrice) {
			candidates = append(candidates, &rules[i])
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Type.Priority() < candidates[j].Type.Priority()
	})
	return candidates[0]
}

// PriceRuleRepository persists price rules
type PriceRuleRepository interface {
	FindActive(ctx context.Context) ([]PriceRule, error)
	Save(ctx context.Context, rule *PriceRule) error
}
