package integration

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestSelectPriceRule_Priority(t *testing.T) {
	m, err := NewMapping(validMappingParams(), time.Now())
	require.NoError(t, err)
	m.Category = "Albums"
	m.Brand = "HYBE"

	rules := []PriceRule{
		{Name: "default", Type: PriceRuleDefault, Margin: decimal.NewFromFloat(0.10), IsActive: true},
		{Name: "range", Type: PriceRulePriceRange, MinPrice: decPtr(10000), MaxPrice: decPtr(50000), Margin: decimal.NewFromFloat(0.12), IsActive: true},
		{Name: "brand", Type: PriceRuleBrand, Brand: "hybe", Margin: decimal.NewFromFloat(0.14), IsActive: true},
		{Name: "category", Type: PriceRuleCategory, Category: "albums", Margin: decimal.NewFromFloat(0.16), IsActive: true},
		{Name: "sku", Type: PriceRuleSKU, SKU: "ALB-001", Margin: decimal.NewFromFloat(0.20), IsActive: true},
	}
	source := decimal.NewFromInt(20000)

	tests := []struct {
		name string
		drop []string
		want string
	}{
		{"sku wins", nil, "sku"},
		{"category beats brand", []string{"sku"}, "category"},
		{"brand beats range", []string{"sku", "category"}, "brand"},
		{"range beats default", []string{"sku", "category", "brand"}, "range"},
		{"default last", []string{"sku", "category", "brand", "range"}, "default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var pool []PriceRule
			for _, r := range rules {
				skip := false
				for _, d := range tt.drop {
					if r.Name == d {
						skip = true
					}
				}
				if !skip {
					pool = append(pool, r)
				}
			}
			got := SelectPriceRule(pool, m, source)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Name)
		})
	}

	t.Run("inactive and out of range rules are ignored", func(t *testing.T) {
		pool := []PriceRule{
			{Name: "sku", Type: PriceRuleSKU, SKU: "ALB-001", Margin: decimal.NewFromFloat(0.2), IsActive: false},
			{Name: "range", Type: PriceRulePriceRange, MinPrice: decPtr(30000), Margin: decimal.NewFromFloat(0.1), IsActive: true},
		}
		assert.Nil(t, SelectPriceRule(pool, m, source))
	})
}

func TestPriceRule_Validate(t *testing.T) {
	tests := []struct {
		name string
		rule PriceRule
		want error
	}{
		{"unknown type", PriceRule{Type: "weird"}, ErrPriceRuleInvalidType},
		{"sku without target", PriceRule{Type: PriceRuleSKU}, ErrPriceRuleMissingTarget},
		{"range without bounds", PriceRule{Type: PriceRulePriceRange}, ErrPriceRuleMissingTarget},
		{"range inverted", PriceRule{Type: PriceRulePriceRange, MinPrice: decPtr(10), MaxPrice: decPtr(5)}, ErrPriceRuleInvalidRange},
		{"negative margin", PriceRule{Type: PriceRuleDefault, Margin: decimal.NewFromInt(-1)}, ErrMappingNegativeMargin},
		{"valid default", PriceRule{Type: PriceRuleDefault, Margin: decimal.NewFromFloat(0.1)}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRoundingStrategy_Apply(t *testing.T) {
	price := decimal.RequireFromString("17.2551")
	assert.Equal(t, "17.26", RoundUp.Apply(price).StringFixed(2))
	assert.Equal(t, "17.25", RoundDown.Apply(price).StringFixed(2))
	assert.Equal(t, "17.26", RoundNearest.Apply(price).StringFixed(2))
	assert.Equal(t, "17.25", RoundNearest.Apply(decimal.RequireFromString("17.2549")).StringFixed(2))
	assert.False(t, RoundingStrategy("half").IsValid())
}
