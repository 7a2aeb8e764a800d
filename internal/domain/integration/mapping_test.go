package integration

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validMappingParams() NewMappingParams {
	return NewMappingParams{
		SKU:                    "ALB-001",
		ProductName:            "Album",
		NaverProductID:         "9001",
		ShopifyProductID:       "111",
		ShopifyVariantID:       "222",
		ShopifyInventoryItemID: "333",
		ShopifyLocationID:      "444",
		Margin:                 decimal.NewFromFloat(0.15),
	}
}

func TestNewMapping(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("creates pending active mapping", func(t *testing.T) {
		m, err := NewMapping(validMappingParams(), now)
		require.NoError(t, err)
		assert.Equal(t, "ALB-001", m.SKU)
		assert.True(t, m.IsActive)
		assert.Equal(t, MappingStatusPending, m.Status)
		assert.Equal(t, SyncStatusPending, m.SyncStatus)
		assert.Equal(t, now, m.CreatedAt)
	})

	t.Run("trims SKU", func(t *testing.T) {
		p := validMappingParams()
		p.SKU = "  ALB-002 "
		m, err := NewMapping(p, now)
		require.NoError(t, err)
		assert.Equal(t, "ALB-002", m.SKU)
	})

	tests := []struct {
		name   string
		mutate func(*NewMappingParams)
		want   error
	}{
		{"empty sku", func(p *NewMappingParams) { p.SKU = " " }, ErrMappingInvalidSKU},
		{"missing naver id", func(p *NewMappingParams) { p.NaverProductID = "" }, ErrMappingMissingNaverID},
		{"missing shopify variant", func(p *NewMappingParams) { p.ShopifyVariantID = "" }, ErrMappingMissingShopifyID},
		{"negative margin", func(p *NewMappingParams) { p.Margin = decimal.NewFromInt(-1) }, ErrMappingNegativeMargin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validMappingParams()
			tt.mutate(&p)
			_, err := NewMapping(p, now)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMapping_QuantityAndSync(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	m, err := NewMapping(validMappingParams(), now)
	require.NoError(t, err)

	later := now.Add(time.Minute)
	m.SetQuantity(PlatformNaver, 12, later)
	m.SetQuantity(PlatformShopify, 3, later)
	assert.Equal(t, 12, m.Quantity(PlatformNaver))
	assert.Equal(t, 3, m.Quantity(PlatformShopify))
	require.NotNil(t, m.NaverInventory.LastUpdate)
	assert.Equal(t, later, *m.NaverInventory.LastUpdate)

	m.RecordSyncFailure(errors.New("boom"), later)
	assert.Equal(t, SyncStatusError, m.SyncStatus)
	assert.Equal(t, MappingStatusError, m.Status)
	assert.Equal(t, "boom", m.LastError)

	m.RecordSyncSuccess(later)
	assert.Equal(t, SyncStatusSynced, m.SyncStatus)
	assert.Equal(t, MappingStatusActive, m.Status)
	assert.Empty(t, m.LastError)

	m.Deactivate(later)
	assert.False(t, m.IsActive)
	assert.Equal(t, MappingStatusInactive, m.Status)
}

func TestMapping_MatchesInventoryLevel(t *testing.T) {
	m, err := NewMapping(validMappingParams(), time.Now())
	require.NoError(t, err)

	assert.True(t, m.MatchesInventoryLevel("333", "444"))
	assert.True(t, m.MatchesInventoryLevel("333", ""))
	assert.False(t, m.MatchesInventoryLevel("333", "999"))
	assert.False(t, m.MatchesInventoryLevel("000", "444"))

	m.ShopifyLocationID = ""
	assert.True(t, m.MatchesInventoryLevel("333", "999"))
}

func TestMapping_Ref(t *testing.T) {
	m, err := NewMapping(validMappingParams(), time.Now())
	require.NoError(t, err)

	naver := m.Ref(PlatformNaver)
	assert.Equal(t, "9001", naver.ProductID)
	assert.Empty(t, naver.VariantID)

	shop := m.Ref(PlatformShopify)
	assert.Equal(t, "222", shop.VariantID)
	assert.Equal(t, "333", shop.InventoryItemID)
}
