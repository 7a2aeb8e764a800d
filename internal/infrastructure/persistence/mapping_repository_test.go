package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
)

func newTestMapping(t *testing.T, sku string, at time.Time) *integration.Mapping {
	t.Helper()
	m, err := integration.NewMapping(integration.NewMappingParams{
		SKU:                    sku,
		ProductName:            "Product " + sku,
		Vendor:                 "acme",
		NaverProductID:         "naver-" + sku,
		ShopifyProductID:       "sp-" + sku,
		ShopifyVariantID:       "sv-" + sku,
		ShopifyInventoryItemID: "inv-" + sku,
		Margin:                 decimal.RequireFromString("0.15"),
	}, at)
	require.NoError(t, err)
	return m
}

func TestGormMappingRepository_CreateAndFind(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormMappingRepository(db.DB)
	ctx := context.Background()

	m := newTestMapping(t, "SKU-1", testEpoch)
	m.Category = "skincare"
	m.SetQuantity(integration.PlatformNaver, 12, testEpoch)
	m.SetPrice(integration.PlatformNaver, decimal.NewFromInt(25000), testEpoch)
	require.NoError(t, repo.Create(ctx, m))

	t.Run("by SKU", func(t *testing.T) {
		found, err := repo.FindBySKU(ctx, "SKU-1")
		require.NoError(t, err)
		assert.Equal(t, m.ID, found.ID)
		assert.Equal(t, "skincare", found.Category)
		assert.Equal(t, 12, found.NaverInventory.AvailableQty)
		require.NotNil(t, found.NaverInventory.LastUpdate)
		assert.True(t, found.NaverInventory.LastUpdate.Equal(testEpoch))
		assert.True(t, found.Margin.Equal(decimal.RequireFromString("0.15")))
		assert.True(t, found.NaverPrice.Equal(decimal.NewFromInt(25000)))
		assert.Equal(t, integration.SyncStatusPending, found.SyncStatus)
		assert.True(t, found.IsActive)
	})

	t.Run("by ID", func(t *testing.T) {
		found, err := repo.FindByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, "SKU-1", found.SKU)
	})

	t.Run("by Shopify variant", func(t *testing.T) {
		found, err := repo.FindByShopifyVariantID(ctx, "sv-SKU-1")
		require.NoError(t, err)
		assert.Equal(t, "SKU-1", found.SKU)
	})

	t.Run("missing mapping is not found", func(t *testing.T) {
		_, err := repo.FindBySKU(ctx, "nope")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.ErrorIs(t, err, integration.ErrMappingNotFound)

		_, err = repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("duplicate SKU is rejected", func(t *testing.T) {
		err := repo.Create(ctx, newTestMapping(t, "SKU-1", testEpoch))
		assert.ErrorIs(t, err, integration.ErrMappingDuplicateSKU)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})
}

func TestGormMappingRepository_Save(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormMappingRepository(db.DB)
	ctx := context.Background()

	m := newTestMapping(t, "SKU-1", testEpoch)
	require.NoError(t, repo.Create(ctx, m))

	later := testEpoch.Add(time.Hour)
	m.SetQuantity(integration.PlatformShopify, 7, later)
	m.RecordSyncSuccess(later)
	m.Deactivate(later)
	require.NoError(t, repo.Save(ctx, m))

	found, err := repo.FindBySKU(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 7, found.ShopifyInventory.AvailableQty)
	assert.Equal(t, integration.SyncStatusSynced, found.SyncStatus)
	assert.False(t, found.IsActive)
	assert.True(t, found.UpdatedAt.Equal(later))
	require.NotNil(t, found.LastSyncedAt)

	t.Run("unknown mapping is not found", func(t *testing.T) {
		err := repo.Save(ctx, newTestMapping(t, "SKU-404", testEpoch))
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormMappingRepository_FindByInventoryItem(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormMappingRepository(db.DB)
	ctx := context.Background()

	pinned := newTestMapping(t, "PINNED", testEpoch)
	pinned.ShopifyInventoryItemID = "item-1"
	pinned.ShopifyLocationID = "loc-1"
	require.NoError(t, repo.Create(ctx, pinned))

	anywhere := newTestMapping(t, "ANYWHERE", testEpoch)
	anywhere.ShopifyInventoryItemID = "item-2"
	require.NoError(t, repo.Create(ctx, anywhere))

	t.Run("matches item and location", func(t *testing.T) {
		found, err := repo.FindByInventoryItem(ctx, "item-1", "loc-1")
		require.NoError(t, err)
		assert.Equal(t, "PINNED", found.SKU)
	})

	t.Run("other location does not match a pinned mapping", func(t *testing.T) {
		_, err := repo.FindByInventoryItem(ctx, "item-1", "loc-2")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("mapping without location matches any location", func(t *testing.T) {
		found, err := repo.FindByInventoryItem(ctx, "item-2", "loc-9")
		require.NoError(t, err)
		assert.Equal(t, "ANYWHERE", found.SKU)
	})

	t.Run("empty event location matches", func(t *testing.T) {
		found, err := repo.FindByInventoryItem(ctx, "item-1", "")
		require.NoError(t, err)
		assert.Equal(t, "PINNED", found.SKU)
	})

	t.Run("empty item never matches", func(t *testing.T) {
		_, err := repo.FindByInventoryItem(ctx, "", "loc-1")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormMappingRepository_FindActiveAndList(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormMappingRepository(db.DB)
	ctx := context.Background()

	for i, sku := range []string{"C-3", "A-1", "B-2", "D-4"} {
		m := newTestMapping(t, sku, testEpoch.Add(time.Duration(i)*time.Minute))
		if sku == "D-4" {
			m.Deactivate(testEpoch)
			m.Vendor = "other"
		}
		require.NoError(t, repo.Create(ctx, m))
	}

	t.Run("FindActive returns active mappings ordered by SKU", func(t *testing.T) {
		active, err := repo.FindActive(ctx)
		require.NoError(t, err)
		require.Len(t, active, 3)
		assert.Equal(t, "A-1", active[0].SKU)
		assert.Equal(t, "B-2", active[1].SKU)
		assert.Equal(t, "C-3", active[2].SKU)
	})

	t.Run("List pages and counts", func(t *testing.T) {
		filter := integration.MappingFilter{Filter: shared.Filter{Page: 2, PageSize: 2, OrderBy: "sku", OrderDir: "asc"}}
		page, total, err := repo.List(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		require.Len(t, page, 2)
		assert.Equal(t, "C-3", page[0].SKU)
		assert.Equal(t, "D-4", page[1].SKU)
	})

	t.Run("List filters by active flag and vendor", func(t *testing.T) {
		inactive := false
		page, total, err := repo.List(ctx, integration.MappingFilter{IsActive: &inactive})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "D-4", page[0].SKU)

		_, total, err = repo.List(ctx, integration.MappingFilter{Vendor: "acme"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})

	t.Run("List searches SKU and name case-insensitively", func(t *testing.T) {
		page, total, err := repo.List(ctx, integration.MappingFilter{Search: "product b"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "B-2", page[0].SKU)
	})
}

func TestGormMappingRepository_FindBySKU_Postgres(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormMappingRepository(db.DB)

	id := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "sku", "margin", "is_active", "status", "sync_status", "naver_quantity", "shopify_quantity"}).
		AddRow(id.String(), "SKU-1", "0.2000", true, "ACTIVE", "synced", 4, 5)
	mock.ExpectQuery(`SELECT \* FROM "product_mappings" WHERE sku = \$1 ORDER BY .* LIMIT .*`).
		WithArgs("SKU-1", 1).
		WillReturnRows(rows)

	found, err := repo.FindBySKU(context.Background(), "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, id, found.ID)
	assert.True(t, found.Margin.Equal(decimal.RequireFromString("0.2")))
	assert.Equal(t, 4, found.NaverInventory.AvailableQty)
	assert.Equal(t, 5, found.ShopifyInventory.AvailableQty)
	assert.NoError(t, mock.ExpectationsWereMet())
}
