package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/inventory"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
)

func appendEntry(t *testing.T, repo *GormInventoryTransactionRepository, sku string, platform integration.PlatformCode, txType inventory.TransactionType, prev, next int, orderID string, at time.Time) {
	t.Helper()
	entry, err := inventory.NewInventoryTransaction(inventory.NewTransactionParams{
		SKU:              sku,
		Platform:         platform,
		Type:             txType,
		PreviousQuantity: prev,
		NewQuantity:      next,
		OrderID:          orderID,
	}, at)
	require.NoError(t, err)
	require.NoError(t, repo.Append(context.Background(), entry))
}

func TestGormInventoryTransactionRepository(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormInventoryTransactionRepository(db.DB)
	ctx := context.Background()

	appendEntry(t, repo, "SKU-1", integration.PlatformNaver, inventory.TransactionTypeSync, 0, 10, "", testEpoch)
	appendEntry(t, repo, "SKU-1", integration.PlatformNaver, inventory.TransactionTypeSale, 10, 8, "order-1", testEpoch.Add(time.Minute))
	appendEntry(t, repo, "SKU-1", integration.PlatformShopify, inventory.TransactionTypeSync, 3, 8, "", testEpoch.Add(2*time.Minute))
	appendEntry(t, repo, "SKU-2", integration.PlatformNaver, inventory.TransactionTypeAdjustment, 5, 6, "", testEpoch.Add(3*time.Minute))

	t.Run("FindLatest returns newest entry per SKU and platform", func(t *testing.T) {
		latest, err := repo.FindLatest(ctx, "SKU-1", integration.PlatformNaver)
		require.NoError(t, err)
		assert.Equal(t, inventory.TransactionTypeSale, latest.Type)
		assert.Equal(t, 8, latest.NewQuantity)
		assert.Equal(t, -2, latest.Delta)
		assert.Equal(t, "order-1", latest.OrderID)
		assert.Equal(t, "system", latest.InitiatedBy)
	})

	t.Run("FindLatest misses with shared.ErrNotFound", func(t *testing.T) {
		_, err := repo.FindLatest(ctx, "SKU-2", integration.PlatformShopify)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("List is newest first and filterable", func(t *testing.T) {
		all, err := repo.List(ctx, inventory.TransactionFilter{SKU: "SKU-1"})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, integration.PlatformShopify, all[0].Platform)
		assert.Equal(t, inventory.TransactionTypeSync, all[2].Type)

		naver := integration.PlatformNaver
		limited, err := repo.List(ctx, inventory.TransactionFilter{Platform: &naver, Limit: 1})
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, "SKU-2", limited[0].SKU)

		byOrder, err := repo.List(ctx, inventory.TransactionFilter{OrderID: "order-1"})
		require.NoError(t, err)
		require.Len(t, byOrder, 1)
	})

	t.Run("Count honours type and since", func(t *testing.T) {
		syncType := inventory.TransactionTypeSync
		n, err := repo.Count(ctx, inventory.TransactionFilter{Type: &syncType})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		since := testEpoch.Add(90 * time.Second)
		n, err = repo.Count(ctx, inventory.TransactionFilter{Since: &since})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}
