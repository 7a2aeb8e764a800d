package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
)

func TestNewInventoryTransaction(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("derives delta", func(t *testing.T) {
		tx, err := NewInventoryTransaction(NewTransactionParams{
			SKU:              "ALB-001",
			Platform:         integration.PlatformNaver,
			Type:             TransactionTypeSale,
			PreviousQuantity: 10,
			NewQuantity:      7,
			OrderID:          "1001",
		}, now)
		require.NoError(t, err)
		assert.Equal(t, -3, tx.Delta)
		assert.False(t, tx.IsIncrease())
		assert.Equal(t, "system", tx.InitiatedBy)
		assert.Equal(t, now, tx.CreatedAt)
	})

	tests := []struct {
		name   string
		params NewTransactionParams
		code   string
	}{
		{"empty sku", NewTransactionParams{Platform: integration.PlatformNaver, Type: TransactionTypeSync}, "INVALID_SKU"},
		{"bad platform", NewTransactionParams{SKU: "A", Platform: "ebay", Type: TransactionTypeSync}, "INVALID_PLATFORM"},
		{"bad type", NewTransactionParams{SKU: "A", Platform: integration.PlatformNaver, Type: "gift"}, "INVALID_TRANSACTION_TYPE"},
		{"negative result", NewTransactionParams{SKU: "A", Platform: integration.PlatformNaver, Type: TransactionTypeSale, PreviousQuantity: 1, NewQuantity: -1}, "INVALID_QUANTITY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewInventoryTransaction(tt.params, now)
			require.Error(t, err)
			assert.Equal(t, tt.code, shared.CodeOf(err))
			assert.Equal(t, shared.KindValidation, shared.KindOf(err))
		})
	}
}
