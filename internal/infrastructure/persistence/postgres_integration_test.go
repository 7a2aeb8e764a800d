//go:build integration

package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/YKLee98/naver-sub003/internal/domain/alert"
	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/migration"
)

// newPostgresDB starts a postgres container and applies the embedded migrations
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("inventory_sync_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, "", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db
}

func TestPostgres_Repositories(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	db := newPostgresDB(t)
	ctx := context.Background()

	t.Run("mapping round trip keeps decimal precision", func(t *testing.T) {
		repo := NewGormMappingRepository(db)
		m := newTestMapping(t, "PG-1", testEpoch)
		m.SetPrice(integration.PlatformShopify, decimal.RequireFromString("19.99"), testEpoch)
		require.NoError(t, repo.Create(ctx, m))

		found, err := repo.FindBySKU(ctx, "PG-1")
		require.NoError(t, err)
		assert.True(t, found.ShopifyPrice.Equal(decimal.RequireFromString("19.99")))
		assert.True(t, found.Margin.Equal(decimal.RequireFromString("0.15")))
	})

	t.Run("one active exchange rate per pair", func(t *testing.T) {
		repo := NewGormExchangeRateRepository(db)
		for i, rate := range []string{"0.00075", "0.00073", "0.00074"} {
			r, err := integration.NewManualExchangeRate(decimal.RequireFromString(rate), "set", 1, testEpoch.Add(time.Duration(i)*time.Minute))
			require.NoError(t, err)
			require.NoError(t, repo.ReplaceActive(ctx, r))
		}
		n, err := repo.CountActive(ctx, integration.BaseCurrency, integration.TargetCurrency)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("open alert uniqueness is enforced by the schema", func(t *testing.T) {
		repo := NewGormAlertRepository(db)
		first, err := alert.New(alert.TypeLowStock, alert.SeverityHigh, "PG-1", "low", nil, testEpoch)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, first))

		dup, err := alert.New(alert.TypeLowStock, alert.SeverityHigh, "PG-1", "low", nil, testEpoch.Add(time.Second))
		require.NoError(t, err)
		assert.Error(t, repo.Create(ctx, dup))
	})
}
