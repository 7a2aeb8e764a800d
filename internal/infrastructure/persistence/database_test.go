package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/YKLee98/naver-sub003/internal/infrastructure/persistence/models"
)

var testEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// newMockDatabase creates a Database instance with a mocked SQL connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockDB
}

// newTestDatabase opens an in-memory sqlite database with the full schema
func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewSQLiteDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestConnectionStats_Struct(t *testing.T) {
	stats := ConnectionStats{
		MaxOpenConnections: 25,
		OpenConnections:    10,
		InUse:              6,
		Idle:               4,
		WaitDuration:       5 * time.Second,
	}

	assert.Equal(t, stats.OpenConnections, stats.InUse+stats.Idle)
	assert.Equal(t, 5*time.Second, stats.WaitDuration)
}

func TestNewSQLiteDatabase(t *testing.T) {
	db := newTestDatabase(t)

	t.Run("creates every table", func(t *testing.T) {
		for _, model := range models.All() {
			assert.True(t, db.DB.Migrator().HasTable(model), "missing table for %T", model)
		}
	})

	t.Run("ping succeeds", func(t *testing.T) {
		assert.NoError(t, db.Ping(context.Background()))
	})

	t.Run("reports pool stats", func(t *testing.T) {
		stats, err := db.Stats()
		require.NoError(t, err)
		assert.Equal(t, 1, stats.MaxOpenConnections)
	})
}

func TestDatabase_Transaction(t *testing.T) {
	t.Run("commits when fn succeeds", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE alerts SET resolved = \$1`).
			WithArgs(true).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectCommit()

		err := db.Transaction(context.Background(), func(tx *gorm.DB) error {
			return tx.Exec("UPDATE alerts SET resolved = ?", true).Error
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := db.Transaction(context.Background(), func(tx *gorm.DB) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
