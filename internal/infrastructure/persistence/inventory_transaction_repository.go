package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/inventory"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/persistence/models"
)

// GormInventoryTransactionRepository is the append-only ledger store
type GormInventoryTransactionRepository struct {
	db *gorm.DB
}

// NewGormInventoryTransactionRepository creates a new ledger repository
func NewGormInventoryTransactionRepository(db *gorm.DB) *GormInventoryTransactionRepository {
	return &GormInventoryTransactionRepository{db: db}
}

// Append inserts a ledger entry
func (r *GormInventoryTransactionRepository) Append(ctx context.Context, tx *inventory.InventoryTransaction) error {
	return r.db.WithContext(ctx).Create(models.InventoryTransactionModelFromDomain(tx)).Error
}

// FindLatest returns the newest entry for sku on platform
func (r *GormInventoryTransactionRepository) FindLatest(ctx context.Context, sku string, platform integration.PlatformCode) (*inventory.InventoryTransaction, error) {
	var model models.InventoryTransactionModel
	err := r.db.WithContext(ctx).
		Where("sku = ? AND platform = ?", sku, platform).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		return nil, translate(err, shared.ErrNotFound)
	}
	return model.ToDomain(), nil
}

// List returns entries matching filter, newest first
func (r *GormInventoryTransactionRepository) List(ctx context.Context, filter inventory.TransactionFilter) ([]inventory.InventoryTransaction, error) {
	query := r.applyFilter(r.db.WithContext(ctx), filter).Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []models.InventoryTransactionModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]inventory.InventoryTransaction, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Count returns the number of entries matching filter
func (r *GormInventoryTransactionRepository) Count(ctx context.Context, filter inventory.TransactionFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.InventoryTransactionModel{}), filter).
		Count(&count).Error
	return count, err
}

func (r *GormInventoryTransactionRepository) applyFilter(query *gorm.DB, filter inventory.TransactionFilter) *gorm.DB {
	if filter.SKU != "" {
		query = query.Where("sku = ?", filter.SKU)
	}
	if filter.Platform != nil {
		query = query.Where("platform = ?", *filter.Platform)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.OrderID != "" {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}
	return query
}

// Ensure interface compliance
var _ inventory.TransactionRepository = (*GormInventoryTransactionRepository)(nil)
