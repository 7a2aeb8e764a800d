package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/persistence/models"
)

// GormExchangeRateRepository implements integration.ExchangeRateRepository using GORM
type GormExchangeRateRepository struct {
	db *gorm.DB
}

// NewGormExchangeRateRepository creates a new GormExchangeRateRepository
func NewGormExchangeRateRepository(db *gorm.DB) *GormExchangeRateRepository {
	return &GormExchangeRateRepository{db: db}
}

// FindActive returns the active rate for the currency pair
func (r *GormExchangeRateRepository) FindActive(ctx context.Context, base, target string) (*integration.ExchangeRate, error) {
	var model models.ExchangeRateModel
	err := r.db.WithContext(ctx).
		Where("base_currency = ? AND target_currency = ? AND is_active = ?", base, target, true).
		Order("valid_from DESC").
		First(&model).Error
	if err != nil {
		return nil, translate(err, integration.ErrNoActiveExchangeRate)
	}
	return model.ToDomain(), nil
}

// ReplaceActive deactivates the current active record for the pair and inserts rate in one transaction
func (r *GormExchangeRateRepository) ReplaceActive(ctx context.Context, rate *integration.ExchangeRate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.ExchangeRateModel{}).
			Where("base_currency = ? AND target_currency = ? AND is_active = ?", rate.BaseCurrency, rate.TargetCurrency, true).
			Updates(map[string]any{
				"is_active":  false,
				"updated_at": rate.CreatedAt,
			}).Error
		if err != nil {
			return err
		}
		return tx.Create(models.ExchangeRateModelFromDomain(rate)).Error
	})
}

// CountActive returns the number of active records for the pair
func (r *GormExchangeRateRepository) CountActive(ctx context.Context, base, target string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ExchangeRateModel{}).
		Where("base_currency = ? AND target_currency = ? AND is_active = ?", base, target, true).
		Count(&count).Error
	return count, err
}

// ListRecent returns the newest records first
func (r *GormExchangeRateRepository) ListRecent(ctx context.Context, limit int) ([]integration.ExchangeRate, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.ExchangeRateModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]integration.ExchangeRate, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// GormPriceRuleRepository implements integration.PriceRuleRepository using GORM
type GormPriceRuleRepository struct {
	db *gorm.DB
}

// NewGormPriceRuleRepository creates a new GormPriceRuleRepository
func NewGormPriceRuleRepository(db *gorm.DB) *GormPriceRuleRepository {
	return &GormPriceRuleRepository{db: db}
}

// FindActive returns active rules in creation order
func (r *GormPriceRuleRepository) FindActive(ctx context.Context) ([]integration.PriceRule, error) {
	var rows []models.PriceRuleModel
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]integration.PriceRule, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save inserts or overwrites a rule
func (r *GormPriceRuleRepository) Save(ctx context.Context, rule *integration.PriceRule) error {
	return r.db.WithContext(ctx).Save(models.PriceRuleModelFromDomain(rule)).Error
}

// Ensure interface compliance
var (
	_ integration.ExchangeRateRepository = (*GormExchangeRateRepository)(nil)
	_ integration.PriceRuleRepository    = (*GormPriceRuleRepository)(nil)
)
