package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/YKLee98/naver-sub003/internal/domain/alert"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/persistence/models"
)

// GormAlertRepository implements alert.Repository using GORM
type GormAlertRepository struct {
	db *gorm.DB
}

// NewGormAlertRepository creates a new GormAlertRepository
func NewGormAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{db: db}
}

// Create inserts an alert
func (r *GormAlertRepository) Create(ctx context.Context, a *alert.Alert) error {
	return r.db.WithContext(ctx).Create(models.AlertModelFromDomain(a)).Error
}

// Save overwrites a stored alert
func (r *GormAlertRepository) Save(ctx context.Context, a *alert.Alert) error {
	result := r.db.WithContext(ctx).Model(&models.AlertModel{}).
		Where("id = ?", a.ID).
		Select("*").
		Updates(models.AlertModelFromDomain(a))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(alert.ErrAlertNotFound)
	}
	return nil
}

// FindByID finds an alert by ID
func (r *GormAlertRepository) FindByID(ctx context.Context, id string) (*alert.Alert, error) {
	var model models.AlertModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translate(err, alert.ErrAlertNotFound)
	}
	return model.ToDomain(), nil
}

// List returns alerts newest first
func (r *GormAlertRepository) List(ctx context.Context, filter alert.Filter) ([]alert.Alert, error) {
	query := r.db.WithContext(ctx).Model(&models.AlertModel{})
	if filter.UnresolvedOnly {
		query = query.Where("resolved = ?", false)
	}
	if filter.SKU != "" {
		query = query.Where("sku = ?", filter.SKU)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if !filter.VisibleAt.IsZero() {
		query = query.Where("(remove_after IS NULL OR remove_after > ?)", filter.VisibleAt)
	}
	query = query.Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []models.AlertModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toAlerts(rows), nil
}

// HasUnresolved reports whether an open alert of type t exists for sku
func (r *GormAlertRepository) HasUnresolved(ctx context.Context, t alert.Type, sku string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AlertModel{}).
		Where("type = ? AND sku = ? AND resolved = ?", t, sku, false).
		Count(&count).Error
	return count > 0, err
}

// FindUnresolvedBefore returns open alerts created before cutoff
func (r *GormAlertRepository) FindUnresolvedBefore(ctx context.Context, cutoff time.Time) ([]alert.Alert, error) {
	var rows []models.AlertModel
	err := r.db.WithContext(ctx).
		Where("resolved = ? AND created_at < ?", false, cutoff).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toAlerts(rows), nil
}

// DeleteRemovable deletes resolved alerts whose grace period ended at or before now
func (r *GormAlertRepository) DeleteRemovable(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("resolved = ? AND remove_after IS NOT NULL AND remove_after <= ?", true, now).
		Delete(&models.AlertModel{})
	return result.RowsAffected, result.Error
}

type severityCount struct {
	Severity alert.Severity
	Count    int
}

// CountUnresolvedBySeverity returns open alert counts keyed by severity. Every severity is present.
func (r *GormAlertRepository) CountUnresolvedBySeverity(ctx context.Context) (map[alert.Severity]int, error) {
	var rows []severityCount
	err := r.db.WithContext(ctx).Model(&models.AlertModel{}).
		Select("severity, COUNT(*) AS count").
		Where("resolved = ?", false).
		Group("severity").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[alert.Severity]int, 4)
	for _, s := range alert.AllSeverities() {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Severity] = row.Count
	}
	return counts, nil
}

func toAlerts(rows []models.AlertModel) []alert.Alert {
	out := make([]alert.Alert, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

// Ensure interface compliance
var _ alert.Repository = (*GormAlertRepository)(nil)
