package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/persistence/models"
)

// GormMappingRepository implements integration.MappingRepository using GORM
type GormMappingRepository struct {
	db *gorm.DB
}

// NewGormMappingRepository creates a new GormMappingRepository
func NewGormMappingRepository(db *gorm.DB) *GormMappingRepository {
	return &GormMappingRepository{db: db}
}

func (r *GormMappingRepository) findOne(ctx context.Context, query string, args ...any) (*integration.Mapping, error) {
	var model models.MappingModel
	if err := r.db.WithContext(ctx).Where(query, args...).First(&model).Error; err != nil {
		return nil, translate(err, integration.ErrMappingNotFound)
	}
	return model.ToDomain(), nil
}

// FindByID finds a mapping by its ID
func (r *GormMappingRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.Mapping, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindBySKU finds a mapping by SKU
func (r *GormMappingRepository) FindBySKU(ctx context.Context, sku string) (*integration.Mapping, error) {
	return r.findOne(ctx, "sku = ?", sku)
}

// FindByShopifyVariantID finds a mapping by its Shopify variant
func (r *GormMappingRepository) FindByShopifyVariantID(ctx context.Context, variantID string) (*integration.Mapping, error) {
	return r.findOne(ctx, "shopify_variant_id = ?", variantID)
}

// FindByInventoryItem finds the mapping for a Shopify inventory level.
// A mapping without a location matches every location.
func (r *GormMappingRepository) FindByInventoryItem(ctx context.Context, inventoryItemID, locationID string) (*integration.Mapping, error) {
	if inventoryItemID == "" {
		return nil, notFound(integration.ErrMappingNotFound)
	}
	query := r.db.WithContext(ctx).Where("shopify_inventory_item_id = ?", inventoryItemID)
	if locationID != "" {
		query = query.Where("(shopify_location_id = ? OR shopify_location_id = '')", locationID)
	}

	var model models.MappingModel
	if err := query.Order("is_active DESC").Order("shopify_location_id DESC").First(&model).Error; err != nil {
		return nil, translate(err, integration.ErrMappingNotFound)
	}
	return model.ToDomain(), nil
}

// FindActive returns every active mapping ordered by SKU
func (r *GormMappingRepository) FindActive(ctx context.Context) ([]integration.Mapping, error) {
	var rows []models.MappingModel
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("sku ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toMappings(rows), nil
}

// List returns a page of mappings and the total count matching filter
func (r *GormMappingRepository) List(ctx context.Context, filter integration.MappingFilter) ([]integration.Mapping, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.MappingModel{})

	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.SyncStatus != nil {
		query = query.Where("sync_status = ?", *filter.SyncStatus)
	}
	if filter.Vendor != "" {
		query = query.Where("vendor = ?", filter.Vendor)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("(LOWER(sku) LIKE ? OR LOWER(product_name) LIKE ?)", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(orderClause(filter.OrderBy, filter.OrderDir, MappingSortFields, "created_at"))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.MappingModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toMappings(rows), total, nil
}

// Create inserts a new mapping. SKUs are unique.
func (r *GormMappingRepository) Create(ctx context.Context, mapping *integration.Mapping) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.MappingModel{}).Where("sku = ?", mapping.SKU).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %w", integration.ErrMappingDuplicateSKU, shared.ErrAlreadyExists)
	}
	return r.db.WithContext(ctx).Create(models.MappingModelFromDomain(mapping)).Error
}

// Save overwrites every column of an existing mapping
func (r *GormMappingRepository) Save(ctx context.Context, mapping *integration.Mapping) error {
	model := models.MappingModelFromDomain(mapping)
	result := r.db.WithContext(ctx).Model(&models.MappingModel{}).
		Where("id = ?", mapping.ID).
		Select("*").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(integration.ErrMappingNotFound)
	}
	return nil
}

func toMappings(rows []models.MappingModel) []integration.Mapping {
	out := make([]integration.Mapping, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

// Ensure interface compliance
var _ integration.MappingRepository = (*GormMappingRepository)(nil)
