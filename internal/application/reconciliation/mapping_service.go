package reconciliation

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/inventory"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
)

// MappingService manages SKU mappings and exposes the ledger for reads
type MappingService struct {
	mappingRepo integration.MappingRepository
	ledger      inventory.TransactionRepository
	clock       shared.Clock
}

// NewMappingService creates a new MappingService
func NewMappingService(mappingRepo integration.MappingRepository, ledger inventory.TransactionRepository, clock shared.Clock) *MappingService {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &MappingService{
		mappingRepo: mappingRepo,
		ledger:      ledger,
		clock:       clock,
	}
}

// CreateMappingInput is the payload for CreateMapping
type CreateMappingInput struct {
	SKU                    string          `json:"sku" validate:"required,max=100"`
	ProductName            string          `json:"product_name" validate:"max=255"`
	Vendor                 string          `json:"vendor" validate:"max=100"`
	Category               string          `json:"category" validate:"max=100"`
	Brand                  string          `json:"brand" validate:"max=100"`
	NaverProductID         string          `json:"naver_product_id" validate:"required"`
	ShopifyProductID       string          `json:"shopify_product_id"`
	ShopifyVariantID       string          `json:"shopify_variant_id" validate:"required"`
	ShopifyInventoryItemID string          `json:"shopify_inventory_item_id"`
	ShopifyLocationID      string          `json:"shopify_location_id"`
	Margin                 decimal.Decimal `json:"margin"`
	Activate               bool            `json:"activate"`
}

// ---------------------------------------------------------------------------
// CRUD Operations
// ---------------------------------------------------------------------------

// CreateMapping creates a new mapping; it starts pending unless Activate is set
func (s *MappingService) CreateMapping(ctx context.Context, in CreateMappingInput) (*integration.Mapping, error) {
	now := s.clock.Now()
	m, err := integration.NewMapping(integration.NewMappingParams{
		SKU:                    in.SKU,
		ProductName:            in.ProductName,
		Vendor:                 in.Vendor,
		Category:               in.Category,
		Brand:                  in.Brand,
		NaverProductID:         in.NaverProductID,
		ShopifyProductID:       in.ShopifyProductID,
		ShopifyVariantID:       in.ShopifyVariantID,
		ShopifyInventoryItemID: in.ShopifyInventoryItemID,
		ShopifyLocationID:      in.ShopifyLocationID,
		Margin:                 in.Margin,
	}, now)
	if err != nil {
		return nil, shared.NewValidationError(err.Error())
	}
	if in.Activate {
		m.Activate(now)
	}

	// Check if the SKU is already mapped
	if _, err := s.mappingRepo.FindBySKU(ctx, m.SKU); err == nil {
		return nil, fmt.Errorf("%w: %w", integration.ErrMappingDuplicateSKU, shared.ErrAlreadyExists)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	if err := s.mappingRepo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// GetMapping retrieves a mapping by SKU
func (s *MappingService) GetMapping(ctx context.Context, sku string) (*integration.Mapping, error) {
	return s.mappingRepo.FindBySKU(ctx, sku)
}

// ListMappings lists mappings with filtering
func (s *MappingService) ListMappings(ctx context.Context, filter integration.MappingFilter) (shared.Paginated[integration.Mapping], error) {
	// Set defaults
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	mappings, total, err := s.mappingRepo.List(ctx, filter)
	if err != nil {
		return shared.Paginated[integration.Mapping]{}, err
	}
	return shared.NewPaginated(mappings, total, filter.Page, filter.PageSize), nil
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// DeactivateMapping takes a mapping out of reconciliation. Mappings are never deleted.
func (s *MappingService) DeactivateMapping(ctx context.Context, sku string) (*integration.Mapping, error) {
	m, err := s.mappingRepo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	m.Deactivate(s.clock.Now())
	if err := s.mappingRepo.Save(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ActivateMapping puts a mapping back into reconciliation
func (s *MappingService) ActivateMapping(ctx context.Context, sku string) (*integration.Mapping, error) {
	m, err := s.mappingRepo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	m.Activate(s.clock.Now())
	if err := s.mappingRepo.Save(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// Ledger
// ---------------------------------------------------------------------------

// History returns the latest ledger entries for sku, newest first
func (s *MappingService) History(ctx context.Context, sku string, platform *integration.PlatformCode, limit int) ([]inventory.InventoryTransaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.ledger.List(ctx, inventory.TransactionFilter{
		SKU:      sku,
		Platform: platform,
		Limit:    limit,
	})
}
