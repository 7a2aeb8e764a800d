package platform

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/resilience"
)

// shopifyAccessTokenHeader authenticates Admin API calls
const shopifyAccessTokenHeader = "X-Shopify-Access-Token"

// ShopifyAdapter implements integration.CatalogPlatform for a Shopify store
type ShopifyAdapter struct {
	config *ShopifyConfig
	client *resty.Client
	guard  *resilience.Guard
	logger *zap.Logger
}

// NewShopifyAdapter creates a new Shopify adapter with the given configuration
func NewShopifyAdapter(cfg *ShopifyConfig, guard *resilience.Guard, logger *zap.Logger) (*ShopifyAdapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if guard == nil {
		guard = resilience.NewGuard(resilience.DefaultGuardConfig(integration.PlatformShopify.String()), logger)
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.ShopURL, "/")+"/admin/api/"+cfg.APIVersion).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader(shopifyAccessTokenHeader, cfg.AccessToken)

	return &ShopifyAdapter{
		config: cfg,
		client: client,
		guard:  guard,
		logger: logger.Named("shopify"),
	}, nil
}

// Code returns the platform code this adapter handles
func (a *ShopifyAdapter) Code() integration.PlatformCode {
	return integration.PlatformShopify
}

// ---------------------------------------------------------------------------
// Inventory Operations
// ---------------------------------------------------------------------------

// GetInventory returns the available quantity of the inventory item.
// Without a location the levels across all locations are summed.
func (a *ShopifyAdapter) GetInventory(ctx context.Context, ref integration.ProductRef) (int, error) {
	itemID, err := parseShopifyID("inventory item", ref.SKU, ref.InventoryItemID)
	if err != nil {
		return 0, err
	}
	location := a.location(ref)

	levels, err := resilience.DoValue(ctx, a.guard, "get_inventory", func(ctx context.Context) ([]shopifyInventoryLevel, error) {
		var out shopifyInventoryLevelsResponse
		req := a.client.R().SetContext(ctx).
			SetQueryParam("inventory_item_ids", strconv.FormatInt(itemID, 10)).
			SetResult(&out)
		if location != "" {
			req.SetQueryParam("location_ids", location)
		}
		resp, err := req.Get("/inventory_levels.json")
		if cerr := classify(integration.PlatformShopify, ref.SKU, resp, err); cerr != nil {
			return nil, cerr
		}
		return out.InventoryLevels, nil
	})
	if err != nil {
		return 0, err
	}
	if len(levels) == 0 {
		return 0, shared.NewUnresolvedMappingError(ref.SKU)
	}

	total := 0
	for _, l := range levels {
		if l.Available != nil {
			total += *l.Available
		}
	}
	return total, nil
}

// UpdateInventory sets the available quantity at the mapping's location
func (a *ShopifyAdapter) UpdateInventory(ctx context.Context, ref integration.ProductRef, quantity int) error {
	itemID, err := parseShopifyID("inventory item", ref.SKU, ref.InventoryItemID)
	if err != nil {
		return err
	}
	locationID, err := parseShopifyID("location", ref.SKU, a.location(ref))
	if err != nil {
		return err
	}
	if quantity < 0 {
		return shared.NewValidationError("shopify: available quantity cannot be negative")
	}
	body := shopifySetInventoryRequest{
		LocationID:      locationID,
		InventoryItemID: itemID,
		Available:       quantity,
	}
	return a.guard.Do(ctx, "update_inventory", func(ctx context.Context) error {
		resp, err := a.client.R().SetContext(ctx).SetBody(body).Post("/inventory_levels/set.json")
		return classify(integration.PlatformShopify, ref.SKU, resp, err)
	})
}

// ---------------------------------------------------------------------------
// Price Operations
// ---------------------------------------------------------------------------

// GetPrice returns the variant price in USD
func (a *ShopifyAdapter) GetPrice(ctx context.Context, ref integration.ProductRef) (decimal.Decimal, error) {
	variantID, err := parseShopifyID("variant", ref.SKU, ref.VariantID)
	if err != nil {
		return decimal.Zero, err
	}
	variant, err := resilience.DoValue(ctx, a.guard, "get_price", func(ctx context.Context) (shopifyVariant, error) {
		var out shopifyVariantEnvelope
		resp, err := a.client.R().SetContext(ctx).
			SetPathParam("variantID", strconv.FormatInt(variantID, 10)).
			SetResult(&out).
			Get("/variants/{variantID}.json")
		return out.Variant, classify(integration.PlatformShopify, ref.SKU, resp, err)
	})
	if err != nil {
		return decimal.Zero, err
	}
	price, err := decimal.NewFromString(variant.Price)
	if err != nil {
		return decimal.Zero, shared.NewValidationError(fmt.Sprintf("shopify: malformed price %q for variant %d", variant.Price, variantID))
	}
	return price, nil
}

// UpdatePrice sets the variant price, formatted to cents
func (a *ShopifyAdapter) UpdatePrice(ctx context.Context, ref integration.ProductRef, price decimal.Decimal) error {
	variantID, err := parseShopifyID("variant", ref.SKU, ref.VariantID)
	if err != nil {
		return err
	}
	if price.IsNegative() {
		return shared.NewValidationError("shopify: price cannot be negative")
	}
	body := shopifyVariantEnvelope{Variant: shopifyVariant{ID: variantID, Price: price.StringFixed(2)}}
	return a.guard.Do(ctx, "update_price", func(ctx context.Context) error {
		resp, err := a.client.R().SetContext(ctx).
			SetPathParam("variantID", strconv.FormatInt(variantID, 10)).
			SetBody(body).
			Put("/variants/{variantID}.json")
		return classify(integration.PlatformShopify, ref.SKU, resp, err)
	})
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

func (a *ShopifyAdapter) location(ref integration.ProductRef) string {
	if ref.LocationID != "" {
		return ref.LocationID
	}
	return a.config.LocationID
}

// parseShopifyID converts a numeric Admin API id, accepting gid://shopify/<Type>/<id> as well
func parseShopifyID(kind, sku, raw string) (int64, error) {
	if raw == "" {
		return 0, shared.NewValidationError(fmt.Sprintf("shopify: %s id missing for %q", kind, sku))
	}
	if i := strings.LastIndexByte(raw, '/'); i >= 0 {
		raw = raw[i+1:]
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.NewValidationError(fmt.Sprintf("shopify: invalid %s id %q for %q", kind, raw, sku))
	}
	return id, nil
}

// Ensure ShopifyAdapter implements CatalogPlatform interface
var _ integration.CatalogPlatform = (*ShopifyAdapter)(nil)
