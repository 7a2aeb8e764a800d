package platform

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/resilience"
)

// Naver Commerce API paths
const (
	naverTokenPath         = "/v1/oauth2/token"
	naverOriginProductPath = "/v2/products/origin-products/{productNo}"
	naverOptionStockPath   = "/v1/products/origin-products/{productNo}/option-stock"
)

// NaverAdapter implements integration.CatalogPlatform for the Naver Smart Store
type NaverAdapter struct {
	config *NaverConfig
	client *resty.Client
	guard  *resilience.Guard
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewNaverAdapter creates a new Naver adapter with the given configuration
func NewNaverAdapter(cfg *NaverConfig, guard *resilience.Guard, logger *zap.Logger) (*NaverAdapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if guard == nil {
		guard = resilience.NewGuard(resilience.DefaultGuardConfig(integration.PlatformNaver.String()), logger)
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &NaverAdapter{
		config: cfg,
		client: client,
		guard:  guard,
		logger: logger.Named("naver"),
		now:    time.Now,
	}, nil
}

// Code returns the platform code this adapter handles
func (a *NaverAdapter) Code() integration.PlatformCode {
	return integration.PlatformNaver
}

// ---------------------------------------------------------------------------
// Inventory Operations
// ---------------------------------------------------------------------------

// GetInventory returns the origin product's stock quantity
func (a *NaverAdapter) GetInventory(ctx context.Context, ref integration.ProductRef) (int, error) {
	product, err := a.getOriginProduct(ctx, ref, "get_inventory")
	if err != nil {
		return 0, err
	}
	return product.StockQuantity, nil
}

// UpdateInventory sets the origin product's stock quantity
func (a *NaverAdapter) UpdateInventory(ctx context.Context, ref integration.ProductRef, quantity int) error {
	if err := requireNaverProduct(ref); err != nil {
		return err
	}
	if quantity < 0 {
		return shared.NewValidationError("naver: stock quantity cannot be negative")
	}
	body := naverOptionStockRequest{StockQuantity: &quantity}
	return a.guard.Do(ctx, "update_inventory", func(ctx context.Context) error {
		return a.call(ctx, ref.SKU, func(req *resty.Request) (*resty.Response, error) {
			return req.SetPathParam("productNo", ref.ProductID).SetBody(body).Put(naverOptionStockPath)
		})
	})
}

// ---------------------------------------------------------------------------
// Price Operations
// ---------------------------------------------------------------------------

// GetPrice returns the sale price in KRW
func (a *NaverAdapter) GetPrice(ctx context.Context, ref integration.ProductRef) (decimal.Decimal, error) {
	product, err := a.getOriginProduct(ctx, ref, "get_price")
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(product.SalePrice), nil
}

// UpdatePrice sets the sale price. KRW has no minor unit so the price is rounded to a whole won.
func (a *NaverAdapter) UpdatePrice(ctx context.Context, ref integration.ProductRef, price decimal.Decimal) error {
	if err := requireNaverProduct(ref); err != nil {
		return err
	}
	if !price.IsPositive() {
		return shared.NewValidationError("naver: sale price must be positive")
	}
	body := naverOptionStockRequest{ProductSalePrice: &naverSalePrice{SalePrice: price.Round(0).IntPart()}}
	return a.guard.Do(ctx, "update_price", func(ctx context.Context) error {
		return a.call(ctx, ref.SKU, func(req *resty.Request) (*resty.Response, error) {
			return req.SetPathParam("productNo", ref.ProductID).SetBody(body).Put(naverOptionStockPath)
		})
	})
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

func (a *NaverAdapter) getOriginProduct(ctx context.Context, ref integration.ProductRef, op string) (naverOriginProduct, error) {
	if err := requireNaverProduct(ref); err != nil {
		return naverOriginProduct{}, err
	}
	return resilience.DoValue(ctx, a.guard, op, func(ctx context.Context) (naverOriginProduct, error) {
		var out naverOriginProductResponse
		err := a.call(ctx, ref.SKU, func(req *resty.Request) (*resty.Response, error) {
			return req.SetPathParam("productNo", ref.ProductID).SetResult(&out).Get(naverOriginProductPath)
		})
		return out.OriginProduct, err
	})
}

// call authorizes req with the cached token and classifies the response.
// A 401 drops the token so the next attempt fetches a fresh one.
func (a *NaverAdapter) call(ctx context.Context, ref string, send func(req *resty.Request) (*resty.Response, error)) error {
	token, err := a.accessToken(ctx)
	if err != nil {
		return err
	}
	resp, err := send(a.client.R().SetContext(ctx).SetAuthToken(token))
	if err == nil && resp.StatusCode() == http.StatusUnauthorized {
		a.invalidateToken()
	}
	return classify(integration.PlatformNaver, ref, resp, err)
}

// accessToken returns a cached bearer token, requesting a new one when it is about to expire
func (a *NaverAdapter) accessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if a.token != "" && now.Add(tokenRefreshSkew).Before(a.expiresAt) {
		return a.token, nil
	}

	ts := now.UnixMilli()
	sign, err := signClientSecret(a.config.ClientID, a.config.ClientSecret, ts)
	if err != nil {
		return "", shared.NewFatalSetupError("naver: cannot sign token request", err)
	}

	var out naverTokenResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":          a.config.ClientID,
			"timestamp":          fmt.Sprintf("%d", ts),
			"client_secret_sign": sign,
			"grant_type":         "client_credentials",
			"type":               "SELF",
		}).
		SetResult(&out).
		Post(naverTokenPath)
	if cerr := classify(integration.PlatformNaver, "oauth2 token", resp, err); cerr != nil {
		return "", cerr
	}
	if out.AccessToken == "" {
		return "", shared.NewTransientPlatformError(integration.PlatformNaver.String(),
			fmt.Errorf("%w: empty access token", integration.ErrPlatformAuthFailed))
	}

	a.token = out.AccessToken
	a.expiresAt = now.Add(time.Duration(out.ExpiresIn) * time.Second)
	a.logger.Debug("Issued access token", zap.Time("expires_at", a.expiresAt))
	return a.token, nil
}

func (a *NaverAdapter) invalidateToken() {
	a.mu.Lock()
	a.token = ""
	a.mu.Unlock()
}

func requireNaverProduct(ref integration.ProductRef) error {
	if ref.ProductID == "" {
		return shared.NewValidationError(fmt.Sprintf("naver: product id missing for %q", ref.SKU))
	}
	return nil
}

// Ensure NaverAdapter implements CatalogPlatform interface
var _ integration.CatalogPlatform = (*NaverAdapter)(nil)
