package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/YKLee98/naver-sub003/internal/domain/alert"
	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/inventory"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
)

// Config holds engine tuning
type Config struct {
	Thresholds      Thresholds
	PriceEpsilon    decimal.Decimal
	DefaultMargin   decimal.Decimal
	DefaultRounding integration.RoundingStrategy
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		Thresholds:      DefaultThresholds(),
		PriceEpsilon:    decimal.NewFromFloat(0.01),
		DefaultMargin:   decimal.NewFromFloat(0.15),
		DefaultRounding: integration.RoundNearest,
	}
}

// AlertSink receives alerts raised by failure handlers
type AlertSink interface {
	Raise(ctx context.Context, a *alert.Alert) error
}

// RateSource supplies the exchange rate when a price sync does not carry one
type RateSource interface {
	CurrentRate(ctx context.Context) (*integration.ExchangeRate, error)
}

// Deps are the collaborators of Engine
type Deps struct {
	Mappings  integration.MappingRepository
	Ledger    inventory.TransactionRepository
	Platforms *integration.PlatformRegistry
	Rates     RateSource
	Alerts    AlertSink
	Clock     shared.Clock
	Logger    *zap.Logger
}

// Engine applies ledger-backed adjustments and per-SKU reconciliation.
// Mapping writes are last-write-wins; each write follows a fresh read.
type Engine struct {
	mappings  integration.MappingRepository
	ledger    inventory.TransactionRepository
	platforms *integration.PlatformRegistry
	rates     RateSource
	alerts    AlertSink
	cfg       Config
	clock     shared.Clock
	logger    *zap.Logger
}

// NewEngine creates an Engine
func NewEngine(deps Deps, cfg Config) *Engine {
	if deps.Clock == nil {
		deps.Clock = shared.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if !cfg.DefaultRounding.IsValid() {
		cfg.DefaultRounding = integration.RoundNearest
	}
	return &Engine{
		mappings:  deps.Mappings,
		ledger:    deps.Ledger,
		platforms: deps.Platforms,
		rates:     deps.Rates,
		alerts:    deps.Alerts,
		cfg:       cfg,
		clock:     deps.Clock,
		logger:    deps.Logger,
	}
}

// SetAlertSink replaces the alert sink. Used to break the construction cycle with monitoring.
func (e *Engine) SetAlertSink(sink AlertSink) {
	e.alerts = sink
}

// Thresholds returns the classification thresholds
func (e *Engine) Thresholds() Thresholds {
	return e.cfg.Thresholds
}

// loadMapping maps a store miss onto UnresolvedMappingError
func (e *Engine) loadMapping(ctx context.Context, sku string) (*integration.Mapping, error) {
	m, err := e.mappings.FindBySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewUnresolvedMappingError(sku)
		}
		return nil, fmt.Errorf("load mapping %s: %w", sku, err)
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// Adjust
// ---------------------------------------------------------------------------

// AdjustParams describe a reason-tagged delta on one platform
type AdjustParams struct {
	SKU         string
	Platform    integration.PlatformCode
	Delta       int
	Reason      string
	InitiatedBy string
	OrderID     string
	// Type defaults to adjustment
	Type inventory.TransactionType
	// Push writes the resulting quantity to the platform before recording it
	Push bool
}

func (p *AdjustParams) validate() error {
	if strings.TrimSpace(p.SKU) == "" {
		return shared.NewValidationError("sku is required")
	}
	if !p.Platform.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("invalid platform %q", p.Platform))
	}
	if p.Delta == 0 {
		return shared.NewValidationError("delta cannot be zero")
	}
	if p.Type == "" {
		p.Type = inventory.TransactionTypeAdjustment
	}
	if !p.Type.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("invalid transaction type %q", p.Type))
	}
	return nil
}

// Adjust appends a ledger entry for the delta and updates the cached quantity.
// It is not idempotent; callers deduplicate repeated requests.
func (e *Engine) Adjust(ctx context.Context, p AdjustParams) (*inventory.InventoryTransaction, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	m, err := e.loadMapping(ctx, p.SKU)
	if err != nil {
		return nil, err
	}

	prev := m.Quantity(p.Platform)
	next := prev + p.Delta
	if next < 0 {
		return nil, shared.NewValidationError(
			fmt.Sprintf("adjustment %+d would take %s on %s below zero (current %d)", p.Delta, p.SKU, p.Platform, prev))
	}

	if p.Push {
		if err := e.push(ctx, m, p.Platform, next, p.Reason, p.InitiatedBy); err != nil {
			return nil, err
		}
	}

	tx, err := e.record(ctx, m, inventory.NewTransactionParams{
		SKU:              p.SKU,
		Platform:         p.Platform,
		Type:             p.Type,
		PreviousQuantity: prev,
		NewQuantity:      next,
		Reason:           p.Reason,
		InitiatedBy:      p.InitiatedBy,
		OrderID:          p.OrderID,
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Inventory adjusted",
		zap.String("sku", p.SKU),
		zap.String("platform", p.Platform.String()),
		zap.Int("delta", p.Delta),
		zap.Int("quantity", next),
		zap.String("order_id", p.OrderID),
	)
	return tx, nil
}

// SetLevel records qty as the authoritative level on platform without pushing it anywhere
func (e *Engine) SetLevel(ctx context.Context, m *integration.Mapping, platform integration.PlatformCode, qty int, reason, by string) (*inventory.InventoryTransaction, error) {
	if qty < 0 {
		return nil, shared.NewValidationError("level cannot be negative")
	}
	return e.record(ctx, m, inventory.NewTransactionParams{
		SKU:              m.SKU,
		Platform:         platform,
		Type:             inventory.TransactionTypeSync,
		PreviousQuantity: m.Quantity(platform),
		NewQuantity:      qty,
		Reason:           reason,
		InitiatedBy:      by,
	})
}

// record appends the ledger entry, then caches the new quantity on the mapping
func (e *Engine) record(ctx context.Context, m *integration.Mapping, p inventory.NewTransactionParams) (*inventory.InventoryTransaction, error) {
	now := e.clock.Now()
	tx, err := inventory.NewInventoryTransaction(p, now)
	if err != nil {
		return nil, err
	}
	if err := e.ledger.Append(ctx, tx); err != nil {
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}
	m.SetQuantity(p.Platform, p.NewQuantity, now)
	if err := e.mappings.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("save mapping %s: %w", m.SKU, err)
	}
	return tx, nil
}

// push writes qty to platform; on failure it leaves an update_failed trail and alert
func (e *Engine) push(ctx context.Context, m *integration.Mapping, platform integration.PlatformCode, qty int, reason, by string) error {
	client, err := e.platforms.Get(platform)
	if err != nil {
		return shared.NewFatalSetupError(fmt.Sprintf("%s platform not configured", platform), err)
	}
	pushErr := client.UpdateInventory(ctx, m.Ref(platform), qty)
	if pushErr == nil {
		return nil
	}
	e.recordPushFailure(ctx, m, platform, qty, reason, by, pushErr)
	return pushErr
}

func (e *Engine) recordPushFailure(ctx context.Context, m *integration.Mapping, platform integration.PlatformCode, attempted int, reason, by string, cause error) {
	now := e.clock.Now()
	current := m.Quantity(platform)

	tx, err := inventory.NewInventoryTransaction(inventory.NewTransactionParams{
		SKU:              m.SKU,
		Platform:         platform,
		Type:             inventory.TransactionTypeUpdateFailed,
		PreviousQuantity: current,
		NewQuantity:      current,
		Reason:           fmt.Sprintf("push of %d failed (%s): %v", attempted, reason, cause),
		InitiatedBy:      by,
	}, now)
	if err == nil {
		if err := e.ledger.Append(ctx, tx); err != nil {
			e.logger.Error("Failed to append update_failed entry", zap.String("sku", m.SKU), zap.Error(err))
		}
	}

	m.RecordSyncFailure(cause, now)
	if err := e.mappings.Save(ctx, m); err != nil {
		e.logger.Error("Failed to save mapping after push failure", zap.String("sku", m.SKU), zap.Error(err))
	}

	e.raise(ctx, alert.TypeUpdateFailed, alert.SeverityHigh, m.SKU,
		fmt.Sprintf("Failed to update %s inventory for %s", platform, m.SKU),
		map[string]any{
			"platform":  platform.String(),
			"attempted": attempted,
			"error":     cause.Error(),
			"kind":      string(shared.KindOf(cause)),
		})
}

func (e *Engine) raise(ctx context.Context, t alert.Type, sev alert.Severity, sku, msg string, details map[string]any) {
	if e.alerts == nil {
		return
	}
	a, err := alert.New(t, sev, sku, msg, details, e.clock.Now())
	if err != nil {
		e.logger.Error("Invalid alert", zap.Error(err))
		return
	}
	if err := e.alerts.Raise(ctx, a); err != nil {
		e.logger.Warn("Failed to raise alert", zap.String("sku", sku), zap.String("type", string(t)), zap.Error(err))
	}
}

// ---------------------------------------------------------------------------
// Inventory sync
// ---------------------------------------------------------------------------

// InventoryResult reports one inventory reconciliation
type InventoryResult struct {
	SKU         string      `json:"sku"`
	NaverQty    int         `json:"naver_qty"`
	ShopifyQty  int         `json:"shopify_qty"`
	Corrected   bool        `json:"corrected"`
	Discrepancy Discrepancy `json:"discrepancy"`
}

// SyncInventory reads both live quantities, records any drift in the ledger and
// pushes the Naver quantity to Shopify when they differ.
func (e *Engine) SyncInventory(ctx context.Context, sku string) (*InventoryResult, error) {
	m, err := e.loadMapping(ctx, sku)
	if err != nil {
		return nil, err
	}
	if !m.IsActive {
		return nil, shared.NewValidationError(fmt.Sprintf("mapping %s is inactive", sku))
	}

	naver, err := e.platforms.Get(integration.PlatformNaver)
	if err != nil {
		return nil, shared.NewFatalSetupError("naver platform not configured", err)
	}
	shopify, err := e.platforms.Get(integration.PlatformShopify)
	if err != nil {
		return nil, shared.NewFatalSetupError("shopify platform not configured", err)
	}

	naverQty, err := naver.GetInventory(ctx, m.Ref(integration.PlatformNaver))
	if err != nil {
		return nil, e.failSync(ctx, m, err)
	}
	shopifyQty, err := shopify.GetInventory(ctx, m.Ref(integration.PlatformShopify))
	if err != nil {
		return nil, e.failSync(ctx, m, err)
	}

	if err := e.observe(ctx, m, integration.PlatformNaver, naverQty); err != nil {
		return nil, err
	}
	if err := e.observe(ctx, m, integration.PlatformShopify, shopifyQty); err != nil {
		return nil, err
	}

	result := &InventoryResult{
		SKU:         sku,
		NaverQty:    naverQty,
		ShopifyQty:  shopifyQty,
		Discrepancy: ComputeDiscrepancy(m, e.cfg.Thresholds),
	}

	if naverQty != shopifyQty {
		if err := e.push(ctx, m, integration.PlatformShopify, naverQty, "reconcile from naver", "system"); err != nil {
			return result, err
		}
		if _, err := e.record(ctx, m, inventory.NewTransactionParams{
			SKU:              sku,
			Platform:         integration.PlatformShopify,
			Type:             inventory.TransactionTypeSync,
			PreviousQuantity: shopifyQty,
			NewQuantity:      naverQty,
			Reason:           "reconcile from naver",
			InitiatedBy:      "system",
		}); err != nil {
			return result, err
		}
		result.Corrected = true
	}

	m.RecordSyncSuccess(e.clock.Now())
	if err := e.mappings.Save(ctx, m); err != nil {
		return result, fmt.Errorf("save mapping %s: %w", sku, err)
	}
	return result, nil
}

// observe records a drifted live quantity as a sync entry
func (e *Engine) observe(ctx context.Context, m *integration.Mapping, platform integration.PlatformCode, live int) error {
	if m.Quantity(platform) == live {
		return nil
	}
	_, err := e.record(ctx, m, inventory.NewTransactionParams{
		SKU:              m.SKU,
		Platform:         platform,
		Type:             inventory.TransactionTypeSync,
		PreviousQuantity: m.Quantity(platform),
		NewQuantity:      live,
		Reason:           "observed on platform",
		InitiatedBy:      "system",
	})
	return err
}

func (e *Engine) failSync(ctx context.Context, m *integration.Mapping, cause error) error {
	m.RecordSyncFailure(cause, e.clock.Now())
	if err := e.mappings.Save(ctx, m); err != nil {
		e.logger.Error("Failed to save mapping after sync failure", zap.String("sku", m.SKU), zap.Error(err))
	}
	return cause
}

// ---------------------------------------------------------------------------
// Price sync
// ---------------------------------------------------------------------------

// PriceOptions parameterize one price sync
type PriceOptions struct {
	Rules []integration.PriceRule
	// Rate defaults to the current rate from the RateSource
	Rate     *integration.ExchangeRate
	Rounding integration.RoundingStrategy
	// Margin overrides rules and the mapping margin
	Margin *decimal.Decimal
}

// PriceResult reports one price sync
type PriceResult struct {
	SKU           string          `json:"sku"`
	SourcePrice   decimal.Decimal `json:"source_price"`
	Rate          decimal.Decimal `json:"rate"`
	Margin        decimal.Decimal `json:"margin"`
	Rule          string          `json:"rule,omitempty"`
	PreviousPrice decimal.Decimal `json:"previous_price"`
	TargetPrice   decimal.Decimal `json:"target_price"`
	Updated       bool            `json:"updated"`
}

// SyncPrice converts the Naver KRW price into USD with margin and rounding and
// writes it to Shopify when it differs from the stored Shopify price by more
// than the epsilon.
func (e *Engine) SyncPrice(ctx context.Context, sku string, opts PriceOptions) (*PriceResult, error) {
	m, err := e.loadMapping(ctx, sku)
	if err != nil {
		return nil, err
	}
	if !m.IsActive {
		return nil, shared.NewValidationError(fmt.Sprintf("mapping %s is inactive", sku))
	}

	rate := opts.Rate
	if rate == nil {
		if e.rates == nil {
			return nil, shared.NewFatalSetupError("no exchange rate source", integration.ErrNoActiveExchangeRate)
		}
		if rate, err = e.rates.CurrentRate(ctx); err != nil {
			return nil, err
		}
	}
	rounding := opts.Rounding
	if !rounding.IsValid() {
		rounding = e.cfg.DefaultRounding
	}

	naver, err := e.platforms.Get(integration.PlatformNaver)
	if err != nil {
		return nil, shared.NewFatalSetupError("naver platform not configured", err)
	}
	shopify, err := e.platforms.Get(integration.PlatformShopify)
	if err != nil {
		return nil, shared.NewFatalSetupError("shopify platform not configured", err)
	}

	source, err := naver.GetPrice(ctx, m.Ref(integration.PlatformNaver))
	if err != nil {
		return nil, e.failSync(ctx, m, err)
	}
	current := m.Price(integration.PlatformShopify)

	margin, ruleName := e.marginFor(m, source, opts)
	target := rounding.Apply(rate.Convert(source).Mul(decimal.NewFromInt(1).Add(margin)))

	result := &PriceResult{
		SKU:           sku,
		SourcePrice:   source,
		Rate:          rate.Rate,
		Margin:        margin,
		Rule:          ruleName,
		PreviousPrice: current,
		TargetPrice:   target,
	}

	now := e.clock.Now()
	if target.Sub(current).Abs().GreaterThan(e.cfg.PriceEpsilon) {
		if err := shopify.UpdatePrice(ctx, m.Ref(integration.PlatformShopify), target); err != nil {
			e.raise(ctx, alert.TypeUpdateFailed, alert.SeverityMedium, sku,
				fmt.Sprintf("Failed to update shopify price for %s", sku),
				map[string]any{"target_price": target.StringFixed(2), "error": err.Error()})
			return result, e.failSync(ctx, m, err)
		}
		result.Updated = true
		current = target
	}

	m.SetPrice(integration.PlatformNaver, source, now)
	m.SetPrice(integration.PlatformShopify, current, now)
	m.ExchangeRate = rate.Rate
	m.RecordSyncSuccess(now)
	if err := e.mappings.Save(ctx, m); err != nil {
		return result, fmt.Errorf("save mapping %s: %w", sku, err)
	}
	return result, nil
}

// marginFor resolves margin precedence: explicit option, matching rule,
// mapping margin, configured default.
func (e *Engine) marginFor(m *integration.Mapping, source decimal.Decimal, opts PriceOptions) (decimal.Decimal, string) {
	if opts.Margin != nil {
		return *opts.Margin, "option"
	}
	if rule := integration.SelectPriceRule(opts.Rules, m, source); rule != nil {
		return rule.Margin, rule.Name
	}
	if m.Margin.IsPositive() {
		return m.Margin, "mapping"
	}
	return e.cfg.DefaultMargin, "default"
}
