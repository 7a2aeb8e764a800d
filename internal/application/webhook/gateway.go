// Package webhook verifies, deduplicates and applies inbound Shopify deliveries.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/YKLee98/naver-sub003/internal/application/reconciliation"
	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/inventory"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
	"github.com/YKLee98/naver-sub003/internal/domain/webhook"
)

// Adjuster applies ledger-backed inventory changes
type Adjuster interface {
	Adjust(ctx context.Context, p reconciliation.AdjustParams) (*inventory.InventoryTransaction, error)
	SetLevel(ctx context.Context, m *integration.Mapping, platform integration.PlatformCode, qty int, reason, by string) (*inventory.InventoryTransaction, error)
}

// Config controls verification and retention
type Config struct {
	// Secret is the shared HMAC key; empty skips verification
	Secret string
	// ReceiptTTL is the deduplication window per event id
	ReceiptTTL time.Duration
	// OrderTTL is how long a paid order stays compensable
	OrderTTL time.Duration
}

// Delivery is one inbound webhook request
type Delivery struct {
	EventID   string
	EventType webhook.EventType
	Payload   []byte
	Signature string
}

// Gateway turns verified deliveries into reconciliation calls exactly once per event id
type Gateway struct {
	receipts webhook.ReceiptStore
	mappings integration.MappingReader
	engine   Adjuster
	cfg      Config
	clock    shared.Clock
	logger   *zap.Logger
}

// NewGateway creates a Gateway
func NewGateway(receipts webhook.ReceiptStore, mappings integration.MappingReader, engine Adjuster, cfg Config, clock shared.Clock, logger *zap.Logger) *Gateway {
	if cfg.ReceiptTTL <= 0 {
		cfg.ReceiptTTL = webhook.DefaultReceiptTTL
	}
	if cfg.OrderTTL < cfg.ReceiptTTL {
		cfg.OrderTTL = cfg.ReceiptTTL
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Secret == "" {
		logger.Warn("Webhook secret not configured, signature verification disabled")
	}
	return &Gateway{
		receipts: receipts,
		mappings: mappings,
		engine:   engine,
		cfg:      cfg,
		clock:    clock,
		logger:   logger.Named("webhook"),
	}
}

// ---------------------------------------------------------------------------
// Verification
// ---------------------------------------------------------------------------

// Sign returns the base64 HMAC-SHA256 of body under secret
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches body. An empty secret always verifies.
func VerifySignature(body []byte, signature, secret string) bool {
	if secret == "" {
		return true
	}
	if signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(body, secret)), []byte(signature))
}

// Verify checks the delivery signature against the configured secret
func (g *Gateway) Verify(body []byte, signature string) error {
	if !VerifySignature(body, signature, g.cfg.Secret) {
		return shared.ErrSignatureVerification
	}
	return nil
}

// ---------------------------------------------------------------------------
// Ingestion
// ---------------------------------------------------------------------------

// HandleDelivery verifies and ingests d. The only error it returns is a
// signature failure; every other failure is reported through the outcome.
func (g *Gateway) HandleDelivery(ctx context.Context, d Delivery) (*webhook.Outcome, error) {
	if err := g.Verify(d.Payload, d.Signature); err != nil {
		g.logger.Warn("Rejected webhook with invalid signature",
			zap.String("event_id", d.EventID), zap.String("event_type", string(d.EventType)))
		return &webhook.Outcome{
			EventID:     d.EventID,
			EventType:   d.EventType,
			Status:      webhook.OutcomeRejected,
			Message:     "signature verification failed",
			ProcessedAt: g.clock.Now(),
		}, err
	}

	outcome, err := g.Ingest(ctx, d.EventID, d.EventType, d.Payload)
	if err != nil {
		g.logger.Error("Webhook ingestion failed",
			zap.String("event_id", d.EventID),
			zap.String("event_type", string(d.EventType)),
			zap.Error(err),
		)
	}
	return outcome, nil
}

// Ingest processes one event id at most once per ReceiptTTL and returns the
// recorded outcome. A redelivery returns the first outcome with Duplicate set.
func (g *Gateway) Ingest(ctx context.Context, eventID string, eventType webhook.EventType, payload []byte) (*webhook.Outcome, error) {
	now := g.clock.Now()
	outcome := &webhook.Outcome{EventID: eventID, EventType: eventType, ProcessedAt: now}

	if eventID == "" {
		outcome.Status = webhook.OutcomeRejected
		outcome.Message = "missing event id"
		return outcome, shared.NewValidationError("missing event id")
	}

	prior, err := g.receipts.Lookup(ctx, eventID)
	switch {
	case err == nil:
		dup := prior.Outcome
		dup.Duplicate = true
		g.logger.Info("Duplicate webhook delivery", zap.String("event_id", eventID))
		return &dup, nil
	case !errors.Is(err, webhook.ErrReceiptNotFound):
		outcome.Status = webhook.OutcomeFailed
		outcome.Message = "idempotency store unavailable"
		return outcome, fmt.Errorf("lookup receipt %s: %w", eventID, err)
	}

	ev, err := webhook.Decode(eventType, payload)
	if err != nil {
		outcome.Status = webhook.OutcomeRejected
		outcome.Message = err.Error()
		g.record(ctx, outcome)
		return outcome, err
	}

	var handleErr error
	switch e := ev.(type) {
	case webhook.OrderPaid:
		handleErr = g.handleOrderPaid(ctx, e, outcome)
	case webhook.OrderCancelled:
		handleErr = g.handleOrderCancelled(ctx, e, outcome)
	case webhook.InventoryLevelUpdate:
		g.handleInventoryLevel(ctx, e, outcome)
	}
	if outcome.Status != webhook.OutcomeIgnored {
		outcome.Summarize()
	}

	g.record(ctx, outcome)
	g.logger.Info("Webhook processed",
		zap.String("event_id", eventID),
		zap.String("event_type", string(eventType)),
		zap.String("status", string(outcome.Status)),
		zap.Int("items", len(outcome.Items)),
	)
	return outcome, handleErr
}

// record stores the receipt. Losing the race to a concurrent duplicate is logged only.
func (g *Gateway) record(ctx context.Context, outcome *webhook.Outcome) {
	receipt := &webhook.Receipt{
		EventID:    outcome.EventID,
		EventType:  outcome.EventType,
		Outcome:    *outcome,
		ReceivedAt: outcome.ProcessedAt,
		ExpiresAt:  outcome.ProcessedAt.Add(g.cfg.ReceiptTTL),
	}
	stored, err := g.receipts.Record(ctx, receipt, g.cfg.ReceiptTTL)
	if err != nil {
		g.logger.Error("Failed to record webhook receipt", zap.String("event_id", outcome.EventID), zap.Error(err))
		return
	}
	if !stored {
		g.logger.Warn("Concurrent duplicate delivery processed", zap.String("event_id", outcome.EventID))
	}
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

// resolve finds the mapping for a line item by SKU, then by Shopify variant id
func (g *Gateway) resolve(ctx context.Context, li webhook.LineItem) (*integration.Mapping, error) {
	if li.SKU != "" {
		m, err := g.mappings.FindBySKU(ctx, li.SKU)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}
	if li.VariantID != "" {
		m, err := g.mappings.FindByShopifyVariantID(ctx, li.VariantID.String())
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}
	return nil, shared.NewUnresolvedMappingError(li.Reference())
}

// loadOrder returns the order record, or a fresh one when none is stored
func (g *Gateway) loadOrder(ctx context.Context, orderID string) (*webhook.OrderRecord, error) {
	rec, err := g.receipts.LookupOrder(ctx, orderID)
	if errors.Is(err, webhook.ErrReceiptNotFound) {
		return &webhook.OrderRecord{OrderID: orderID}, nil
	}
	return rec, err
}

func (g *Gateway) saveOrder(ctx context.Context, rec *webhook.OrderRecord) error {
	rec.UpdatedAt = g.clock.Now()
	if err := g.receipts.RecordOrder(ctx, rec, g.cfg.OrderTTL); err != nil {
		return fmt.Errorf("record order %s: %w", rec.OrderID, err)
	}
	return nil
}

// handleOrderPaid decrements Naver stock for each resolvable line. Lines already
// applied for the same order under another event id are not decremented again,
// and a cancelled order is never decremented.
func (g *Gateway) handleOrderPaid(ctx context.Context, e webhook.OrderPaid, out *webhook.Outcome) error {
	out.OrderID = e.OrderID.String()

	rec, err := g.loadOrder(ctx, out.OrderID)
	if err != nil {
		out.Status = webhook.OutcomeFailed
		out.Message = "order record unavailable"
		return fmt.Errorf("lookup order %s: %w", out.OrderID, err)
	}
	if rec.Cancelled {
		out.Status = webhook.OutcomeIgnored
		out.Message = "order already cancelled"
		return nil
	}

	applied := map[string]bool{}
	for _, l := range rec.Lines {
		if l.Applied {
			applied[l.SKU] = true
		}
	}

	for _, li := range e.LineItems {
		item := webhook.ItemOutcome{Reference: li.Reference(), Quantity: li.Quantity}

		m, err := g.resolve(ctx, li)
		if err != nil {
			item.Status, item.Error = webhook.ItemFailed, err.Error()
			out.Items = append(out.Items, item)
			continue
		}
		item.SKU = m.SKU

		if applied[m.SKU] {
			item.Status = webhook.ItemApplied
			out.Items = append(out.Items, item)
			continue
		}

		_, err = g.engine.Adjust(ctx, reconciliation.AdjustParams{
			SKU:         m.SKU,
			Platform:    integration.PlatformNaver,
			Delta:       -li.Quantity,
			Reason:      fmt.Sprintf("shopify order %s paid", orderLabel(e)),
			InitiatedBy: "webhook",
			OrderID:     out.OrderID,
			Type:        inventory.TransactionTypeSale,
			Push:        true,
		})
		if err != nil {
			item.Status, item.Error = webhook.ItemFailed, err.Error()
		} else {
			item.Status = webhook.ItemApplied
			rec.MarkApplied(item.Reference, m.SKU, li.Quantity)
		}
		out.Items = append(out.Items, item)
	}

	return g.saveOrder(ctx, rec)
}

// handleOrderCancelled compensates every applied line not yet compensated and
// marks the order cancelled. A failed increment stays pending for the next
// cancellation delivery. Without a prior record nothing is adjusted.
func (g *Gateway) handleOrderCancelled(ctx context.Context, e webhook.OrderCancelled, out *webhook.Outcome) error {
	out.OrderID = e.OrderID.String()

	rec, err := g.loadOrder(ctx, out.OrderID)
	if err != nil {
		out.Status = webhook.OutcomeFailed
		out.Message = "order record unavailable"
		return fmt.Errorf("lookup order %s: %w", out.OrderID, err)
	}
	known := len(rec.Lines) > 0 || rec.Cancelled
	rec.Cancelled = true

	pending := rec.Uncompensated()
	if len(pending) == 0 {
		out.Status = webhook.OutcomeIgnored
		switch {
		case rec.Compensated():
			out.Message = "order already compensated"
		case known:
			out.Message = "nothing to compensate"
		default:
			out.Message = "no prior outcome for order"
		}
		return g.saveOrder(ctx, rec)
	}

	for _, i := range pending {
		l := &rec.Lines[i]
		item := webhook.ItemOutcome{Reference: l.Reference, SKU: l.SKU, Quantity: l.Quantity}
		_, err := g.engine.Adjust(ctx, reconciliation.AdjustParams{
			SKU:         l.SKU,
			Platform:    integration.PlatformNaver,
			Delta:       l.Quantity,
			Reason:      fmt.Sprintf("compensate cancelled order %s: %s", out.OrderID, e.CancelReason),
			InitiatedBy: "webhook",
			OrderID:     out.OrderID,
			Type:        inventory.TransactionTypeAdjustment,
			Push:        true,
		})
		if err != nil {
			item.Status, item.Error = webhook.ItemFailed, err.Error()
		} else {
			item.Status = webhook.ItemCompensated
			l.Compensated = true
		}
		out.Items = append(out.Items, item)
	}

	return g.saveOrder(ctx, rec)
}

// handleInventoryLevel records the reported Shopify level as authoritative
func (g *Gateway) handleInventoryLevel(ctx context.Context, e webhook.InventoryLevelUpdate, out *webhook.Outcome) {
	item := webhook.ItemOutcome{Reference: e.InventoryItemID.String(), Quantity: *e.Available}

	m, err := g.mappings.FindByInventoryItem(ctx, e.InventoryItemID.String(), e.LocationID.String())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			err = shared.NewUnresolvedMappingError(e.InventoryItemID.String())
		}
		item.Status, item.Error = webhook.ItemFailed, err.Error()
		out.Items = append(out.Items, item)
		return
	}
	item.SKU = m.SKU

	if _, err := g.engine.SetLevel(ctx, m, integration.PlatformShopify, *e.Available, "shopify inventory level update", "webhook"); err != nil {
		item.Status, item.Error = webhook.ItemFailed, err.Error()
	} else {
		item.Status = webhook.ItemApplied
	}
	out.Items = append(out.Items, item)
}

func orderLabel(e webhook.OrderPaid) string {
	if e.Name != "" {
		return e.Name
	}
	return e.OrderID.String()
}
