package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/YKLee98/naver-sub003/internal/application/monitoring"
	"github.com/YKLee98/naver-sub003/internal/domain/alert"
	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/inventory"
	"github.com/YKLee98/naver-sub003/internal/domain/syncjob"
	"github.com/YKLee98/naver-sub003/internal/domain/webhook"
)

// ---------------------------------------------------------------------------
// Jobs
// ---------------------------------------------------------------------------

// CreateJobRequest starts a sync job. Options are validated by the orchestrator.
type CreateJobRequest struct {
	Type    string          `json:"type" binding:"required,oneof=full partial"`
	Options syncjob.Options `json:"options"`
}

// ListJobsRequest filters the job listing
type ListJobsRequest struct {
	ListRequest
	Status string `form:"status" binding:"omitempty,oneof=pending running completed failed cancelled"`
	Type   string `form:"type" binding:"omitempty,oneof=full partial"`
}

// JobResponse is the polling view of a job
type JobResponse struct {
	ID            uuid.UUID           `json:"id"`
	Type          syncjob.Type        `json:"type"`
	Status        syncjob.Status      `json:"status"`
	Options       syncjob.Options     `json:"options"`
	Progress      syncjob.Progress    `json:"progress"`
	SuccessCount  int                 `json:"success_count"`
	FailedCount   int                 `json:"failed_count"`
	Errors        []syncjob.ItemError `json:"errors"`
	FailureReason string              `json:"failure_reason,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	StartedAt     *time.Time          `json:"started_at,omitempty"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
	ExecutionMS   int64               `json:"execution_ms,omitempty"`
}

// NewJobResponse converts a job
func NewJobResponse(j *syncjob.SyncJob) JobResponse {
	errs := j.Errors
	if errs == nil {
		errs = []syncjob.ItemError{}
	}
	return JobResponse{
		ID:            j.ID,
		Type:          j.Type,
		Status:        j.Status,
		Options:       j.Options,
		Progress:      j.Progress(),
		SuccessCount:  j.SuccessCount,
		FailedCount:   j.FailedCount,
		Errors:        errs,
		FailureReason: j.FailureReason,
		CreatedAt:     j.CreatedAt,
		StartedAt:     j.StartedAt,
		CompletedAt:   j.CompletedAt,
		ExecutionMS:   j.ExecutionTime.Milliseconds(),
	}
}

// ---------------------------------------------------------------------------
// Inventory
// ---------------------------------------------------------------------------

// AdjustInventoryRequest applies a reason-tagged delta
type AdjustInventoryRequest struct {
	Platform string `json:"platform" binding:"required,oneof=naver shopify"`
	Delta    int    `json:"delta" binding:"required"`
	Reason   string `json:"reason" binding:"required,max=255"`
	// Push writes the new level to the platform before recording it
	Push bool `json:"push"`
}

// HistoryRequest filters the ledger listing
type HistoryRequest struct {
	Platform string `form:"platform" binding:"omitempty,oneof=naver shopify"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// LedgerEntryResponse is one inventory transaction
type LedgerEntryResponse struct {
	ID               uuid.UUID                 `json:"id"`
	SKU              string                    `json:"sku"`
	Platform         integration.PlatformCode  `json:"platform"`
	Type             inventory.TransactionType `json:"type"`
	PreviousQuantity int                       `json:"previous_quantity"`
	NewQuantity      int                       `json:"new_quantity"`
	Delta            int                       `json:"delta"`
	Reason           string                    `json:"reason"`
	InitiatedBy      string                    `json:"initiated_by,omitempty"`
	OrderID          string                    `json:"order_id,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
}

// NewLedgerEntryResponse converts a ledger entry
func NewLedgerEntryResponse(tx *inventory.InventoryTransaction) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:               tx.ID,
		SKU:              tx.SKU,
		Platform:         tx.Platform,
		Type:             tx.Type,
		PreviousQuantity: tx.PreviousQuantity,
		NewQuantity:      tx.NewQuantity,
		Delta:            tx.Delta,
		Reason:           tx.Reason,
		InitiatedBy:      tx.InitiatedBy,
		OrderID:          tx.OrderID,
		CreatedAt:        tx.CreatedAt,
	}
}

// ---------------------------------------------------------------------------
// Mappings
// ---------------------------------------------------------------------------

// CreateMappingRequest registers a SKU on both platforms
type CreateMappingRequest struct {
	SKU                    string           `json:"sku" binding:"required,max=100"`
	ProductName            string           `json:"product_name" binding:"max=255"`
	Vendor                 string           `json:"vendor" binding:"max=100"`
	Category               string           `json:"category" binding:"max=100"`
	Brand                  string           `json:"brand" binding:"max=100"`
	NaverProductID         string           `json:"naver_product_id" binding:"required"`
	ShopifyProductID       string           `json:"shopify_product_id"`
	ShopifyVariantID       string           `json:"shopify_variant_id" binding:"required"`
	ShopifyInventoryItemID string           `json:"shopify_inventory_item_id"`
	ShopifyLocationID      string           `json:"shopify_location_id"`
	Margin                 *decimal.Decimal `json:"margin"`
	Activate               bool             `json:"activate"`
}

// ListMappingsRequest filters the mapping listing
type ListMappingsRequest struct {
	ListRequest
	Active     *bool  `form:"active"`
	SyncStatus string `form:"sync_status" binding:"omitempty,oneof=synced pending error"`
	Vendor     string `form:"vendor"`
	Search     string `form:"search"`
}

// MappingResponse is a mapping with both cached sides
type MappingResponse struct {
	ID                     uuid.UUID              `json:"id"`
	SKU                    string                 `json:"sku"`
	ProductName            string                 `json:"product_name"`
	Vendor                 string                 `json:"vendor,omitempty"`
	Category               string                 `json:"category,omitempty"`
	Brand                  string                 `json:"brand,omitempty"`
	NaverProductID         string                 `json:"naver_product_id"`
	ShopifyProductID       string                 `json:"shopify_product_id,omitempty"`
	ShopifyVariantID       string                 `json:"shopify_variant_id"`
	ShopifyInventoryItemID string                 `json:"shopify_inventory_item_id,omitempty"`
	ShopifyLocationID      string                 `json:"shopify_location_id,omitempty"`
	Margin                 decimal.Decimal        `json:"margin"`
	IsActive               bool                   `json:"is_active"`
	Status                 string                 `json:"status"`
	SyncStatus             integration.SyncStatus `json:"sync_status"`
	NaverQuantity          int                    `json:"naver_quantity"`
	ShopifyQuantity        int                    `json:"shopify_quantity"`
	NaverPrice             decimal.Decimal        `json:"naver_price"`
	ShopifyPrice           decimal.Decimal        `json:"shopify_price"`
	LastSyncedAt           *time.Time             `json:"last_synced_at,omitempty"`
	LastError              string                 `json:"last_error,omitempty"`
	UpdatedAt              time.Time              `json:"updated_at"`
}

// NewMappingResponse converts a mapping
func NewMappingResponse(m *integration.Mapping) MappingResponse {
	return MappingResponse{
		ID:                     m.ID,
		SKU:                    m.SKU,
		ProductName:            m.ProductName,
		Vendor:                 m.Vendor,
		Category:               m.Category,
		Brand:                  m.Brand,
		NaverProductID:         m.NaverProductID,
		ShopifyProductID:       m.ShopifyProductID,
		ShopifyVariantID:       m.ShopifyVariantID,
		ShopifyInventoryItemID: m.ShopifyInventoryItemID,
		ShopifyLocationID:      m.ShopifyLocationID,
		Margin:                 m.Margin,
		IsActive:               m.IsActive,
		Status:                 string(m.Status),
		SyncStatus:             m.SyncStatus,
		NaverQuantity:          m.Quantity(integration.PlatformNaver),
		ShopifyQuantity:        m.Quantity(integration.PlatformShopify),
		NaverPrice:             m.NaverPrice,
		ShopifyPrice:           m.ShopifyPrice,
		LastSyncedAt:           m.LastSyncedAt,
		LastError:              m.LastError,
		UpdatedAt:              m.UpdatedAt,
	}
}

// ---------------------------------------------------------------------------
// Exchange rates
// ---------------------------------------------------------------------------

// ManualRateRequest replaces the active KRW to USD rate
type ManualRateRequest struct {
	Rate      decimal.Decimal `json:"rate" binding:"required"`
	Reason    string          `json:"reason" binding:"required,max=255"`
	ValidDays int             `json:"valid_days" binding:"omitempty,min=1,max=365"`
}

// ExchangeRateResponse is one rate record
type ExchangeRateResponse struct {
	ID             uuid.UUID              `json:"id"`
	BaseCurrency   string                 `json:"base_currency"`
	TargetCurrency string                 `json:"target_currency"`
	Rate           decimal.Decimal        `json:"rate"`
	Source         integration.RateSource `json:"source"`
	IsActive       bool                   `json:"is_active"`
	Reason         string                 `json:"reason,omitempty"`
	ValidFrom      time.Time              `json:"valid_from"`
	ValidUntil     *time.Time             `json:"valid_until,omitempty"`
}

// NewExchangeRateResponse converts a rate
func NewExchangeRateResponse(r *integration.ExchangeRate) ExchangeRateResponse {
	return ExchangeRateResponse{
		ID:             r.ID,
		BaseCurrency:   r.BaseCurrency,
		TargetCurrency: r.TargetCurrency,
		Rate:           r.Rate,
		Source:         r.Source,
		IsActive:       r.IsActive,
		Reason:         r.Reason,
		ValidFrom:      r.ValidFrom,
		ValidUntil:     r.ValidUntil,
	}
}

// ---------------------------------------------------------------------------
// Alerts and monitoring
// ---------------------------------------------------------------------------

// ListAlertsRequest filters the alert listing
type ListAlertsRequest struct {
	UnresolvedOnly bool `form:"unresolved_only"`
}

// ResolveAlertRequest optionally names who resolved the alert
type ResolveAlertRequest struct {
	ResolvedBy string `json:"resolved_by" binding:"max=100"`
}

// AlertResponse is one alert
type AlertResponse struct {
	ID         string         `json:"id"`
	Type       alert.Type     `json:"type"`
	Severity   alert.Severity `json:"severity"`
	SKU        string         `json:"sku"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	Resolved   bool           `json:"resolved"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
	ResolvedBy string         `json:"resolved_by,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewAlertResponse converts an alert
func NewAlertResponse(a *alert.Alert) AlertResponse {
	return AlertResponse{
		ID:         a.ID,
		Type:       a.Type,
		Severity:   a.Severity,
		SKU:        a.SKU,
		Message:    a.Message,
		Details:    a.Details,
		Resolved:   a.Resolved,
		ResolvedAt: a.ResolvedAt,
		ResolvedBy: a.ResolvedBy,
		CreatedAt:  a.CreatedAt,
	}
}

// FleetMetricsResponse is the cached fleet sample
type FleetMetricsResponse = monitoring.FleetMetrics

// ---------------------------------------------------------------------------
// Webhooks
// ---------------------------------------------------------------------------

// WebhookAck is returned for every accepted delivery
type WebhookAck struct {
	Received  bool                  `json:"received"`
	EventID   string                `json:"event_id"`
	Status    webhook.OutcomeStatus `json:"status"`
	Duplicate bool                  `json:"duplicate,omitempty"`
}
