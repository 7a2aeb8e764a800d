package webhook

import (
	"context"
	"errors"
	"time"
)

// DefaultReceiptTTL bounds the deduplication window. Redeliveries after it are processed again.
const DefaultReceiptTTL = 24 * time.Hour

// ErrReceiptNotFound is returned on an idempotency store miss
var ErrReceiptNotFound = errors.New("webhook: receipt not found")

// OutcomeStatus summarizes how an event was handled
type OutcomeStatus string

const (
	OutcomeProcessed OutcomeStatus = "processed"
	OutcomePartial   OutcomeStatus = "partial"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeIgnored   OutcomeStatus = "ignored"
	OutcomeRejected  OutcomeStatus = "rejected"
)

// ItemStatus is the per-line result
type ItemStatus string

const (
	ItemApplied     ItemStatus = "applied"
	ItemFailed      ItemStatus = "failed"
	ItemCompensated ItemStatus = "compensated"
)

// ItemOutcome records what happened to one line item or inventory level
type ItemOutcome struct {
	Reference string     `json:"reference"`
	SKU       string     `json:"sku,omitempty"`
	Quantity  int        `json:"quantity"`
	Status    ItemStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
}

// Outcome is the recorded result of handling one event
type Outcome struct {
	EventID     string        `json:"event_id"`
	EventType   EventType     `json:"event_type"`
	Status      OutcomeStatus `json:"status"`
	OrderID     string        `json:"order_id,omitempty"`
	Items       []ItemOutcome `json:"items,omitempty"`
	Message     string        `json:"message,omitempty"`
	ProcessedAt time.Time     `json:"processed_at"`
	// Duplicate is set on the copy returned for a short-circuited redelivery; never stored
	Duplicate bool `json:"duplicate,omitempty"`
}

// Summarize derives Status from item results
func (o *Outcome) Summarize() {
	if len(o.Items) == 0 {
		if o.Status == "" {
			o.Status = OutcomeIgnored
		}
		return
	}
	failed := 0
	for _, it := range o.Items {
		if it.Status == ItemFailed {
			failed++
		}
	}
	switch {
	case failed == 0:
		o.Status = OutcomeProcessed
	case failed == len(o.Items):
		o.Status = OutcomeFailed
	default:
		o.Status = OutcomePartial
	}
}

// OrderLine is the per-SKU state of one order across its deliveries
type OrderLine struct {
	Reference string `json:"reference"`
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	// Applied is set once the paid decrement succeeded
	Applied bool `json:"applied"`
	// Compensated is set once the cancellation increment succeeded
	Compensated bool `json:"compensated"`
}

// OrderRecord tracks which order lines were decremented and compensated.
// A cancelled order is terminal: later paid deliveries change nothing.
type OrderRecord struct {
	OrderID   string      `json:"order_id"`
	Lines     []OrderLine `json:"lines,omitempty"`
	Cancelled bool        `json:"cancelled"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Line returns the line for sku, or nil
func (r *OrderRecord) Line(sku string) *OrderLine {
	for i := range r.Lines {
		if r.Lines[i].SKU == sku {
			return &r.Lines[i]
		}
	}
	return nil
}

// Applied reports whether sku was already decremented for this order
func (r *OrderRecord) Applied(sku string) bool {
	l := r.Line(sku)
	return l != nil && l.Applied
}

// MarkApplied records a successful decrement of qty for sku
func (r *OrderRecord) MarkApplied(reference, sku string, qty int) {
	if l := r.Line(sku); l != nil {
		l.Quantity += qty
		l.Applied = true
		return
	}
	r.Lines = append(r.Lines, OrderLine{Reference: reference, SKU: sku, Quantity: qty, Applied: true})
}

// Uncompensated returns the indexes of applied lines not yet compensated
func (r *OrderRecord) Uncompensated() []int {
	var idx []int
	for i, l := range r.Lines {
		if l.Applied && !l.Compensated {
			idx = append(idx, i)
		}
	}
	return idx
}

// Compensated reports whether at least one line was compensated
func (r *OrderRecord) Compensated() bool {
	for _, l := range r.Lines {
		if l.Compensated {
			return true
		}
	}
	return false
}

// Receipt marks an event id as processed within the TTL window
type Receipt struct {
	EventID    string    `json:"event_id"`
	EventType  EventType `json:"event_type"`
	Outcome    Outcome   `json:"outcome"`
	ReceivedAt time.Time `json:"received_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ReceiptStore is the TTL-bound idempotency store.
// Lookup then Record is a check-then-write without a distributed lock.
type ReceiptStore interface {
	// Lookup returns the receipt for eventID or ErrReceiptNotFound
	Lookup(ctx context.Context, eventID string) (*Receipt, error)
	// Record stores the receipt if none exists yet. It returns false when one already did.
	Record(ctx context.Context, receipt *Receipt, ttl time.Duration) (bool, error)
	// LookupOrder returns the order record or ErrReceiptNotFound
	LookupOrder(ctx context.Context, orderID string) (*OrderRecord, error)
	// RecordOrder stores or replaces the order record
	RecordOrder(ctx context.Context, record *OrderRecord, ttl time.Duration) error
	Close() error
}
