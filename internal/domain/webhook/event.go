// Package webhook models inbound platform events as tagged variants and the
// receipts that make their ingestion idempotent.
package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/YKLee98/naver-sub003/internal/domain/shared"
)

// EventType is the platform topic of a delivery
type EventType string

const (
	EventOrderPaid            EventType = "orders/paid"
	EventOrderCancelled       EventType = "orders/cancelled"
	EventInventoryLevelUpdate EventType = "inventory_levels/update"
)

// IsValid returns true if the event type is handled
func (t EventType) IsValid() bool {
	switch t {
	case EventOrderPaid, EventOrderCancelled, EventInventoryLevelUpdate:
		return true
	}
	return false
}

// ErrUnsupportedEventType is returned for topics with no handler
var ErrUnsupportedEventType = errors.New("webhook: unsupported event type")

// ID accepts JSON numbers or strings; platforms send numeric ids that overflow float64
type ID string

// UnmarshalJSON implements json.Unmarshaler
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// String returns the raw id
func (id ID) String() string { return string(id) }

// Event is implemented by every payload variant
type Event interface {
	Type() EventType
}

// LineItem is one order line
type LineItem struct {
	ID        ID     `json:"id"`
	VariantID ID     `json:"variant_id"`
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// Reference returns the best identifier for mapping resolution
func (l LineItem) Reference() string {
	if s := strings.TrimSpace(l.SKU); s != "" {
		return s
	}
	return l.VariantID.String()
}

// OrderPaid is emitted when an order is paid
type OrderPaid struct {
	OrderID   ID         `json:"id" validate:"required"`
	Name      string     `json:"name"`
	LineItems []LineItem `json:"line_items" validate:"required,min=1,dive"`
}

// Type implements Event
func (OrderPaid) Type() EventType { return EventOrderPaid }

// OrderCancelled is emitted when an order is cancelled
type OrderCancelled struct {
	OrderID      ID     `json:"id" validate:"required"`
	CancelReason string `json:"cancel_reason"`
}

// Type implements Event
func (OrderCancelled) Type() EventType { return EventOrderCancelled }

// InventoryLevelUpdate reports an absolute available quantity for an item at a location
type InventoryLevelUpdate struct {
	InventoryItemID ID         `json:"inventory_item_id" validate:"required"`
	LocationID      ID         `json:"location_id"`
	Available       *int       `json:"available" validate:"required,gte=0"`
	UpdatedAt       *time.Time `json:"updated_at"`
}

// Type implements Event
func (InventoryLevelUpdate) Type() EventType { return EventInventoryLevelUpdate }

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode parses payload into the variant for eventType and validates it.
// Failures are validation errors so they are rejected before any business logic.
func Decode(eventType EventType, payload []byte) (Event, error) {
	var ev Event
	switch eventType {
	case EventOrderPaid:
		var e OrderPaid
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, decodeError(eventType, err)
		}
		ev = e
	case EventOrderCancelled:
		var e OrderCancelled
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, decodeError(eventType, err)
		}
		ev = e
	case EventInventoryLevelUpdate:
		var e InventoryLevelUpdate
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, decodeError(eventType, err)
		}
		ev = e
	default:
		return nil, shared.NewValidationError(fmt.Sprintf("%s: %q", ErrUnsupportedEventType.Error(), eventType))
	}

	if err := validate.Struct(ev); err != nil {
		return nil, shared.NewValidationError(fmt.Sprintf("invalid %s payload: %s", eventType, describeValidation(err)))
	}
	return ev, nil
}

func decodeError(t EventType, err error) error {
	return shared.NewValidationError(fmt.Sprintf("malformed %s payload: %v", t, err))
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
