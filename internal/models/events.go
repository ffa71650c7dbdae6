package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventTypeOrderCreated = "ORDER_CREATED"
)

// Dead-letter reasons
const (
	DeadLetterReasonVariantNotFound   = "VARIANT_NOT_FOUND"
	DeadLetterReasonRetryExhausted    = "RETRY_EXHAUSTED"
	DeadLetterReasonInsufficientStock = "INSUFFICIENT_STOCK"
	DeadLetterReasonInvalidAmount     = "INVALID_AMOUNT"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent notifies the inventory side that an order committed.
// It carries identity and quantity only; price and name stay on the sales
// side.
type OrderCreatedEvent struct {
	BaseEvent
	OrderID string          `json:"order_id"`
	Lines   []EventLineData `json:"lines"`
}

// EventLineData is the per-line projection carried on the wire.
type EventLineData struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// NewOrderCreatedEvent projects a committed order onto the wire schema.
// Lines targeting the same variant are merged into one tuple with their
// quantities summed: the consumer's ledger is keyed (order id, variant id),
// so a variant may appear at most once per event or the extra lines would be
// skipped as duplicates.
func NewOrderCreatedEvent(order *Order) *OrderCreatedEvent {
	lines := make([]EventLineData, 0, len(order.Lines))
	byVariant := make(map[string]int, len(order.Lines))
	for _, l := range order.Lines {
		if i, seen := byVariant[l.VariantID]; seen {
			lines[i].Quantity += l.Quantity
			continue
		}
		byVariant[l.VariantID] = len(lines)
		lines = append(lines, EventLineData{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
		})
	}

	return &OrderCreatedEvent{
		BaseEvent: BaseEvent{
			EventID:   uuid.New().String(),
			EventType: EventTypeOrderCreated,
			Timestamp: time.Now().UTC(),
		},
		OrderID: order.ID,
		Lines:   lines,
	}
}

// DeadLetterRecord is published for event lines that reached a terminal
// failure the pipeline cannot resolve on its own.
type DeadLetterRecord struct {
	OrderID   string    `json:"order_id"`
	VariantID string    `json:"variant_id"`
	Quantity  int       `json:"quantity"`
	Reason    string    `json:"reason"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// ProcessedEventRecord marks one event line as durably applied to inventory.
// Keyed by (order id, variant id); its presence makes redelivery a no-op.
type ProcessedEventRecord struct {
	OrderID     string    `db:"order_id"`
	VariantID   string    `db:"variant_id"`
	Quantity    int       `db:"quantity"`
	ProcessedAt time.Time `db:"processed_at"`
}
