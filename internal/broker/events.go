package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"stock-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderCreated publishes the OrderCreated event. Called exactly once
// per committed order; the consumer's ledger absorbs any duplicate the
// channel (or a misbehaving caller) produces.
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	key := fmt.Sprintf("order-%s", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// DeadLetterPublisher routes unresolvable event lines to the dead-letter
// topic for operator intervention
type DeadLetterPublisher struct {
	producer *Producer
}

// NewDeadLetterPublisher creates a new dead-letter publisher
func NewDeadLetterPublisher(producer *Producer) *DeadLetterPublisher {
	return &DeadLetterPublisher{producer: producer}
}

// PublishDeadLetter publishes a dead-letter record
func (dp *DeadLetterPublisher) PublishDeadLetter(ctx context.Context, rec *models.DeadLetterRecord) error {
	key := fmt.Sprintf("order-%s-variant-%s", rec.OrderID, rec.VariantID)
	return dp.producer.PublishEvent(ctx, key, rec)
}

// EventHandler handles incoming events
type EventHandler struct {
	onOrderCreated func(context.Context, *models.OrderCreatedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnOrderCreated registers a handler for OrderCreated events
func (eh *EventHandler) OnOrderCreated(handler func(context.Context, *models.OrderCreatedEvent) error) {
	eh.onOrderCreated = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypeOrderCreated:
		if eh.onOrderCreated != nil {
			var event models.OrderCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderCreated event: %w", err)
			}
			return eh.onOrderCreated(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
