package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"stock-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRetryer() *Retryer {
	return NewRetryer(5, time.Millisecond, 10*time.Millisecond)
}

func orderEvent(orderID string, lines ...models.EventLineData) *models.OrderCreatedEvent {
	return &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-" + orderID,
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Now(),
		},
		OrderID: orderID,
		Lines:   lines,
	}
}

func TestHandleOrderCreated_DecrementsStock(t *testing.T) {
	store := newMemInventoryStore()
	store.addVariant("v1", 20)
	svc := NewStockService(store, nil, &memDeadLetter{}, testRetryer())

	event := orderEvent("order-1", models.EventLineData{ProductID: "p1", VariantID: "v1", Quantity: 5})
	require.NoError(t, svc.HandleOrderCreated(context.Background(), event))

	assert.Equal(t, 15, store.quantity("v1"))

	processed, err := store.IsLineProcessed(context.Background(), "order-1", "v1")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestHandleOrderCreated_Idempotent(t *testing.T) {
	store := newMemInventoryStore()
	store.addVariant("v1", 20)
	svc := NewStockService(store, nil, &memDeadLetter{}, testRetryer())

	event := orderEvent("order-1", models.EventLineData{ProductID: "p1", VariantID: "v1", Quantity: 5})

	require.NoError(t, svc.HandleOrderCreated(context.Background(), event))
	require.NoError(t, svc.HandleOrderCreated(context.Background(), event))
	require.NoError(t, svc.HandleOrderCreated(context.Background(), event))

	// same final quantity as a single delivery
	assert.Equal(t, 15, store.quantity("v1"))
}

func TestHandleOrderCreated_RepeatedVariantDecrementsFully(t *testing.T) {
	store := newMemInventoryStore()
	store.addVariant("v1", 20)
	svc := NewStockService(store, nil, &memDeadLetter{}, testRetryer())

	// two lines for the same shoe size collapse into one event tuple, so
	// the ledger (keyed order id + variant id) cannot swallow the second
	order, err := models.NewOrder("cust-1")
	require.NoError(t, err)
	require.NoError(t, order.AddLine("p1", "v1", "Shoe", 15000, 5))
	require.NoError(t, order.AddLine("p1", "v1", "Shoe", 15000, 5))

	event := models.NewOrderCreatedEvent(order)
	require.NoError(t, svc.HandleOrderCreated(context.Background(), event))

	assert.Equal(t, 10, store.quantity("v1"))

	// redelivery is still a no-op
	require.NoError(t, svc.HandleOrderCreated(context.Background(), event))
	assert.Equal(t, 10, store.quantity("v1"))
}

func TestHandleOrderCreated_CacheFastPath(t *testing.T) {
	store := newMemInventoryStore()
	store.addVariant("v1", 20)
	cache := newMemDedupCache()
	svc := NewStockService(store, cache, &memDeadLetter{}, testRetryer())

	event := orderEvent("order-1", models.EventLineData{ProductID: "p1", VariantID: "v1", Quantity: 5})
	require.NoError(t, svc.HandleOrderCreated(context.Background(), event))
	assert.Equal(t, 15, store.quantity("v1"))

	// marker written on commit, mirror tracks the committed quantity
	hit, err := cache.IsLineProcessed(context.Background(), "order-1", "v1")
	require.NoError(t, err)
	assert.True(t, hit)
	qty, ok, err := cache.GetMirroredQuantity(context.Background(), "v1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 15, qty)

	// redelivery short-circuits on the marker
	require.NoError(t, svc.HandleOrderCreated(context.Background(), event))
	assert.Equal(t, 15, store.quantity("v1"))
}

func TestHandleOrderCreated_VariantNotFound_DoesNotBlockSiblings(t *testing.T) {
	store := newMemInventoryStore()
	store.addVariant("v1", 20)
	deadLetter := &memDeadLetter{}
	svc := NewStockService(store, nil, deadLetter, testRetryer())

	event := orderEvent("order-1",
		models.EventLineData{ProductID: "p1", VariantID: "v1", Quantity: 5},
		models.EventLineData{ProductID: "p2", VariantID: "missing", Quantity: 1},
	)

	// the whole event is terminal: the bad line is dead-lettered, not retried
	require.NoError(t, svc.HandleOrderCreated(context.Background(), event))

	assert.Equal(t, 15, store.quantity("v1"))

	records := deadLetter.byReason(models.DeadLetterReasonVariantNotFound)
	require.Len(t, records, 1)
	assert.Equal(t, "missing", records[0].VariantID)
	assert.Equal(t, "order-1", records[0].OrderID)
}

func TestHandleOrderCreated_InsufficientStock(t *testing.T) {
	store := newMemInventoryStore()
	store.addVariant("v1", 20)
	deadLetter := &memDeadLetter{}
	svc := NewStockService(store, nil, deadLetter, testRetryer())

	event := orderEvent("order-1", models.EventLineData{ProductID: "p1", VariantID: "v1", Quantity: 25})
	require.NoError(t, svc.HandleOrderCreated(context.Background(), event))

	// record unchanged, reported, and NOT marked processed
	assert.Equal(t, 20, store.quantity("v1"))
	assert.Len(t, deadLetter.byReason(models.DeadLetterReasonInsufficientStock), 1)

	processed, err := store.IsLineProcessed(context.Background(), "order-1", "v1")
	require.NoError(t, err)
	assert.False(t, processed)

	// replenishment followed by redelivery succeeds
	_, err = svc.AddStock(context.Background(), "v1", 10)
	require.NoError(t, err)
	require.NoError(t, svc.HandleOrderCreated(context.Background(), event))
	assert.Equal(t, 5, store.quantity("v1"))
}

func TestHandleOrderCreated_ConcurrentOrders_NoLostUpdate(t *testing.T) {
	store := newMemInventoryStore()
	store.addVariant("v1", 100)

	// contention bound: a loser retries at most once per competing commit
	retryer := NewRetryer(15, time.Millisecond, 5*time.Millisecond)

	deadLetter := &memDeadLetter{}
	svc := NewStockService(store, nil, deadLetter, retryer)

	const orders = 10
	var wg sync.WaitGroup
	errs := make([]error, orders)
	for i := 0; i < orders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			event := orderEvent(fmt.Sprintf("order-%d", i),
				models.EventLineData{ProductID: "p1", VariantID: "v1", Quantity: 3})
			errs[i] = svc.HandleOrderCreated(context.Background(), event)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "order %d", i)
	}
	assert.Empty(t, deadLetter.records)
	assert.Equal(t, 100-orders*3, store.quantity("v1"))
}

func TestHandleOrderCreated_RetryExhausted_DeadLetters(t *testing.T) {
	store := newMemInventoryStore()
	store.addVariant("v1", 20)
	store.forceConflicts = 100
	deadLetter := &memDeadLetter{}
	svc := NewStockService(store, nil, deadLetter, NewRetryer(3, time.Millisecond, 2*time.Millisecond))

	event := orderEvent("order-1", models.EventLineData{ProductID: "p1", VariantID: "v1", Quantity: 5})

	// exhaustion is terminal for the message; escalation goes to the DLQ
	require.NoError(t, svc.HandleOrderCreated(context.Background(), event))

	assert.Equal(t, 20, store.quantity("v1"))
	records := deadLetter.byReason(models.DeadLetterReasonRetryExhausted)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Detail, "3 attempts")
}

func TestAddStock(t *testing.T) {
	store := newMemInventoryStore()
	store.addVariant("v1", 2)
	svc := NewStockService(store, nil, nil, testRetryer())

	item, err := svc.AddStock(context.Background(), "v1", 8)
	require.NoError(t, err)
	assert.Equal(t, 10, item.Quantity)
	assert.Equal(t, int64(1), item.Version)
	assert.Equal(t, 10, store.quantity("v1"))
}

func TestAddStock_Invalid(t *testing.T) {
	store := newMemInventoryStore()
	store.addVariant("v1", 2)
	svc := NewStockService(store, nil, nil, testRetryer())

	_, err := svc.AddStock(context.Background(), "v1", 0)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	_, err = svc.AddStock(context.Background(), "missing", 5)
	assert.ErrorIs(t, err, models.ErrVariantNotFound)

	assert.Equal(t, 2, store.quantity("v1"))
}

func TestGetVariantStock_PrefersMirror(t *testing.T) {
	store := newMemInventoryStore()
	store.addVariant("v1", 20)
	cache := newMemDedupCache()
	require.NoError(t, cache.MirrorQuantity(context.Background(), "v1", 15))

	svc := NewStockService(store, cache, nil, testRetryer())

	item, err := svc.GetVariantStock(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, 15, item.Quantity)
}
