package service

import (
	"context"
	"fmt"
	"sync"

	"stock-service/internal/models"
)

// memInventoryStore is an in-memory InventoryStore with real version-checked
// writes, so conflict and idempotency behavior is exercised for real.
type memInventoryStore struct {
	mu        sync.Mutex
	variants  map[string]*models.InventoryItem
	processed map[string]models.ProcessedEventRecord

	// forceConflicts makes the next N ApplyDecrement calls lose the version
	// check regardless of state
	forceConflicts int
}

func newMemInventoryStore() *memInventoryStore {
	return &memInventoryStore{
		variants:  make(map[string]*models.InventoryItem),
		processed: make(map[string]models.ProcessedEventRecord),
	}
}

func (m *memInventoryStore) addVariant(id string, quantity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.variants[id] = &models.InventoryItem{ID: id, ProductID: "p-" + id, Size: "42", Color: "black", Quantity: quantity}
}

func (m *memInventoryStore) quantity(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.variants[id].Quantity
}

func ledgerKey(orderID, variantID string) string {
	return orderID + "|" + variantID
}

func (m *memInventoryStore) GetVariant(ctx context.Context, variantID string) (*models.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.variants[variantID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrVariantNotFound, variantID)
	}
	snapshot := *v
	return &snapshot, nil
}

func (m *memInventoryStore) ApplyDecrement(ctx context.Context, item *models.InventoryItem, rec *models.ProcessedEventRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.forceConflicts > 0 {
		m.forceConflicts--
		return fmt.Errorf("%w: variant %s", models.ErrConcurrencyConflict, item.ID)
	}

	current, ok := m.variants[item.ID]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrVariantNotFound, item.ID)
	}
	if current.Version != item.Version {
		return fmt.Errorf("%w: variant %s at version %d", models.ErrConcurrencyConflict, item.ID, item.Version)
	}
	if _, dup := m.processed[ledgerKey(rec.OrderID, rec.VariantID)]; dup {
		return fmt.Errorf("duplicate processed record for %s/%s", rec.OrderID, rec.VariantID)
	}

	current.Quantity = item.Quantity
	current.Version++
	m.processed[ledgerKey(rec.OrderID, rec.VariantID)] = *rec
	item.Version++
	return nil
}

func (m *memInventoryStore) ApplyAddStock(ctx context.Context, item *models.InventoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.variants[item.ID]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrVariantNotFound, item.ID)
	}
	if current.Version != item.Version {
		return fmt.Errorf("%w: variant %s at version %d", models.ErrConcurrencyConflict, item.ID, item.Version)
	}

	current.Quantity = item.Quantity
	current.Version++
	item.Version++
	return nil
}

func (m *memInventoryStore) IsLineProcessed(ctx context.Context, orderID, variantID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.processed[ledgerKey(orderID, variantID)]
	return ok, nil
}

// memDeadLetter records published dead letters
type memDeadLetter struct {
	mu      sync.Mutex
	records []models.DeadLetterRecord
}

func (d *memDeadLetter) PublishDeadLetter(ctx context.Context, rec *models.DeadLetterRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append(d.records, *rec)
	return nil
}

func (d *memDeadLetter) byReason(reason string) []models.DeadLetterRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []models.DeadLetterRecord
	for _, r := range d.records {
		if r.Reason == reason {
			out = append(out, r)
		}
	}
	return out
}

// memDedupCache is an in-memory DedupCache
type memDedupCache struct {
	mu      sync.Mutex
	markers map[string]bool
	mirror  map[string]int
}

func newMemDedupCache() *memDedupCache {
	return &memDedupCache{markers: make(map[string]bool), mirror: make(map[string]int)}
}

func (c *memDedupCache) IsLineProcessed(ctx context.Context, orderID, variantID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.markers[ledgerKey(orderID, variantID)], nil
}

func (c *memDedupCache) MarkLineProcessed(ctx context.Context, orderID, variantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markers[ledgerKey(orderID, variantID)] = true
	return nil
}

func (c *memDedupCache) MirrorQuantity(ctx context.Context, variantID string, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mirror[variantID] = quantity
	return nil
}

func (c *memDedupCache) GetMirroredQuantity(ctx context.Context, variantID string) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	qty, ok := c.mirror[variantID]
	return qty, ok, nil
}

// memOrderStore is an in-memory OrderStore
type memOrderStore struct {
	mu         sync.Mutex
	orders     map[string]*models.Order
	failCreate bool
	creates    int
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{orders: make(map[string]*models.Order)}
}

func (m *memOrderStore) CreateOrder(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return fmt.Errorf("db down")
	}
	snapshot := *order
	m.orders[order.ID] = &snapshot
	m.creates++
	return nil
}

func (m *memOrderStore) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}
	snapshot := *order
	return &snapshot, nil
}

func (m *memOrderStore) GetOrdersByCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrderStore) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrOrderNotFound, orderID)
	}
	order.Status = status
	return nil
}

// countingPublisher records published order events
type countingPublisher struct {
	mu     sync.Mutex
	events []*models.OrderCreatedEvent
	fail   bool
}

func (p *countingPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return fmt.Errorf("broker unavailable")
	}
	p.events = append(p.events, event)
	return nil
}
