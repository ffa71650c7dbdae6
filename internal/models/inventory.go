package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Product represents a catalog entry that owns stock variants.
type Product struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	BasePrice   int64     `db:"base_price" json:"base_price"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	Variants []InventoryItem `db:"-" json:"variants,omitempty"`
}

// InventoryItem is the variant-level stock record: a specific (size, color)
// combination of a product. Version is the optimistic-concurrency token;
// every committed write to the backing store advances it, and writes are
// conditioned on the version read.
type InventoryItem struct {
	ID        string    `db:"id" json:"id"`
	ProductID string    `db:"product_id" json:"product_id"`
	Size      string    `db:"size" json:"size"`
	Color     string    `db:"color" json:"color"`
	Quantity  int       `db:"quantity" json:"quantity"`
	Version   int64     `db:"version" json:"version"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NewProduct creates a catalog product without variants.
func NewProduct(name, description string, basePrice int64) *Product {
	return &Product{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		BasePrice:   basePrice,
		CreatedAt:   time.Now().UTC(),
	}
}

// AddVariant registers a new (size, color) stock record on the product.
func (p *Product) AddVariant(size, color string, quantity int) (*InventoryItem, error) {
	for _, v := range p.Variants {
		if v.Size == size && v.Color == color {
			return nil, fmt.Errorf("%w: %s/%s on product %s", ErrDuplicateVariant, size, color, p.ID)
		}
	}

	item := InventoryItem{
		ID:        uuid.New().String(),
		ProductID: p.ID,
		Size:      size,
		Color:     color,
		Quantity:  quantity,
		UpdatedAt: time.Now().UTC(),
	}
	p.Variants = append(p.Variants, item)
	return &p.Variants[len(p.Variants)-1], nil
}

// DecreaseQuantity reduces the quantity on hand. The item is left unchanged
// on failure; the version token is advanced by the store at commit time, not
// here.
func (i *InventoryItem) DecreaseQuantity(amount int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: decrease of %d", ErrInvalidAmount, amount)
	}
	if amount > i.Quantity {
		return fmt.Errorf("%w: %s/%s has %d, requested %d",
			ErrInsufficientStock, i.Size, i.Color, i.Quantity, amount)
	}
	i.Quantity -= amount
	return nil
}

// AddStock increases the quantity on hand.
func (i *InventoryItem) AddStock(amount int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: increase of %d", ErrInvalidAmount, amount)
	}
	i.Quantity += amount
	return nil
}
