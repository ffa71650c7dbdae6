package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Order statuses
const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusCancelled = "CANCELLED"
)

// Order represents a customer order. Monetary amounts are in minor units
// (cents). TotalAmount always equals the sum of line totals.
type Order struct {
	ID          string    `db:"id" json:"id"`
	CustomerID  string    `db:"customer_id" json:"customer_id"`
	TotalAmount int64     `db:"total_amount" json:"total_amount"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	Lines []OrderLine `db:"-" json:"lines"`
}

// OrderLine is a single (product, variant, quantity) entry of an order.
// Lines are immutable once constructed.
type OrderLine struct {
	ID          string `db:"id" json:"id"`
	OrderID     string `db:"order_id" json:"order_id"`
	ProductID   string `db:"product_id" json:"product_id"`
	VariantID   string `db:"variant_id" json:"variant_id"`
	ProductName string `db:"product_name" json:"product_name"`
	UnitPrice   int64  `db:"unit_price" json:"unit_price"`
	Quantity    int    `db:"quantity" json:"quantity"`
}

// Total returns unit price times quantity.
func (l OrderLine) Total() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// NewOrder creates a pending order for the given customer.
func NewOrder(customerID string) (*Order, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, ErrInvalidCustomer
	}

	return &Order{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		Status:     OrderStatusPending,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// AddLine validates and appends a line, keeping the running total in sync.
// The order is left unchanged when validation fails.
func (o *Order) AddLine(productID, variantID, productName string, unitPrice int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be greater than zero, got %d", ErrInvalidLine, quantity)
	}
	if unitPrice < 0 {
		return fmt.Errorf("%w: unit price cannot be negative, got %d", ErrInvalidLine, unitPrice)
	}

	line := OrderLine{
		ID:          uuid.New().String(),
		OrderID:     o.ID,
		ProductID:   productID,
		VariantID:   variantID,
		ProductName: productName,
		UnitPrice:   unitPrice,
		Quantity:    quantity,
	}

	o.Lines = append(o.Lines, line)
	o.TotalAmount += line.Total()
	return nil
}

// MarkPaid transitions the order to PAID.
func (o *Order) MarkPaid() {
	o.Status = OrderStatusPaid
}

// Cancel transitions the order to CANCELLED.
func (o *Order) Cancel() {
	o.Status = OrderStatusCancelled
}
