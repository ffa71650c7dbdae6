package store

import (
	"context"
	"database/sql"
	"fmt"

	"stock-service/internal/models"
)

// CreateOrder persists an order and its lines in one transaction. The commit
// here is the point after which publishing the order event is allowed.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, customer_id, total_amount, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		order.ID, order.CustomerID, order.TotalAmount, order.Status, order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, line := range order.Lines {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_lines (id, order_id, product_id, variant_id, product_name, unit_price, quantity)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			line.ID, line.OrderID, line.ProductID, line.VariantID,
			line.ProductName, line.UnitPrice, line.Quantity)
		if err != nil {
			return fmt.Errorf("failed to insert order line: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order with its lines
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	err = s.db.SelectContext(ctx, &order.Lines,
		"SELECT * FROM order_lines WHERE order_id = $1", id)
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// GetOrdersByCustomer retrieves orders for a customer
func (s *Store) GetOrdersByCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE customer_id = $1 ORDER BY created_at DESC", customerID)
	return orders, err
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1 WHERE id = $2", status, orderID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", models.ErrOrderNotFound, orderID)
	}
	return nil
}
