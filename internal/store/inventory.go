package store

import (
	"context"
	"database/sql"
	"fmt"

	"stock-service/internal/models"
)

// CreateProduct persists a product and its variants
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO products (id, name, description, base_price, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		product.ID, product.Name, product.Description, product.BasePrice, product.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	for _, v := range product.Variants {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO product_variants (id, product_id, size, color, quantity, version, updated_at)
			 VALUES ($1, $2, $3, $4, $5, 0, $6)`,
			v.ID, v.ProductID, v.Size, v.Color, v.Quantity, v.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert variant %s: %w", v.ID, err)
		}
	}

	return tx.Commit()
}

// CreateVariant persists a single variant for an existing product
func (s *Store) CreateVariant(ctx context.Context, v *models.InventoryItem) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO product_variants (id, product_id, size, color, quantity, version, updated_at)
		 VALUES ($1, $2, $3, $4, $5, 0, $6)`,
		v.ID, v.ProductID, v.Size, v.Color, v.Quantity, v.UpdatedAt)
	return err
}

// GetProductByID retrieves a product with its variants
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %s", id)
	}
	if err != nil {
		return nil, err
	}

	err = s.db.SelectContext(ctx, &product.Variants,
		"SELECT * FROM product_variants WHERE product_id = $1 ORDER BY size, color", id)
	if err != nil {
		return nil, err
	}

	return &product, nil
}

// GetVariant retrieves a variant with its current version token
func (s *Store) GetVariant(ctx context.Context, variantID string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := s.db.GetContext(ctx, &item,
		"SELECT * FROM product_variants WHERE id = $1", variantID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", models.ErrVariantNotFound, variantID)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ApplyDecrement commits an already-validated decrement and its ledger entry
// in one transaction. The variant write is conditioned on the version the
// item was read at; a lost version check surfaces as ErrConcurrencyConflict
// and nothing is committed. item must carry the new quantity and the version
// of the read it was computed from; on success its version is advanced to
// match the store.
func (s *Store) ApplyDecrement(ctx context.Context, item *models.InventoryItem, rec *models.ProcessedEventRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE product_variants
		 SET quantity = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2 AND version = $3`,
		item.Quantity, item.ID, item.Version)
	if err != nil {
		return fmt.Errorf("failed to update variant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: variant %s at version %d", models.ErrConcurrencyConflict, item.ID, item.Version)
	}

	// Plain insert: a duplicate (order_id, variant_id) violates the primary
	// key and rolls the decrement back with it, so a racing consumer can
	// never apply the same line twice.
	_, err = tx.ExecContext(ctx,
		`INSERT INTO processed_events (order_id, variant_id, quantity, processed_at)
		 VALUES ($1, $2, $3, NOW())`,
		rec.OrderID, rec.VariantID, rec.Quantity)
	if err != nil {
		return fmt.Errorf("failed to record processed event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	item.Version++
	return nil
}

// ApplyAddStock commits a replenishment under the same version check.
func (s *Store) ApplyAddStock(ctx context.Context, item *models.InventoryItem) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE product_variants
		 SET quantity = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2 AND version = $3`,
		item.Quantity, item.ID, item.Version)
	if err != nil {
		return fmt.Errorf("failed to update variant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: variant %s at version %d", models.ErrConcurrencyConflict, item.ID, item.Version)
	}

	item.Version++
	return nil
}

// IsLineProcessed checks the idempotency ledger for one event line
func (s *Store) IsLineProcessed(ctx context.Context, orderID, variantID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE order_id = $1 AND variant_id = $2)",
		orderID, variantID)
	return exists, err
}
