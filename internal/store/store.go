package store

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Store is the durable side of the pipeline. Expected schema:
//
//	products         (id, name, description, base_price, created_at)
//	product_variants (id, product_id, size, color, quantity, version, updated_at)
//	orders           (id, customer_id, total_amount, status, created_at)
//	order_lines      (id, order_id, product_id, variant_id, product_name, unit_price, quantity)
//	processed_events (order_id, variant_id, quantity, processed_at,
//	                  PRIMARY KEY (order_id, variant_id))
//
// product_variants.version is the optimistic-concurrency token: every write
// goes through a conditional UPDATE ... WHERE version = $n.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
