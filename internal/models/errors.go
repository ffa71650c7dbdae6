package models

import "errors"

// Domain errors. Callers match with errors.Is; store and service layers wrap
// these with context via fmt.Errorf and %w.
var (
	// ErrInvalidCustomer is returned when an order is created without a customer.
	ErrInvalidCustomer = errors.New("customer id is required")

	// ErrInvalidLine is returned when an order line has a non-positive
	// quantity or a negative unit price.
	ErrInvalidLine = errors.New("invalid order line")

	// ErrInvalidAmount is returned for non-positive stock adjustments.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientStock is returned when a decrement exceeds the quantity
	// on hand. It is a business outcome, not a transient failure: retrying
	// cannot change it.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrVariantNotFound is returned when an event references a variant the
	// inventory catalog does not know about.
	ErrVariantNotFound = errors.New("variant not found")

	// ErrDuplicateVariant is returned when registering a (size, color) pair
	// that already exists on the product.
	ErrDuplicateVariant = errors.New("variant already exists")

	// ErrConcurrencyConflict is returned when a conditional write loses the
	// version check against the backing store. Transient; retry from a fresh
	// read.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrRetryExhausted is returned when conflict retries run out of attempts.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrOrderNotFound is returned when an order lookup misses.
	ErrOrderNotFound = errors.New("order not found")
)
