package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stock-service/internal/models"
)

// Retryer wraps a single mutation attempt with bounded conflict retries.
// Only ErrConcurrencyConflict is retried; every other failure is
// deterministic and returned as-is. Exhaustion surfaces as ErrRetryExhausted
// so callers can tell abnormal contention apart from business outcomes.
type Retryer struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// NewRetryer creates a retryer with the given bounds
func NewRetryer(maxAttempts int, baseDelay, maxDelay time.Duration) *Retryer {
	return &Retryer{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
	}
}

// Do runs op until it returns nil, a non-conflict error, or attempts run out.
// Each attempt must start from a fresh read; op owns that re-read.
func (r *Retryer) Do(ctx context.Context, op func(context.Context) error) error {
	delay := r.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil || !errors.Is(lastErr, models.ErrConcurrencyConflict) {
			return lastErr
		}

		if attempt == r.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > r.MaxDelay {
			delay = r.MaxDelay
		}
	}

	return fmt.Errorf("%w: %d attempts, last: %v", models.ErrRetryExhausted, r.MaxAttempts, lastErr)
}
