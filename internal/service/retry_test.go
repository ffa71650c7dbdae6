package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"stock-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryer_SucceedsAfterConflicts(t *testing.T) {
	retryer := NewRetryer(5, time.Millisecond, 5*time.Millisecond)

	attempts := 0
	err := retryer.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("%w: race", models.ErrConcurrencyConflict)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryer_NonConflictNotRetried(t *testing.T) {
	retryer := NewRetryer(5, time.Millisecond, 5*time.Millisecond)

	for _, sentinel := range []error{
		models.ErrInsufficientStock,
		models.ErrInvalidAmount,
		models.ErrVariantNotFound,
	} {
		attempts := 0
		err := retryer.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return fmt.Errorf("wrapped: %w", sentinel)
		})

		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, 1, attempts)
	}
}

func TestRetryer_Exhaustion(t *testing.T) {
	retryer := NewRetryer(4, time.Millisecond, 2*time.Millisecond)

	attempts := 0
	err := retryer.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return models.ErrConcurrencyConflict
	})

	assert.ErrorIs(t, err, models.ErrRetryExhausted)
	assert.NotErrorIs(t, err, models.ErrInsufficientStock)
	assert.Equal(t, 4, attempts)
}

func TestRetryer_ContextCancelled(t *testing.T) {
	retryer := NewRetryer(10, 50*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retryer.Do(ctx, func(ctx context.Context) error {
		return models.ErrConcurrencyConflict
	})

	assert.ErrorIs(t, err, context.Canceled)
}
