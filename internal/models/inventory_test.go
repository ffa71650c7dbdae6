package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddVariant(t *testing.T) {
	product := NewProduct("Runner", "Road running shoe", 15000)

	item, err := product.AddVariant("42", "black", 20)
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, product.ID, item.ProductID)
	assert.Equal(t, 20, item.Quantity)
	assert.Zero(t, item.Version)

	_, err = product.AddVariant("43", "black", 5)
	assert.NoError(t, err)

	_, err = product.AddVariant("42", "black", 10)
	assert.ErrorIs(t, err, ErrDuplicateVariant)
	assert.Len(t, product.Variants, 2)
}

func TestDecreaseQuantity(t *testing.T) {
	item := InventoryItem{ID: "v1", Size: "42", Color: "black", Quantity: 20}

	require.NoError(t, item.DecreaseQuantity(5))
	assert.Equal(t, 15, item.Quantity)

	err := item.DecreaseQuantity(20)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 15, item.Quantity)
}

func TestDecreaseQuantity_InvalidAmount(t *testing.T) {
	item := InventoryItem{ID: "v1", Quantity: 10}

	assert.ErrorIs(t, item.DecreaseQuantity(0), ErrInvalidAmount)
	assert.ErrorIs(t, item.DecreaseQuantity(-3), ErrInvalidAmount)
	assert.Equal(t, 10, item.Quantity)
}

func TestAddStock(t *testing.T) {
	item := InventoryItem{ID: "v1", Quantity: 2}

	require.NoError(t, item.AddStock(8))
	assert.Equal(t, 10, item.Quantity)

	assert.ErrorIs(t, item.AddStock(0), ErrInvalidAmount)
	assert.ErrorIs(t, item.AddStock(-1), ErrInvalidAmount)
	assert.Equal(t, 10, item.Quantity)
}
