package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pos/internal/domain/model"
)

func TestTransactionStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to model.TransactionStatus
		want     bool
	}{
		{model.TransactionStatusCompleted, model.TransactionStatusCancelled, true},
		{model.TransactionStatusCompleted, model.TransactionStatusRefunded, true},
		{model.TransactionStatusCompleted, model.TransactionStatusCompleted, false},
		{model.TransactionStatusCancelled, model.TransactionStatusRefunded, false},
		{model.TransactionStatusCancelled, model.TransactionStatusCompleted, false},
		{model.TransactionStatusRefunded, model.TransactionStatusCancelled, false},
		{model.TransactionStatusRefunded, model.TransactionStatusRefunded, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTransactionStatus_IsTerminal(t *testing.T) {
	assert.False(t, model.TransactionStatusCompleted.IsTerminal())
	assert.True(t, model.TransactionStatusCancelled.IsTerminal())
	assert.True(t, model.TransactionStatusRefunded.IsTerminal())
}

func TestParseTransactionStatus(t *testing.T) {
	st, err := model.ParseTransactionStatus("refunded")
	assert.NoError(t, err)
	assert.Equal(t, model.TransactionStatusRefunded, st)

	_, err = model.ParseTransactionStatus("REFUNDED")
	assert.Error(t, err)
	_, err = model.ParseTransactionStatus("pending")
	assert.Error(t, err)
}

func TestInventoryRecord_IsLowStock(t *testing.T) {
	assert.True(t, model.InventoryRecord{Quantity: 5, MinStockLevel: 5}.IsLowStock())
	assert.True(t, model.InventoryRecord{Quantity: 0, MinStockLevel: 0}.IsLowStock())
	assert.False(t, model.InventoryRecord{Quantity: 6, MinStockLevel: 5}.IsLowStock())
}
