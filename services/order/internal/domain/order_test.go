package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusPaid, StatusCompleted, true},
		{StatusPaid, StatusCancelled, true},
		{StatusPaid, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPaid, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("Paid")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, st)

	_, err = ParseStatus("paid")
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestDecidePayment(t *testing.T) {
	tests := []struct {
		name  string
		order Order
		want  PaymentDecision
	}{
		{name: "pending", order: Order{Status: StatusPending}, want: PaymentApply},
		{name: "same transaction", order: Order{Status: StatusPaid, PaymentTransactionID: "tx-1"}, want: PaymentDuplicate},
		{name: "other transaction after paid", order: Order{Status: StatusPaid, PaymentTransactionID: "tx-0"}, want: PaymentStale},
		{name: "completed", order: Order{Status: StatusCompleted, PaymentTransactionID: "tx-1"}, want: PaymentDuplicate},
		{name: "cancelled", order: Order{Status: StatusCancelled}, want: PaymentStale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.order.DecidePayment("tx-1"))
		})
	}
}

func TestTotalOf(t *testing.T) {
	items := []Item{
		{ProductID: "p-1", UnitPrice: 10.10, Quantity: 3},
		{ProductID: "p-2", UnitPrice: 0.333, Quantity: 3},
	}
	assert.InDelta(t, 31.30, TotalOf(items), 1e-9)
}
