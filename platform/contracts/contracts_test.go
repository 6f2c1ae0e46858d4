package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
)

func TestEventTypesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, typ := range AllTypes {
		require.False(t, seen[typ], typ)
		seen[typ] = true
	}
	assert.Len(t, AllTypes, 18)
}

func TestPartitionKeys(t *testing.T) {
	tests := []struct {
		name  string
		event eventbus.Event
		want  string
	}{
		{name: "order created", event: OrderCreated{OrderID: "o-1"}, want: "o-1"},
		{name: "payment by order", event: PaymentCompleted{OrderID: "o-1", PaymentID: "pay-1"}, want: "o-1"},
		{name: "review by product", event: ReviewCreated{ReviewID: "r-1", ProductID: "p-1"}, want: "p-1"},
		{name: "order-level review by review", event: ReviewDeleted{ReviewID: "r-2"}, want: "r-2"},
		{name: "booking", event: BookingCancelled{BookingID: "b-1"}, want: "b-1"},
		{name: "cart by user", event: CartCheckedOut{UserID: "u-1"}, want: "u-1"},
		{name: "password reset by user", event: PasswordResetRequested{UserID: "u-2"}, want: "u-2"},
		{name: "product", event: ProductDeleted{ProductID: "p-9"}, want: "p-9"},
		{name: "email by recipient", event: EmailOutbound{MessageID: "m-1", To: "a@example.com"}, want: "a@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.PartitionKey())
		})
	}
}

func TestDecode_Validation(t *testing.T) {
	valid, err := eventbus.NewEnvelope("review", ReviewCreated{ReviewID: "r-1", ProductID: "p-1", UserID: "u-1", Rating: 5, CreatedAt: time.Now()})
	require.NoError(t, err)
	got, err := eventbus.Decode[ReviewCreated](valid)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Rating)

	invalid, err := eventbus.NewEnvelope("review", ReviewCreated{ReviewID: "r-1", UserID: "u-1", Rating: 7})
	require.NoError(t, err)
	_, err = eventbus.Decode[ReviewCreated](invalid)
	require.ErrorIs(t, err, eventbus.ErrMalformed)

	emptyCart, err := eventbus.NewEnvelope("cart", CartCheckedOut{UserID: "u-1"})
	require.NoError(t, err)
	_, err = eventbus.Decode[CartCheckedOut](emptyCart)
	require.ErrorIs(t, err, eventbus.ErrMalformed)

	badItem, err := eventbus.NewEnvelope("cart", CartCheckedOut{UserID: "u-1", Items: []CartItem{{ProductID: "p-1", Quantity: 0}}})
	require.NoError(t, err)
	_, err = eventbus.Decode[CartCheckedOut](badItem)
	require.ErrorIs(t, err, eventbus.ErrMalformed)
}

func TestWireFieldNames(t *testing.T) {
	env, err := eventbus.NewEnvelope("payment", PaymentCompleted{PaymentID: "pay-1", OrderID: "o-1", UserID: "u-1", Amount: 10, TransactionID: "tx-1"})
	require.NoError(t, err)
	assert.Contains(t, string(env.Payload), `"TransactionId":"tx-1"`)
	assert.Contains(t, string(env.Payload), `"OrderId":"o-1"`)
}
