package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
)

type priceChanged struct {
	ProductID string  `json:"ProductId"`
	Price     float64 `json:"Price"`
}

func (priceChanged) EventType() string      { return "product.updated" }
func (e priceChanged) PartitionKey() string { return e.ProductID }

func TestEnvelopeMessage_KeyedByPartitionKey(t *testing.T) {
	env, err := eventbus.NewEnvelope("product", priceChanged{ProductID: "p-7", Price: 12.5})
	require.NoError(t, err)

	msg, err := envelopeMessage(env)
	require.NoError(t, err)

	assert.Equal(t, "product.updated", msg.Topic)
	assert.Equal(t, []byte("p-7"), msg.Key)

	got, err := eventbus.UnmarshalEnvelope(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, env.EventID, got.EventID)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "product.updated", headers["event_type"])
	assert.Equal(t, env.EventID, headers["event_id"])
}

func TestDeadLetterMessage_RoutedToQueueDLQ(t *testing.T) {
	dl := eventbus.DeadLetter{
		Queue:         "cart-product-updated-queue",
		OriginalTopic: "product.updated",
		OriginalKey:   "p-7",
		OriginalValue: `{"broken":`,
		ErrorMessage:  "malformed envelope",
		FailedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	msg, err := deadLetterMessage(dl)
	require.NoError(t, err)

	assert.Equal(t, "cart-product-updated-queue.dlq", msg.Topic)
	assert.Equal(t, []byte("p-7"), msg.Key)

	got, err := eventbus.UnmarshalDeadLetter(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, dl, got)
}
