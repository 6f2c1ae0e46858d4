package eventbus

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	outcomeAcked        = "acked"
	outcomeDeadLettered = "dead_lettered"
	outcomeAbandoned    = "abandoned"
)

// metrics счётчики обработки сообщений (noop если OTEL_ENABLED=false)
type metrics struct {
	messages metric.Int64Counter
	retries  metric.Int64Counter
	duration metric.Float64Histogram
}

func newMetrics() *metrics {
	meter := otel.Meter("eventbus")
	messages, _ := meter.Int64Counter("eventbus_messages_total",
		metric.WithDescription("Processed messages by outcome"))
	retries, _ := meter.Int64Counter("eventbus_retries_total",
		metric.WithDescription("Handler retries"))
	duration, _ := meter.Float64Histogram("eventbus_handle_duration_ms",
		metric.WithDescription("Message handling duration in milliseconds"))
	return &metrics{messages: messages, retries: retries, duration: duration}
}

func (m *metrics) outcome(ctx context.Context, queue, eventType, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("queue", queue),
		attribute.String("event_type", eventType),
		attribute.String("outcome", outcome),
	)
	m.messages.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(d.Milliseconds()), attrs)
}

func (m *metrics) retry(ctx context.Context, queue, eventType string) {
	m.retries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("queue", queue),
		attribute.String("event_type", eventType),
	))
}
