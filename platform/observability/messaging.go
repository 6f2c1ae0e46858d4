package observability

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const messagingTracer = "eventbus"

// KafkaHeaderCarrier адаптирует заголовки kafka.Message к propagation.TextMapCarrier
type KafkaHeaderCarrier struct {
	Headers *[]kafka.Header
}

func (c KafkaHeaderCarrier) Get(key string) string {
	for _, h := range *c.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c KafkaHeaderCarrier) Set(key, value string) {
	for i, h := range *c.Headers {
		if h.Key == key {
			(*c.Headers)[i].Value = []byte(value)
			return
		}
	}
	*c.Headers = append(*c.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c KafkaHeaderCarrier) Keys() []string {
	out := make([]string, 0, len(*c.Headers))
	for _, h := range *c.Headers {
		out = append(out, h.Key)
	}
	return out
}

// AMQPTableCarrier адаптирует amqp.Table (заголовки сообщения RabbitMQ)
type AMQPTableCarrier amqp.Table

func (c AMQPTableCarrier) Get(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

func (c AMQPTableCarrier) Set(key, value string) {
	c[key] = value
}

func (c AMQPTableCarrier) Keys() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	return out
}

// StartProducerSpan открывает producer span и пишет trace context в carrier сообщения
func StartProducerSpan(ctx context.Context, carrier propagation.TextMapCarrier, destination, eventType string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(messagingTracer).Start(ctx, destination+" publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", destination),
			attribute.String("messaging.event_type", eventType),
		),
	)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return ctx, span
}

// StartConsumerSpan извлекает trace context продюсера и открывает consumer span
func StartConsumerSpan(ctx context.Context, carrier propagation.TextMapCarrier, queue string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)
	attrs = append(attrs, attribute.String("messaging.consumer.group.name", queue))
	return otel.Tracer(messagingTracer).Start(ctx, queue+" process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attrs...),
	)
}
