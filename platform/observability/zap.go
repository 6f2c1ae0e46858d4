package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TraceFields возвращает trace_id/span_id активного span или nil
func TraceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

// L возвращает logger с trace_id/span_id из ctx и дополнительными полями.
// Использование: observability.L(ctx, logger, zap.String("event_id", id)).Info(...)
func L(ctx context.Context, base *zap.Logger, fields ...zap.Field) *zap.Logger {
	all := append(TraceFields(ctx), fields...)
	if len(all) == 0 {
		return base
	}
	return base.With(all...)
}
