package eventbus

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
)

// Delivery сообщение, полученное транспортом из очереди
type Delivery struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	// Carrier заголовки сообщения с trace context продюсера; nil допустим
	Carrier propagation.TextMapCarrier
}

// Outcome итог обработки сообщения
type Outcome int

const (
	// OutcomeAck обработано (или дубликат): подтвердить
	OutcomeAck Outcome = iota
	// OutcomeDeadLetter неповторяемая ошибка или исчерпаны попытки
	OutcomeDeadLetter
	// OutcomeAbandon ctx отменён: не подтверждать, брокер доставит повторно
	OutcomeAbandon
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAck:
		return outcomeAcked
	case OutcomeDeadLetter:
		return outcomeDeadLettered
	default:
		return outcomeAbandoned
	}
}

// Result результат Process
type Result struct {
	Outcome  Outcome
	Envelope Envelope
	Attempts int
	Err      error
}

// Processor общий для всех транспортов алгоритм: decode -> handler с retry/backoff -> DLQ
type Processor struct {
	logger  *zap.Logger
	policy  RetryPolicy
	sleeper Sleeper
	now     func() time.Time
	metrics *metrics
}

// ProcessorOption настраивает Processor
type ProcessorOption func(*Processor)

// WithSleeper подменяет задержку между попытками (в тестах no-op)
func WithSleeper(s Sleeper) ProcessorOption {
	return func(p *Processor) { p.sleeper = s }
}

// WithClock подменяет источник времени для failed_at
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) { p.now = now }
}

// NewProcessor создаёт Processor
func NewProcessor(logger *zap.Logger, policy RetryPolicy, opts ...ProcessorOption) *Processor {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultRetryPolicy().MaxAttempts
	}
	p := &Processor{
		logger:  logger,
		policy:  policy,
		sleeper: DefaultSleeper{},
		now:     time.Now,
		metrics: newMetrics(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process выполняет обработку одного сообщения без записи в DLQ
func (p *Processor) Process(ctx context.Context, sub Subscription, d Delivery) Result {
	queue := sub.Queue()
	carrier := d.Carrier
	if carrier == nil {
		carrier = propagation.MapCarrier{}
	}
	ctx, span := observability.StartConsumerSpan(ctx, carrier, queue,
		attribute.String("messaging.destination.name", d.Topic),
		attribute.Int("messaging.kafka.partition", d.Partition),
		attribute.Int64("messaging.kafka.offset", d.Offset),
	)
	defer span.End()

	env, err := UnmarshalEnvelope(d.Value)
	if err != nil {
		p.logger.Error("malformed envelope",
			zap.Error(err),
			zap.String("queue", queue),
			zap.String("topic", d.Topic),
			zap.Int("partition", d.Partition),
			zap.Int64("offset", d.Offset),
		)
		span.SetStatus(codes.Error, "malformed envelope")
		return Result{Outcome: OutcomeDeadLetter, Err: fmt.Errorf("malformed envelope: %w", err)}
	}

	log := observability.L(ctx, p.logger,
		zap.String("queue", queue),
		zap.String("event_id", env.EventID),
		zap.String("event_type", env.EventType),
		zap.String("partition_key", env.PartitionKey),
	)
	span.SetAttributes(
		attribute.String("messaging.message.id", env.EventID),
		attribute.String("messaging.event_type", env.EventType),
	)

	if env.SchemaVersion < 1 || env.SchemaVersion > sub.maxSchemaVersion() {
		log.Error("unsupported schema version", zap.Int("schema_version", env.SchemaVersion))
		span.SetStatus(codes.Error, "unsupported schema version")
		return Result{
			Outcome:  OutcomeDeadLetter,
			Envelope: env,
			Err:      fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.SchemaVersion),
		}
	}

	log.Debug("event received")

	var lastErr error
	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			backoff := p.policy.Backoff(attempt)
			log.Info("retrying event",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", p.policy.MaxAttempts),
				zap.Duration("backoff", backoff),
			)
			p.metrics.retry(ctx, queue, env.EventType)
			if err := p.sleeper.Sleep(ctx, backoff); err != nil {
				return p.abandon(log, env, attempt-1, err)
			}
		}
		if err := ctx.Err(); err != nil {
			return p.abandon(log, env, attempt-1, err)
		}

		lastErr = sub.Handler(ctx, env)
		if lastErr == nil {
			if attempt > 1 {
				log.Info("event handled after retry", zap.Int("attempt", attempt))
			}
			return Result{Outcome: OutcomeAck, Envelope: env, Attempts: attempt}
		}

		// обработчик прерван остановкой воркера: частичную работу не подтверждаем
		if ctx.Err() != nil {
			return p.abandon(log, env, attempt, lastErr)
		}

		if IsPermanent(lastErr) {
			log.Warn("permanent failure, routing to DLQ", zap.Error(lastErr), zap.Int("attempt", attempt))
			span.SetStatus(codes.Error, lastErr.Error())
			return Result{Outcome: OutcomeDeadLetter, Envelope: env, Attempts: attempt, Err: lastErr}
		}

		log.Warn("failed to handle event",
			zap.Error(lastErr),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.policy.MaxAttempts),
		)
	}

	log.Error("exhausted all retry attempts", zap.Error(lastErr), zap.Int("max_attempts", p.policy.MaxAttempts))
	span.SetStatus(codes.Error, lastErr.Error())
	return Result{
		Outcome:  OutcomeDeadLetter,
		Envelope: env,
		Attempts: p.policy.MaxAttempts,
		Err:      fmt.Errorf("exhausted %d attempts: %w", p.policy.MaxAttempts, lastErr),
	}
}

func (p *Processor) abandon(log *zap.Logger, env Envelope, attempts int, err error) Result {
	log.Info("processing abandoned, message left unacknowledged", zap.Int("attempts", attempts), zap.Error(err))
	return Result{Outcome: OutcomeAbandon, Envelope: env, Attempts: attempts, Err: err}
}

// Handle обрабатывает сообщение и при необходимости пишет его в DLQ.
// Возвращает true, если сообщение нужно подтвердить (commit/ack).
// Запись в DLQ повторяется с backoff до успеха или отмены ctx: подтверждать
// сообщение, не сохранённое ни в DLQ, ни обработчиком, нельзя.
func (p *Processor) Handle(ctx context.Context, sub Subscription, d Delivery, dlq DeadLetterWriter) bool {
	start := p.now()
	res := p.Process(ctx, sub, d)
	queue := sub.Queue()
	eventType := res.Envelope.EventType
	if eventType == "" {
		eventType = sub.EventType
	}

	switch res.Outcome {
	case OutcomeAck:
		p.metrics.outcome(ctx, queue, eventType, outcomeAcked, p.now().Sub(start))
		return true
	case OutcomeAbandon:
		p.metrics.outcome(context.WithoutCancel(ctx), queue, eventType, outcomeAbandoned, p.now().Sub(start))
		return false
	}

	msg := newDeadLetter(queue, d, res, p.now())
	for attempt := 1; ; attempt++ {
		err := dlq.WriteDeadLetter(ctx, msg)
		if err == nil {
			p.logger.Error("event dead-lettered",
				zap.String("queue", queue),
				zap.String("dlq", DeadLetterQueue(queue)),
				zap.String("event_id", msg.EventID),
				zap.String("event_type", msg.EventType),
				zap.Int("attempts", msg.Attempts),
				zap.String("error_message", msg.ErrorMessage),
			)
			p.metrics.outcome(ctx, queue, eventType, outcomeDeadLettered, p.now().Sub(start))
			return true
		}
		if ctx.Err() != nil {
			p.metrics.outcome(context.WithoutCancel(ctx), queue, eventType, outcomeAbandoned, p.now().Sub(start))
			return false
		}
		p.logger.Error("failed to write dead letter",
			zap.Error(err),
			zap.String("queue", queue),
			zap.String("event_id", msg.EventID),
			zap.Int("attempt", attempt),
		)
		if err := p.sleeper.Sleep(ctx, p.policy.Backoff(attempt+1)); err != nil {
			p.metrics.outcome(context.WithoutCancel(ctx), queue, eventType, outcomeAbandoned, p.now().Sub(start))
			return false
		}
	}
}
