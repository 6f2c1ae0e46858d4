package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
)

const (
	dialAttempts = 5
	dialBackoff  = 2 * time.Second
)

// Bus реализует eventbus.Bus поверх RabbitMQ.
// Topic exchange, routing key = тип события; очередь подписки объявляется с
// x-single-active-consumer и prefetch 1: в каждый момент сообщения очереди
// обрабатывает один воркер по порядку, остальные ждут в резерве.
type Bus struct {
	logger    *zap.Logger
	service   string
	exchange  string
	workers   int
	processor *eventbus.Processor

	conn *amqp.Connection

	pubMu sync.Mutex
	pubCh *amqp.Channel

	mu      sync.Mutex
	subs    []eventbus.Subscription
	running bool
}

var _ eventbus.Bus = (*Bus)(nil)

// Dial подключается к RabbitMQ (с повторами, брокер может стартовать позже сервиса),
// объявляет exchange и открывает канал публикации в режиме confirm.
func Dial(ctx context.Context, logger *zap.Logger, service string, cfg eventbus.Config, opts ...eventbus.ProcessorOption) (*Bus, error) {
	var conn *amqp.Connection
	var err error
	for i := 1; i <= dialAttempts; i++ {
		conn, err = amqp.DialConfig(cfg.RabbitURL, amqp.Config{Properties: amqp.Table{"connection_name": service}})
		if err == nil {
			break
		}
		logger.Warn("failed to connect to rabbitmq, retrying", zap.Error(err), zap.Int("attempt", i))
		if sleepErr := (eventbus.DefaultSleeper{}).Sleep(ctx, dialBackoff); sleepErr != nil {
			return nil, sleepErr
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open publish channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.RabbitExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.RabbitExchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	return &Bus{
		logger:    logger,
		service:   service,
		exchange:  cfg.RabbitExchange,
		workers:   cfg.Workers,
		processor: eventbus.NewProcessor(logger, cfg.RetryPolicy(), opts...),
		conn:      conn,
		pubCh:     ch,
	}, nil
}

// Publish публикует события и ждёт publisher confirm на каждое
func (b *Bus) Publish(ctx context.Context, events ...eventbus.Event) error {
	envs := make([]eventbus.Envelope, 0, len(events))
	for _, e := range events {
		env, err := eventbus.NewEnvelope(b.service, e)
		if err != nil {
			return err
		}
		envs = append(envs, env)
	}
	return b.PublishEnvelope(ctx, envs...)
}

// PublishEnvelope публикует готовые конверты, сохраняя их event_id
func (b *Bus) PublishEnvelope(ctx context.Context, envs ...eventbus.Envelope) error {
	for _, env := range envs {
		if err := b.publish(ctx, b.exchange, env.EventType, env); err != nil {
			b.logger.Error("failed to publish event", zap.Error(err), zap.String("event_type", env.EventType))
			return err
		}
		observability.L(ctx, b.logger).Info("event published",
			zap.String("routing_key", env.EventType),
			zap.String("event_id", env.EventID),
			zap.String("partition_key", env.PartitionKey),
		)
	}
	return nil
}

func (b *Bus) publish(ctx context.Context, exchange, routingKey string, env eventbus.Envelope) error {
	body, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	msg := envelopePublishing(env, body)
	ctx, span := observability.StartProducerSpan(ctx, observability.AMQPTableCarrier(msg.Headers), routingKey, env.EventType)
	defer span.End()

	if err := b.confirmPublish(ctx, exchange, routingKey, msg); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func envelopePublishing(env eventbus.Envelope, body []byte) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.EventID,
		Type:         env.EventType,
		Timestamp:    env.OccurredAt,
		Headers: amqp.Table{
			"event_type":    env.EventType,
			"event_id":      env.EventID,
			"partition_key": env.PartitionKey,
		},
		Body: body,
	}
}

// confirmPublish публикует через confirm-канал и ждёт ack брокера
func (b *Bus) confirmPublish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	b.pubMu.Lock()
	conf, err := b.pubCh.PublishWithDeferredConfirmWithContext(ctx, exchange, routingKey, false, false, msg)
	b.pubMu.Unlock()
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
	}
	ok, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("wait publisher confirm: %w", err)
	}
	if !ok {
		return fmt.Errorf("broker nacked message to %s/%s", exchange, routingKey)
	}
	return nil
}

// Subscribe регистрирует подписку; после Run новые подписки не принимаются
func (b *Bus) Subscribe(sub eventbus.Subscription) error {
	if sub.Handler == nil {
		return fmt.Errorf("subscription %s: handler is required", sub.Queue())
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return errors.New("bus is already running")
	}
	for _, s := range b.subs {
		if s.Queue() == sub.Queue() {
			return fmt.Errorf("subscription %s already registered", sub.Queue())
		}
	}
	b.subs = append(b.subs, sub)
	return nil
}

// Run объявляет очереди и запускает воркеров всех подписок. Блокируется до отмены ctx.
func (b *Bus) Run(ctx context.Context) error {
	b.mu.Lock()
	b.running = true
	subs := append([]eventbus.Subscription(nil), b.subs...)
	b.mu.Unlock()

	for _, sub := range subs {
		if err := b.declare(sub); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, sub := range subs {
		workers := sub.Workers
		if workers <= 0 {
			workers = b.workers
		}
		if workers <= 0 {
			workers = 1
		}
		for i := 0; i < workers; i++ {
			sub, worker := sub, i
			g.Go(func() error {
				return b.consume(gctx, sub, worker)
			})
		}
	}
	if len(subs) == 0 {
		<-ctx.Done()
	}
	return g.Wait()
}

// declare объявляет очередь подписки, её DLQ и привязку к exchange
func (b *Bus) declare(sub eventbus.Subscription) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	queue := sub.Queue()
	if _, err := ch.QueueDeclare(eventbus.DeadLetterQueue(queue), true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", eventbus.DeadLetterQueue(queue), err)
	}
	args := amqp.Table{"x-single-active-consumer": true}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, sub.EventType, b.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", queue, err)
	}
	return nil
}

func (b *Bus) consume(ctx context.Context, sub eventbus.Subscription, worker int) error {
	queue := sub.Queue()
	log := b.logger.With(zap.String("queue", queue), zap.Int("worker", worker))

	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	tag := fmt.Sprintf("%s-%s-%d", b.service, queue, worker)
	deliveries, err := ch.ConsumeWithContext(ctx, queue, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}
	log.Info("starting rabbitmq consumer")

	for {
		select {
		case <-ctx.Done():
			log.Info("consumer context cancelled, stopping")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("delivery channel of %s closed", queue)
			}
			b.handle(ctx, log, sub, d)
		}
	}
}

func (b *Bus) handle(ctx context.Context, log *zap.Logger, sub eventbus.Subscription, d amqp.Delivery) {
	if d.Headers == nil {
		d.Headers = amqp.Table{}
	}
	key, _ := d.Headers["partition_key"].(string)
	delivery := eventbus.Delivery{
		Topic:   d.RoutingKey,
		Offset:  int64(d.DeliveryTag),
		Key:     []byte(key),
		Value:   d.Body,
		Carrier: observability.AMQPTableCarrier(d.Headers),
	}

	if b.processor.Handle(ctx, sub, delivery, b) {
		if err := d.Ack(false); err != nil {
			log.Error("failed to ack message", zap.Error(err), zap.Uint64("delivery_tag", d.DeliveryTag))
		}
		return
	}
	// возвращаем в очередь: будет доставлено следующему активному потребителю
	if err := d.Nack(false, true); err != nil {
		log.Error("failed to nack message", zap.Error(err), zap.Uint64("delivery_tag", d.DeliveryTag))
	}
}

// WriteDeadLetter публикует запись в DLQ очереди через default exchange
func (b *Bus) WriteDeadLetter(ctx context.Context, msg eventbus.DeadLetter) error {
	body, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}
	return b.confirmPublish(ctx, "", eventbus.DeadLetterQueue(msg.Queue), amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.EventID,
		Timestamp:    msg.FailedAt,
		Headers: amqp.Table{
			"event_type":    msg.EventType,
			"partition_key": msg.OriginalKey,
		},
		Body: body,
	})
}

// Close закрывает канал публикации и соединение
func (b *Bus) Close() error {
	b.logger.Info("closing rabbitmq event bus")
	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	return errors.Join(b.pubCh.Close(), b.conn.Close())
}
