package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	platformkafka "github.com/vladyslavplus/KosherClouds-sub002/platform/kafka"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
)

const commitTimeout = 5 * time.Second

// Bus реализует eventbus.Bus поверх Kafka.
// Топик = тип события, ключ сообщения = partition key (Hash balancer),
// очередь подписки = consumer group с Workers readers.
type Bus struct {
	logger    *zap.Logger
	service   string
	cfg       platformkafka.Config
	workers   int
	processor *eventbus.Processor

	writer    *kafka.Writer
	dlqWriter *kafka.Writer

	mu      sync.Mutex
	subs    []eventbus.Subscription
	running bool
}

var _ eventbus.Bus = (*Bus)(nil)

// New создаёт Kafka шину для сервиса service
func New(logger *zap.Logger, service string, cfg platformkafka.Config, busCfg eventbus.Config, opts ...eventbus.ProcessorOption) *Bus {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = service
	}
	transport := &kafka.Transport{ClientID: clientID}

	return &Bus{
		logger:    logger,
		service:   service,
		cfg:       cfg,
		workers:   busCfg.Workers,
		processor: eventbus.NewProcessor(logger, busCfg.RetryPolicy(), opts...),
		writer:    newWriter(cfg, transport),
		dlqWriter: newWriter(cfg, transport),
	}
}

func newWriter(cfg platformkafka.Config, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr: kafka.TCP(cfg.Brokers...),
		// Hash по ключу: события одного агрегата попадают в одну партицию
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: cfg.AutoCreateTopics,
		Transport:              transport,
	}
}

// Publish публикует события и возвращает управление после подтверждения всеми репликами
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
	if len(envs) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(envs))
	spans := make([]trace.Span, 0, len(envs))
	for _, env := range envs {
		msg, err := envelopeMessage(env)
		if err != nil {
			return err
		}
		_, span := observability.StartProducerSpan(ctx, observability.KafkaHeaderCarrier{Headers: &msg.Headers}, env.EventType, env.EventType)
		spans = append(spans, span)
		msgs = append(msgs, msg)
	}

	err := b.writer.WriteMessages(ctx, msgs...)
	for _, span := range spans {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
	if err != nil {
		b.logger.Error("failed to publish events", zap.Error(err), zap.Int("count", len(msgs)))
		return fmt.Errorf("publish events: %w", err)
	}

	for _, env := range envs {
		observability.L(ctx, b.logger).Info("event published",
			zap.String("topic", env.EventType),
			zap.String("event_id", env.EventID),
			zap.String("partition_key", env.PartitionKey),
		)
	}
	return nil
}

func envelopeMessage(env eventbus.Envelope) (kafka.Message, error) {
	value, err := env.Marshal()
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal envelope: %w", err)
	}
	return kafka.Message{
		Topic: env.EventType,
		Key:   []byte(env.PartitionKey),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "event_id", Value: []byte(env.EventID)},
		},
	}, nil
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

// Run создаёт топики (если разрешено) и запускает readers всех подписок.
// Блокируется до отмены ctx.
func (b *Bus) Run(ctx context.Context) error {
	b.mu.Lock()
	b.running = true
	subs := append([]eventbus.Subscription(nil), b.subs...)
	b.mu.Unlock()

	if len(subs) == 0 {
		<-ctx.Done()
		return nil
	}

	if b.cfg.AutoCreateTopics {
		topics := make([]string, 0, len(subs)*2)
		for _, sub := range subs {
			topics = append(topics, sub.EventType, eventbus.DeadLetterQueue(sub.Queue()))
		}
		if err := platformkafka.EnsureTopics(ctx, b.cfg, topics...); err != nil {
			return fmt.Errorf("ensure topics: %w", err)
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
		if workers > b.cfg.Partitions {
			b.logger.Warn("workers exceed topic partitions, extra readers stay idle",
				zap.String("queue", sub.Queue()),
				zap.Int("workers", workers),
				zap.Int("partitions", b.cfg.Partitions),
			)
		}
		for i := 0; i < workers; i++ {
			sub, worker := sub, i
			g.Go(func() error {
				return b.consume(gctx, sub, worker)
			})
		}
	}
	return g.Wait()
}

// consume цикл одного конкурирующего reader: FetchMessage -> Handle -> CommitMessages
func (b *Bus) consume(ctx context.Context, sub eventbus.Subscription, worker int) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.cfg.Brokers,
		GroupID:     sub.Queue(),
		Topic:       sub.EventType,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		StartOffset: kafka.FirstOffset,
	})
	defer func() {
		if err := reader.Close(); err != nil {
			b.logger.Warn("failed to close kafka reader", zap.Error(err), zap.String("queue", sub.Queue()))
		}
	}()

	log := b.logger.With(zap.String("queue", sub.Queue()), zap.Int("worker", worker))
	log.Info("starting kafka consumer", zap.String("topic", sub.EventType))

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("consumer context cancelled, stopping")
				return nil
			}
			log.Error("failed to fetch message from kafka", zap.Error(err))
			if err := (eventbus.DefaultSleeper{}).Sleep(ctx, time.Second); err != nil {
				return nil
			}
			continue
		}

		d := eventbus.Delivery{
			Topic:     m.Topic,
			Partition: m.Partition,
			Offset:    m.Offset,
			Key:       m.Key,
			Value:     m.Value,
			Carrier:   observability.KafkaHeaderCarrier{Headers: &m.Headers},
		}
		if !b.processor.Handle(ctx, sub, d, b) {
			// offset не коммитим: после ребаланса/рестарта сообщение будет доставлено снова
			return nil
		}

		// обработанное сообщение коммитим даже во время остановки
		commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
		err = reader.CommitMessages(commitCtx, m)
		cancel()
		if err != nil {
			log.Error("failed to commit message offset",
				zap.Error(err),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
			)
			continue
		}
		log.Debug("message offset committed", zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset))
	}
}

// WriteDeadLetter пишет запись в DLQ-топик очереди
func (b *Bus) WriteDeadLetter(ctx context.Context, msg eventbus.DeadLetter) error {
	m, err := deadLetterMessage(msg)
	if err != nil {
		return err
	}
	return b.dlqWriter.WriteMessages(ctx, m)
}

func deadLetterMessage(msg eventbus.DeadLetter) (kafka.Message, error) {
	value, err := msg.Marshal()
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal dead letter: %w", err)
	}
	return kafka.Message{
		Topic: eventbus.DeadLetterQueue(msg.Queue),
		Key:   []byte(msg.OriginalKey),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(msg.EventType)},
			{Key: "event_id", Value: []byte(msg.EventID)},
		},
	}, nil
}

// Close закрывает writers
func (b *Bus) Close() error {
	b.logger.Info("closing kafka event bus")
	return errors.Join(b.writer.Close(), b.dlqWriter.Close())
}
