package memory

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
)

// Bus реализует eventbus.Bus в памяти процесса: для тестов и локального запуска
// всех проекторов в одном процессе. Семантика та же, что у брокерных транспортов:
// очередь на подписку, сообщения одного partition key обрабатывает один воркер по порядку.
type Bus struct {
	logger    *zap.Logger
	service   string
	workers   int
	processor *eventbus.Processor

	mu      sync.Mutex
	queues  []*queue
	dead    map[string][]eventbus.DeadLetter
	offsets map[string]int64
	running bool
	closed  bool

	inflight sync.WaitGroup
}

type queue struct {
	sub    eventbus.Subscription
	shards []*shard
}

// shard неограниченная FIFO очередь одного воркера.
// push никогда не блокируется, поэтому обработчик может публиковать в собственную очередь.
type shard struct {
	mu    sync.Mutex
	items []eventbus.Delivery
	ready chan struct{}
}

func newShard() *shard {
	return &shard{ready: make(chan struct{}, 1)}
}

func (s *shard) push(d eventbus.Delivery) {
	s.mu.Lock()
	s.items = append(s.items, d)
	s.mu.Unlock()
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// pop ждёт следующее сообщение; false после отмены ctx
func (s *shard) pop(ctx context.Context) (eventbus.Delivery, bool) {
	for {
		s.mu.Lock()
		if len(s.items) > 0 {
			d := s.items[0]
			s.items[0] = eventbus.Delivery{}
			s.items = s.items[1:]
			s.mu.Unlock()
			return d, true
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return eventbus.Delivery{}, false
		case <-s.ready:
		}
	}
}

var _ eventbus.Bus = (*Bus)(nil)

// New создаёт шину в памяти
func New(logger *zap.Logger, service string, cfg eventbus.Config, opts ...eventbus.ProcessorOption) *Bus {
	return &Bus{
		logger:    logger,
		service:   service,
		workers:   cfg.Workers,
		processor: eventbus.NewProcessor(logger, cfg.RetryPolicy(), opts...),
		dead:      make(map[string][]eventbus.DeadLetter),
		offsets:   make(map[string]int64),
	}
}

// Subscribe регистрирует подписку. Сообщения, опубликованные до Run, буферизуются.
func (b *Bus) Subscribe(sub eventbus.Subscription) error {
	if sub.Handler == nil {
		return fmt.Errorf("subscription %s: handler is required", sub.Queue())
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return errors.New("bus is already running")
	}
	for _, q := range b.queues {
		if q.sub.Queue() == sub.Queue() {
			return fmt.Errorf("subscription %s already registered", sub.Queue())
		}
	}

	workers := sub.Workers
	if workers <= 0 {
		workers = b.workers
	}
	if workers <= 0 {
		workers = 1
	}
	q := &queue{sub: sub, shards: make([]*shard, workers)}
	for i := range q.shards {
		q.shards[i] = newShard()
	}
	b.queues = append(b.queues, q)
	return nil
}

// Publish раскладывает события по всем очередям, подписанным на их тип
func (b *Bus) Publish(ctx context.Context, events ...eventbus.Event) error {
	for _, e := range events {
		env, err := eventbus.NewEnvelope(b.service, e)
		if err != nil {
			return err
		}
		if err := b.PublishEnvelope(ctx, env); err != nil {
			return err
		}
	}
	return nil
}

// PublishEnvelope публикует готовые конверты (повторная доставка того же event_id)
func (b *Bus) PublishEnvelope(ctx context.Context, envs ...eventbus.Envelope) error {
	for _, env := range envs {
		data, err := env.Marshal()
		if err != nil {
			return fmt.Errorf("marshal envelope: %w", err)
		}
		if err := b.PublishRaw(ctx, env.EventType, env.PartitionKey, data); err != nil {
			return err
		}
	}
	return nil
}

// PublishRaw публикует произвольные байты в топик (в том числе невалидный конверт).
// Очереди не ограничены по размеру, публикация не блокируется.
func (b *Bus) PublishRaw(ctx context.Context, topic, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("bus is closed")
	}

	for _, q := range b.queues {
		if q.sub.EventType != topic {
			continue
		}
		d := eventbus.Delivery{
			Topic:  topic,
			Key:    []byte(key),
			Value:  value,
			Offset: b.offsets[q.sub.Queue()],
		}
		b.offsets[q.sub.Queue()]++

		b.inflight.Add(1)
		q.shards[shardIndex(key, len(q.shards))].push(d)
	}
	return nil
}

func shardIndex(key string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}

// Run запускает по горутине на шард каждой очереди. Блокируется до отмены ctx.
func (b *Bus) Run(ctx context.Context) error {
	b.mu.Lock()
	b.running = true
	queues := append([]*queue(nil), b.queues...)
	b.mu.Unlock()

	var wg sync.WaitGroup
	for _, q := range queues {
		for i, sh := range q.shards {
			wg.Add(1)
			go func(q *queue, worker int, sh *shard) {
				defer wg.Done()
				b.consume(ctx, q.sub, worker, sh)
			}(q, i, sh)
		}
	}
	<-ctx.Done()
	wg.Wait()
	return nil
}

func (b *Bus) consume(ctx context.Context, sub eventbus.Subscription, worker int, sh *shard) {
	b.logger.Debug("starting in-memory consumer", zap.String("queue", sub.Queue()), zap.Int("worker", worker))
	for {
		d, ok := sh.pop(ctx)
		if !ok {
			return
		}
		if !b.processor.Handle(ctx, sub, d, b) {
			b.logger.Info("message abandoned", zap.String("queue", sub.Queue()), zap.Int64("offset", d.Offset))
		}
		b.inflight.Done()
	}
}

// WriteDeadLetter сохраняет запись DLQ в памяти
func (b *Bus) WriteDeadLetter(ctx context.Context, msg eventbus.DeadLetter) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dead[msg.Queue] = append(b.dead[msg.Queue], msg)
	return nil
}

// DeadLetters возвращает записи DLQ очереди
func (b *Bus) DeadLetters(queue string) []eventbus.DeadLetter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]eventbus.DeadLetter(nil), b.dead[queue]...)
}

// Flush ждёт обработки всех опубликованных сообщений (включая опубликованные обработчиками)
func (b *Bus) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close запрещает дальнейшую публикацию
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
