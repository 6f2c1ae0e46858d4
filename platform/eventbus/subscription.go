package eventbus

import (
	"context"
	"strings"
)

// Handler обрабатывает одно событие.
// nil = подтвердить; Permanent/ErrMalformed = в DLQ; иная ошибка = повтор с backoff.
type Handler func(ctx context.Context, env Envelope) error

// Subscription конкурирующая очередь сервиса на один тип события
type Subscription struct {
	// Service сервис-потребитель ("notification")
	Service string
	// EventType тип события ("order.created")
	EventType string
	Handler   Handler
	// Workers число конкурирующих воркеров; 0 = из Config
	Workers int
	// MaxSchemaVersion максимальная поддерживаемая версия схемы; 0 = SchemaVersion
	MaxSchemaVersion int
}

// Queue имя очереди подписки ("notification-order-created-queue")
func (s Subscription) Queue() string {
	return QueueName(s.Service, s.EventType)
}

func (s Subscription) maxSchemaVersion() int {
	if s.MaxSchemaVersion > 0 {
		return s.MaxSchemaVersion
	}
	return SchemaVersion
}

var queueReplacer = strings.NewReplacer(".", "-", "_", "-")

// QueueName имя очереди для пары (сервис, тип события)
func QueueName(service, eventType string) string {
	return queueReplacer.Replace(service+"-"+eventType) + "-queue"
}

// DeadLetterQueue имя DLQ для очереди
func DeadLetterQueue(queue string) string {
	return queue + ".dlq"
}

// Publisher публикует события; возвращает управление после подтверждения брокером
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// EnvelopePublisher публикует ранее собранные конверты без смены event_id (outbox, DLQ replay)
type EnvelopePublisher interface {
	PublishEnvelope(ctx context.Context, envs ...Envelope) error
}

// Bus транспорт событий: публикация, подписки и жизненный цикл воркеров
type Bus interface {
	Publisher
	EnvelopePublisher
	// Subscribe регистрирует подписку; вызывать до Run
	Subscribe(sub Subscription) error
	// Run запускает все подписки и блокируется до отмены ctx
	Run(ctx context.Context) error
	Close() error
}
