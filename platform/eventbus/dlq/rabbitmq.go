package dlq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
)

// RabbitMQ хранит DLQ очередью <queue>.dlq; одно соединение служит и источником, и publisher.
// Неподтверждённые записи возвращаются в DLQ при закрытии канала.
type RabbitMQ struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string

	closeOnce sync.Once
	closeErr  error
}

var (
	_ Source      = (*RabbitMQ)(nil)
	_ Republisher = (*RabbitMQ)(nil)
)

// DialRabbitMQ подключается к брокеру и включает publisher confirms
func DialRabbitMQ(url, queue string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	return &RabbitMQ{conn: conn, ch: ch, queue: queue}, nil
}

// Next забирает запись без auto-ack
func (r *RabbitMQ) Next(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	d, ok, err := r.ch.Get(eventbus.DeadLetterQueue(r.queue), false)
	if err != nil {
		return Record{}, fmt.Errorf("get dead letter: %w", err)
	}
	if !ok {
		return Record{}, ErrDrained
	}
	dl, err := eventbus.UnmarshalDeadLetter(d.Body)
	if err != nil {
		_ = d.Nack(false, true)
		return Record{}, err
	}
	return Record{DeadLetter: dl, handle: d}, nil
}

func (r *RabbitMQ) Commit(ctx context.Context, rec Record) error {
	d, ok := rec.handle.(amqp.Delivery)
	if !ok {
		return fmt.Errorf("record %s was not read from rabbitmq", rec.EventID)
	}
	return d.Ack(false)
}

// Republish кладёт сообщение прямо в очередь подписчика через default exchange:
// остальные подписчики типа события повтор не получают
func (r *RabbitMQ) Republish(ctx context.Context, dl eventbus.DeadLetter) error {
	conf, err := r.ch.PublishWithDeferredConfirmWithContext(ctx, "", dl.Queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    dl.EventID,
		Type:         dl.EventType,
		Headers: amqp.Table{
			"event_type":    dl.EventType,
			"event_id":      dl.EventID,
			"partition_key": dl.OriginalKey,
			"replayed_from": eventbus.DeadLetterQueue(dl.Queue),
		},
		Body: []byte(dl.OriginalValue),
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", dl.Queue, err)
	}
	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("wait publisher confirm: %w", err)
	}
	if !acked {
		return fmt.Errorf("broker nacked replay to %s", dl.Queue)
	}
	return nil
}

// Close можно вызывать и как Source, и как Republisher
func (r *RabbitMQ) Close() error {
	r.closeOnce.Do(func() { r.closeErr = r.conn.Close() })
	return r.closeErr
}
