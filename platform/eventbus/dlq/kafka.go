package dlq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	platformkafka "github.com/vladyslavplus/KosherClouds-sub002/platform/kafka"
)

// KafkaSource читает DLQ-топик очереди отдельной consumer group оператора
type KafkaSource struct {
	reader      *kafka.Reader
	idleTimeout time.Duration
}

// NewKafkaSource создаёт источник для очереди queue; idleTimeout ожидания следующей записи
func NewKafkaSource(cfg platformkafka.Config, queue string, idleTimeout time.Duration) *KafkaSource {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     "dlq-replay." + queue,
		Topic:       eventbus.DeadLetterQueue(queue),
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return &KafkaSource{reader: reader, idleTimeout: idleTimeout}
}

// Next ждёт запись не дольше idleTimeout
func (s *KafkaSource) Next(ctx context.Context) (Record, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.idleTimeout)
	defer cancel()

	msg, err := s.reader.FetchMessage(fetchCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return Record{}, ErrDrained
		}
		return Record{}, fmt.Errorf("fetch dead letter: %w", err)
	}
	dl, err := eventbus.UnmarshalDeadLetter(msg.Value)
	if err != nil {
		return Record{}, err
	}
	return Record{DeadLetter: dl, handle: msg}, nil
}

// Commit фиксирует offset записи в группе оператора
func (s *KafkaSource) Commit(ctx context.Context, rec Record) error {
	msg, ok := rec.handle.(kafka.Message)
	if !ok {
		return fmt.Errorf("record %s was not read from kafka", rec.EventID)
	}
	return s.reader.CommitMessages(ctx, msg)
}

func (s *KafkaSource) Close() error {
	return s.reader.Close()
}

// KafkaRepublisher пишет original_value в original_topic с ключом original_key
type KafkaRepublisher struct {
	writer *kafka.Writer
}

// NewKafkaRepublisher создаёт writer с тем же Hash balancer, что и шина
func NewKafkaRepublisher(cfg platformkafka.Config) *KafkaRepublisher {
	return &KafkaRepublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Transport:    &kafka.Transport{ClientID: "dlq-replay"},
	}}
}

func (p *KafkaRepublisher) Republish(ctx context.Context, dl eventbus.DeadLetter) error {
	return p.writer.WriteMessages(ctx, republishMessage(dl))
}

func (p *KafkaRepublisher) Close() error {
	return p.writer.Close()
}

func republishMessage(dl eventbus.DeadLetter) kafka.Message {
	return kafka.Message{
		Topic: dl.OriginalTopic,
		Key:   []byte(dl.OriginalKey),
		Value: []byte(dl.OriginalValue),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(dl.EventType)},
			{Key: "event_id", Value: []byte(dl.EventID)},
			{Key: "replayed_from", Value: []byte(eventbus.DeadLetterQueue(dl.Queue))},
		},
	}
}
