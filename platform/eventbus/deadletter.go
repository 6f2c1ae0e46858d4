package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DeadLetter запись о сообщении, выведенном из обработки
type DeadLetter struct {
	Queue             string    `json:"queue"`
	OriginalTopic     string    `json:"original_topic"`
	OriginalPartition int       `json:"original_partition"`
	OriginalOffset    int64     `json:"original_offset"`
	OriginalKey       string    `json:"original_key"`
	OriginalValue     string    `json:"original_value"`
	ErrorMessage      string    `json:"error_message"`
	Attempts          int       `json:"attempts"`
	FailedAt          time.Time `json:"failed_at"`
	EventType         string    `json:"event_type,omitempty"`
	EventID           string    `json:"event_id,omitempty"`
}

// DeadLetterWriter пишет запись в DLQ транспорта
type DeadLetterWriter interface {
	WriteDeadLetter(ctx context.Context, msg DeadLetter) error
}

// DeadLetterWriterFunc адаптер функции к DeadLetterWriter
type DeadLetterWriterFunc func(ctx context.Context, msg DeadLetter) error

func (f DeadLetterWriterFunc) WriteDeadLetter(ctx context.Context, msg DeadLetter) error {
	return f(ctx, msg)
}

func newDeadLetter(queue string, d Delivery, res Result, failedAt time.Time) DeadLetter {
	msg := DeadLetter{
		Queue:             queue,
		OriginalTopic:     d.Topic,
		OriginalPartition: d.Partition,
		OriginalOffset:    d.Offset,
		OriginalKey:       string(d.Key),
		OriginalValue:     string(d.Value),
		Attempts:          res.Attempts,
		FailedAt:          failedAt.UTC(),
		EventType:         res.Envelope.EventType,
		EventID:           res.Envelope.EventID,
	}
	if res.Err != nil {
		msg.ErrorMessage = res.Err.Error()
	}
	return msg
}

// Marshal сериализует запись DLQ в JSON
func (d DeadLetter) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

// UnmarshalDeadLetter разбирает запись DLQ
func UnmarshalDeadLetter(data []byte) (DeadLetter, error) {
	var d DeadLetter
	if err := json.Unmarshal(data, &d); err != nil {
		return DeadLetter{}, fmt.Errorf("unmarshal dead letter: %w", err)
	}
	return d, nil
}
