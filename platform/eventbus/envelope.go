package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// SchemaVersion текущая мажорная версия контрактов
const SchemaVersion = 1

// Event факт, публикуемый сервисом-владельцем агрегата
type Event interface {
	// EventType имя типа события, оно же топик ("order.created")
	EventType() string
	// PartitionKey идентификатор агрегата; порядок доставки гарантируется только в его пределах
	PartitionKey() string
}

// Envelope конверт события на проводе
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	SchemaVersion int             `json:"schema_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	PartitionKey  string          `json:"partition_key"`
	Producer      string          `json:"producer,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope упаковывает событие: event_id (uuid), время UTC, версия схемы
func NewEnvelope(producer string, e Event) (Envelope, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", e.EventType(), err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     e.EventType(),
		SchemaVersion: SchemaVersion,
		OccurredAt:    time.Now().UTC(),
		PartitionKey:  e.PartitionKey(),
		Producer:      producer,
		Payload:       payload,
	}, nil
}

// Marshal сериализует конверт в JSON
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEnvelope разбирает конверт; ошибки возвращаются как ErrMalformed
func UnmarshalEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch {
	case env.EventID == "":
		return Envelope{}, fmt.Errorf("%w: event_id is required", ErrMalformed)
	case env.EventType == "":
		return Envelope{}, fmt.Errorf("%w: event_type is required", ErrMalformed)
	case len(env.Payload) == 0 || string(env.Payload) == "null":
		return Envelope{}, fmt.Errorf("%w: payload is required", ErrMalformed)
	}
	return env, nil
}

// Metadata поля конверта без payload, передаются типизированным обработчикам
type Metadata struct {
	EventID      string
	EventType    string
	OccurredAt   time.Time
	PartitionKey string
	Producer     string
}

// Metadata возвращает метаданные конверта
func (e Envelope) Metadata() Metadata {
	return Metadata{
		EventID:      e.EventID,
		EventType:    e.EventType,
		OccurredAt:   e.OccurredAt,
		PartitionKey: e.PartitionKey,
		Producer:     e.Producer,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode разбирает payload в контракт T и валидирует его по тегам `validate`.
// Нарушение контракта возвращается как ErrMalformed (в DLQ без повторов).
func Decode[T any](env Envelope) (T, error) {
	var v T
	if err := json.Unmarshal(env.Payload, &v); err != nil {
		return v, fmt.Errorf("%w: decode %s payload: %v", ErrMalformed, env.EventType, err)
	}
	if err := validate.Struct(v); err != nil {
		return v, fmt.Errorf("%w: validate %s payload: %v", ErrMalformed, env.EventType, err)
	}
	return v, nil
}

// Typed оборачивает обработчик конкретного контракта в Handler
func Typed[T any](fn func(ctx context.Context, meta Metadata, evt T) error) Handler {
	return func(ctx context.Context, env Envelope) error {
		evt, err := Decode[T](env)
		if err != nil {
			return err
		}
		return fn(ctx, env.Metadata(), evt)
	}
}
