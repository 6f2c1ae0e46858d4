package dlq

import (
	"context"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
)

// SnapshotSource источник над снимком записей: memory транспорт держит DLQ в процессе
type SnapshotSource struct {
	records   []eventbus.DeadLetter
	pos       int
	committed []string
}

// NewSnapshotSource создаёт источник над копией records
func NewSnapshotSource(records []eventbus.DeadLetter) *SnapshotSource {
	return &SnapshotSource{records: append([]eventbus.DeadLetter(nil), records...)}
}

func (s *SnapshotSource) Next(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if s.pos >= len(s.records) {
		return Record{}, ErrDrained
	}
	dl := s.records[s.pos]
	s.pos++
	return Record{DeadLetter: dl}, nil
}

func (s *SnapshotSource) Commit(_ context.Context, rec Record) error {
	s.committed = append(s.committed, rec.EventID)
	return nil
}

// Committed event_id подтверждённых записей
func (s *SnapshotSource) Committed() []string {
	return append([]string(nil), s.committed...)
}

func (s *SnapshotSource) Close() error { return nil }

// RawPublisher шина, принимающая сырые байты сообщения (memory.Bus)
type RawPublisher interface {
	PublishRaw(ctx context.Context, topic, key string, value []byte) error
}

// RawRepublisher возвращает запись через PublishRaw
type RawRepublisher struct {
	bus RawPublisher
}

func NewRawRepublisher(bus RawPublisher) *RawRepublisher {
	return &RawRepublisher{bus: bus}
}

func (p *RawRepublisher) Republish(ctx context.Context, dl eventbus.DeadLetter) error {
	return p.bus.PublishRaw(ctx, dl.OriginalTopic, dl.OriginalKey, []byte(dl.OriginalValue))
}

func (p *RawRepublisher) Close() error { return nil }
