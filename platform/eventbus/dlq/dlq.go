// Package dlq чтение и повторная публикация записей DLQ для операторских инструментов.
package dlq

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
)

// ErrDrained в DLQ больше нет записей (или они не пришли за idle timeout)
var ErrDrained = errors.New("dead letter queue drained")

// Record запись DLQ вместе с транспортным дескриптором для подтверждения
type Record struct {
	eventbus.DeadLetter
	handle any
}

// Source последовательно читает DLQ одной очереди
type Source interface {
	// Next возвращает ErrDrained, когда записей больше нет
	Next(ctx context.Context) (Record, error)
	// Commit удаляет запись из DLQ
	Commit(ctx context.Context, rec Record) error
	Close() error
}

// Republisher возвращает исходное сообщение в обработку
type Republisher interface {
	Republish(ctx context.Context, dl eventbus.DeadLetter) error
	Close() error
}

// Report итог replay
type Report struct {
	Read       int
	Replayed   int
	Skipped    int
	DryRun     bool
	LastFailed *eventbus.DeadLetter
}

// Replayer переносит записи DLQ обратно в исходные топики
type Replayer struct {
	logger    *zap.Logger
	source    Source
	publisher Republisher
}

// NewReplayer создаёт Replayer; publisher может быть nil для List
func NewReplayer(logger *zap.Logger, source Source, publisher Republisher) *Replayer {
	return &Replayer{logger: logger, source: source, publisher: publisher}
}

// List читает до limit записей (limit <= 0 без ограничения) и ничего не подтверждает
func (r *Replayer) List(ctx context.Context, limit int, fn func(eventbus.DeadLetter) error) (int, error) {
	n := 0
	for limit <= 0 || n < limit {
		rec, err := r.source.Next(ctx)
		if errors.Is(err, ErrDrained) {
			break
		}
		if err != nil {
			return n, err
		}
		n++
		if err := fn(rec.DeadLetter); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Replay публикует original_value в original_topic и подтверждает запись DLQ.
// Запись подтверждается только после успешной публикации; при dryRun ничего не меняется.
func (r *Replayer) Replay(ctx context.Context, limit int, dryRun bool) (Report, error) {
	report := Report{DryRun: dryRun}
	for limit <= 0 || report.Read < limit {
		rec, err := r.source.Next(ctx)
		if errors.Is(err, ErrDrained) {
			break
		}
		if err != nil {
			return report, err
		}
		report.Read++

		log := r.logger.With(
			zap.String("queue", rec.Queue),
			zap.String("event_id", rec.EventID),
			zap.String("event_type", rec.EventType),
			zap.String("original_topic", rec.OriginalTopic),
		)
		if rec.OriginalTopic == "" || rec.OriginalValue == "" {
			log.Warn("dead letter has no original message, skipping")
			report.Skipped++
			continue
		}
		if dryRun {
			log.Info("dry run: would replay dead letter", zap.String("error_message", rec.ErrorMessage))
			continue
		}

		if err := r.publisher.Republish(ctx, rec.DeadLetter); err != nil {
			failed := rec.DeadLetter
			report.LastFailed = &failed
			return report, fmt.Errorf("republish %s: %w", rec.EventID, err)
		}
		if err := r.source.Commit(ctx, rec); err != nil {
			// сообщение уже опубликовано: повторный replay даст дубль, его отсекают inbox подписчиков
			return report, fmt.Errorf("commit dead letter %s: %w", rec.EventID, err)
		}
		report.Replayed++
		log.Info("dead letter replayed")
	}
	return report, nil
}
