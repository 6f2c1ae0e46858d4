// Package outbox доставляет события, записанные в одной транзакции с агрегатом.
// Dispatcher читает pending записи и публикует сохранённые конверты с исходным event_id.
package outbox

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
)

// Record неотправленная запись outbox
type Record struct {
	Envelope eventbus.Envelope
	Attempts int
}

// Store хранилище outbox, обычно та же БД, что и у агрегата
type Store interface {
	// PendingOutbox возвращает до limit неотправленных записей в порядке записи
	PendingOutbox(ctx context.Context, limit int) ([]Record, error)
	MarkOutboxSent(ctx context.Context, eventID string) error
	// MarkOutboxFailed увеличивает attempts и сохраняет last_error; запись остаётся pending
	MarkOutboxFailed(ctx context.Context, eventID, errMsg string) error
}

// Config параметры Dispatcher
type Config struct {
	BatchSize int
	Interval  time.Duration
}

// Dispatcher периодически публикует pending записи
type Dispatcher struct {
	logger    *zap.Logger
	store     Store
	publisher eventbus.EnvelopePublisher
	cfg       Config
	notify    chan struct{}
}

// NewDispatcher создаёт Dispatcher
func NewDispatcher(logger *zap.Logger, store Store, publisher eventbus.EnvelopePublisher, cfg Config) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Dispatcher{
		logger:    logger,
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		notify:    make(chan struct{}, 1),
	}
}

// Notify будит dispatcher после коммита, не дожидаясь тика
func (d *Dispatcher) Notify() {
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// Run публикует записи до отмены ctx
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("starting outbox dispatcher",
		zap.Int("batch_size", d.cfg.BatchSize),
		zap.Duration("interval", d.cfg.Interval),
	)

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := d.DispatchOnce(ctx); err != nil && ctx.Err() == nil {
			d.logger.Error("failed to dispatch outbox batch", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			d.logger.Info("outbox dispatcher stopped")
			return nil
		case <-ticker.C:
		case <-d.notify:
		}
	}
}

// DispatchOnce публикует один батч и возвращает число отправленных записей.
// После ошибки по ключу остальные записи того же ключа в батче пропускаются,
// чтобы не нарушить порядок событий агрегата.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	records, err := d.store.PendingOutbox(ctx, d.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("load pending outbox: %w", err)
	}

	sent := 0
	blocked := make(map[string]bool)
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		env := rec.Envelope
		if blocked[env.PartitionKey] {
			continue
		}

		if err := d.publisher.PublishEnvelope(ctx, env); err != nil {
			blocked[env.PartitionKey] = true
			d.logger.Warn("failed to publish outbox event",
				zap.Error(err),
				zap.String("event_id", env.EventID),
				zap.String("event_type", env.EventType),
				zap.Int("attempts", rec.Attempts+1),
			)
			if markErr := d.store.MarkOutboxFailed(ctx, env.EventID, err.Error()); markErr != nil {
				return sent, fmt.Errorf("mark outbox failed: %w", markErr)
			}
			continue
		}

		// повторная публикация после сбоя здесь допустима: потребители идемпотентны по event_id
		if err := d.store.MarkOutboxSent(ctx, env.EventID); err != nil {
			return sent, fmt.Errorf("mark outbox sent: %w", err)
		}
		sent++
		d.logger.Debug("outbox event published",
			zap.String("event_id", env.EventID),
			zap.String("event_type", env.EventType),
			zap.String("partition_key", env.PartitionKey),
		)
	}
	return sent, nil
}
