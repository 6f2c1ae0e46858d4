package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/repository"
)

// Repository реализует InboxRepository используя PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

var _ repository.InboxRepository = (*Repository)(nil)

// NewRepository создаёт новый PostgreSQL репозиторий
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UpsertPending вставляет pending запись или читает существующую.
// ON CONFLICT DO UPDATE без изменений нужен, чтобы RETURNING вернул строку и при конфликте.
func (r *Repository) UpsertPending(ctx context.Context, eventID, kind, eventType string) (repository.InboxUpsertResult, error) {
	var (
		status   string
		attempts int
	)
	err := r.pool.QueryRow(ctx,
		`INSERT INTO notification_inbox (event_id, kind, event_type, status)
		 VALUES ($1, $2, $3, 'pending')
		 ON CONFLICT (event_id, kind) DO UPDATE SET event_type = notification_inbox.event_type
		 RETURNING status, attempts`,
		eventID, kind, eventType).Scan(&status, &attempts)
	if err != nil {
		return repository.InboxUpsertResult{}, fmt.Errorf("upsert inbox: %w", err)
	}

	if status == repository.InboxStatusSent {
		return repository.InboxUpsertResult{AlreadyProcessed: true, Attempts: attempts}, nil
	}
	return repository.InboxUpsertResult{CanProcess: true, Attempts: attempts}, nil
}

// MarkSent переводит запись в sent
func (r *Repository) MarkSent(ctx context.Context, eventID, kind string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_inbox SET status = 'sent', sent_at = now(), last_error = NULL
		 WHERE event_id = $1 AND kind = $2`,
		eventID, kind)
	if err != nil {
		return fmt.Errorf("mark inbox sent: %w", err)
	}
	return nil
}

// MarkFailed сохраняет ошибку попытки, запись остаётся pending
func (r *Repository) MarkFailed(ctx context.Context, eventID, kind, errString string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_inbox SET attempts = attempts + 1, last_error = $3
		 WHERE event_id = $1 AND kind = $2 AND status = 'pending'`,
		eventID, kind, errString)
	if err != nil {
		return fmt.Errorf("mark inbox failed: %w", err)
	}
	return nil
}
