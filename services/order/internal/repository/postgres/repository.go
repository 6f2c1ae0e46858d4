package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/outbox"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/repository"
)

const uniqueViolation = "23505"

// Repository реализует OrderRepository используя PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

var _ repository.OrderRepository = (*Repository)(nil)

// NewRepository создаёт новый PostgreSQL репозиторий
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// inTx выполняет fn и запись outbox в одной транзакции
func (r *Repository) inTx(ctx context.Context, events []eventbus.Envelope, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := insertOutbox(ctx, tx, events); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertOutbox(ctx context.Context, tx pgx.Tx, events []eventbus.Envelope) error {
	for _, env := range events {
		data, err := env.Marshal()
		if err != nil {
			return fmt.Errorf("marshal envelope: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO outbox (event_id, event_type, partition_key, envelope) VALUES ($1, $2, $3, $4)`,
			env.EventID, env.EventType, env.PartitionKey, data)
		if err != nil {
			return fmt.Errorf("insert outbox %s: %w", env.EventType, err)
		}
	}
	return nil
}

// Create сохраняет заказ и его позиции
func (r *Repository) Create(ctx context.Context, o domain.Order, events ...eventbus.Envelope) error {
	return r.inTx(ctx, events, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO orders (id, user_id, status, total_amount, notes, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $6)`,
			o.ID, o.UserID, string(o.Status), o.TotalAmount, o.Notes, o.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return repository.ErrAlreadyExists
			}
			return fmt.Errorf("insert order: %w", err)
		}

		for _, item := range o.Items {
			_, err = tx.Exec(ctx,
				`INSERT INTO order_items (order_id, product_id, product_name, unit_price, quantity)
				 VALUES ($1, $2, $3, $4, $5)`,
				o.ID, item.ProductID, item.ProductName, item.UnitPrice, item.Quantity)
			if err != nil {
				return fmt.Errorf("insert order item %s: %w", item.ProductID, err)
			}
		}
		return nil
	})
}

// GetByID собирает order и order_items в доменную модель
func (r *Repository) GetByID(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	var status string
	var txID *string
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, status, total_amount, notes, payment_transaction_id, paid_at, created_at, updated_at
		 FROM orders
		 WHERE id = $1`,
		id).Scan(&o.ID, &o.UserID, &status, &o.TotalAmount, &o.Notes, &txID, &o.PaidAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, repository.ErrNotFound
		}
		return domain.Order{}, err
	}
	o.Status = domain.Status(status)
	if txID != nil {
		o.PaymentTransactionID = *txID
	}

	rows, err := r.pool.Query(ctx,
		`SELECT product_id, product_name, unit_price, quantity
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY product_id`,
		id)
	if err != nil {
		return domain.Order{}, err
	}
	defer rows.Close()

	o.Items = make([]domain.Item, 0)
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.UnitPrice, &item.Quantity); err != nil {
			return domain.Order{}, err
		}
		o.Items = append(o.Items, item)
	}
	return o, rows.Err()
}

// Update compare-and-set по текущему статусу
func (r *Repository) Update(ctx context.Context, o domain.Order, expected domain.Status, events ...eventbus.Envelope) error {
	return r.inTx(ctx, events, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE orders SET status = $2, notes = $3, updated_at = $4
			 WHERE id = $1 AND status = $5`,
			o.ID, string(o.Status), o.Notes, o.UpdatedAt, string(expected))
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return r.missingOrConflict(ctx, tx, o.ID)
		}
		return nil
	})
}

func (r *Repository) missingOrConflict(ctx context.Context, tx pgx.Tx, id string) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrStatusConflict
}

func (r *Repository) Delete(ctx context.Context, id string, events ...eventbus.Envelope) error {
	return r.inTx(ctx, events, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

// ApplyPayment: PK order_payments.transaction_id делает повторное применение невозможным
func (r *Repository) ApplyPayment(ctx context.Context, p repository.Payment, events ...eventbus.Envelope) error {
	return r.inTx(ctx, events, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO order_payments (transaction_id, order_id, payment_id, amount, applied_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			p.TransactionID, p.OrderID, p.PaymentID, p.Amount, p.PaidAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return repository.ErrPaymentAlreadyApplied
			}
			return fmt.Errorf("insert payment: %w", err)
		}

		tag, err := tx.Exec(ctx,
			`UPDATE orders SET status = $2, payment_transaction_id = $3, paid_at = $4, updated_at = $4
			 WHERE id = $1 AND status = $5`,
			p.OrderID, string(domain.StatusPaid), p.TransactionID, p.PaidAt, string(domain.StatusPending))
		if err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return r.missingOrConflict(ctx, tx, p.OrderID)
		}
		return nil
	})
}

func (r *Repository) PendingOutbox(ctx context.Context, limit int) ([]outbox.Record, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT envelope, attempts FROM outbox WHERE status = 'pending' ORDER BY seq LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []outbox.Record
	for rows.Next() {
		var data []byte
		var rec outbox.Record
		if err := rows.Scan(&data, &rec.Attempts); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &rec.Envelope); err != nil {
			return nil, fmt.Errorf("decode outbox envelope: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repository) MarkOutboxSent(ctx context.Context, eventID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE outbox SET status = 'sent', sent_at = now(), last_error = NULL WHERE event_id = $1`, eventID)
	return err
}

func (r *Repository) MarkOutboxFailed(ctx context.Context, eventID, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE outbox SET attempts = attempts + 1, last_error = $2 WHERE event_id = $1`, eventID, errMsg)
	return err
}
