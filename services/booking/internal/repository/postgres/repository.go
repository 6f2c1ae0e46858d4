package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vladyslavplus/KosherClouds-sub002/services/booking/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/booking/internal/repository"
)

const uniqueViolation = "23505"

const selectBooking = `SELECT id, user_id, booking_date_time, number_of_guests, comment, status, version, created_at, updated_at FROM bookings`

// Repository реализует BookingRepository используя PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

var _ repository.BookingRepository = (*Repository)(nil)

// NewRepository создаёт новый PostgreSQL репозиторий
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var (
		b      domain.Booking
		status string
	)
	err := row.Scan(&b.ID, &b.UserID, &b.BookingDateTime, &b.NumberOfGuests, &b.Comment, &status, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Booking{}, repository.ErrNotFound
	}
	if err != nil {
		return domain.Booking{}, fmt.Errorf("scan booking: %w", err)
	}
	b.Status = domain.Status(status)
	return b, nil
}

// Create сохраняет новое бронирование с version = 1
func (r *Repository) Create(ctx context.Context, b domain.Booking) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO bookings (id, user_id, booking_date_time, number_of_guests, comment, status, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $8)`,
		b.ID, b.UserID, b.BookingDateTime, b.NumberOfGuests, b.Comment, string(b.Status), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// GetByID получает бронирование по ID
func (r *Repository) GetByID(ctx context.Context, id string) (domain.Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx, selectBooking+` WHERE id = $1`, id))
}

// ListByUser бронирования пользователя по возрастанию времени
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	rows, err := r.pool.Query(ctx, selectBooking+` WHERE user_id = $1 ORDER BY booking_date_time`, userID)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Update сохраняет изменения, если version не изменилась
func (r *Repository) Update(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE bookings
		 SET booking_date_time = $3, number_of_guests = $4, comment = $5, status = $6, updated_at = $7, version = version + 1
		 WHERE id = $1 AND version = $2`,
		b.ID, b.Version, b.BookingDateTime, b.NumberOfGuests, b.Comment, string(b.Status), b.UpdatedAt)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("update booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Booking{}, r.missingOrConflict(ctx, b.ID)
	}
	b.Version++
	return b, nil
}

// Delete удаляет бронирование, если version не изменилась
func (r *Repository) Delete(ctx context.Context, id string, version int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM bookings WHERE id = $1 AND version = $2`, id, version)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrConflict(ctx, id)
	}
	return nil
}

func (r *Repository) missingOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check booking: %w", err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}
