package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vladyslavplus/KosherClouds-sub002/services/product/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/product/internal/repository"
)

// Repository реализует ProductRepository используя PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository создаёт новый PostgreSQL репозиторий
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, name, price, is_available, rating_mean, rating_count, version, created_at, updated_at, deleted_at`

func scanProduct(row pgx.Row) (repository.Product, error) {
	var p repository.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.IsAvailable, &p.Rating.Mean, &p.Rating.Count,
		&p.Version, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.Product{}, repository.ErrNotFound
		}
		return repository.Product{}, err
	}
	return p, nil
}

func (r *Repository) Create(ctx context.Context, p repository.Product) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO products (id, name, price, is_available, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 1, $5, $5)`,
		p.ID, p.Name, p.Price, p.IsAvailable, p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (repository.Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

// Update пишет изменяемые поля продукта; рейтинг не трогает
func (r *Repository) Update(ctx context.Context, p repository.Product, expectedVersion int64) (repository.Product, error) {
	updated, err := scanProduct(r.pool.QueryRow(ctx,
		`UPDATE products
		 SET name = $2, price = $3, is_available = $4, deleted_at = $5,
		     version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $6
		 RETURNING `+productColumns,
		p.ID, p.Name, p.Price, p.IsAvailable, p.DeletedAt, expectedVersion))
	if errors.Is(err, repository.ErrNotFound) {
		// отличаем отсутствие продукта от конфликта версий
		if _, getErr := r.GetByID(ctx, p.ID); getErr != nil {
			return repository.Product{}, getErr
		}
		return repository.Product{}, repository.ErrVersionConflict
	}
	return updated, err
}

func (r *Repository) GetContribution(ctx context.Context, reviewID string) (domain.Contribution, error) {
	var c domain.Contribution
	err := r.pool.QueryRow(ctx,
		`SELECT review_id, product_id, rating, counted, deleted FROM review_contributions WHERE review_id = $1`,
		reviewID).Scan(&c.ReviewID, &c.ProductID, &c.Rating, &c.Counted, &c.Deleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Contribution{}, repository.ErrNotFound
		}
		return domain.Contribution{}, err
	}
	return c, nil
}

// ApplyRating записывает агрегат и вклад в одной транзакции.
// UPDATE ... WHERE version = expected сериализует конкурирующих писателей одного продукта.
func (r *Repository) ApplyRating(ctx context.Context, u repository.RatingUpdate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE products
		 SET rating_mean = $2, rating_count = $3, rating = $4, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $5`,
		u.ProductID, u.Rating.Mean, u.Rating.Count, u.Rating.Rounded(), u.ExpectedVersion)
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrVersionConflict
	}

	if c := u.Contribution; c != nil {
		_, err = tx.Exec(ctx,
			`INSERT INTO review_contributions (review_id, product_id, rating, counted, deleted, updated_at)
			 VALUES ($1, $2, $3, $4, $5, now())
			 ON CONFLICT (review_id) DO UPDATE SET
			   rating = EXCLUDED.rating,
			   counted = EXCLUDED.counted,
			   deleted = EXCLUDED.deleted,
			   updated_at = EXCLUDED.updated_at`,
			c.ReviewID, c.ProductID, c.Rating, c.Counted, c.Deleted)
		if err != nil {
			return fmt.Errorf("upsert contribution: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *Repository) ListRatingTotals(ctx context.Context) ([]repository.RatingTotals, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.version, p.rating_mean, p.rating_count,
		        COALESCE(SUM(c.rating), 0), COUNT(c.review_id)
		 FROM products p
		 LEFT JOIN review_contributions c ON c.product_id = p.id AND c.counted AND NOT c.deleted
		 WHERE p.deleted_at IS NULL
		 GROUP BY p.id
		 ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.RatingTotals
	for rows.Next() {
		var t repository.RatingTotals
		if err := rows.Scan(&t.ProductID, &t.Version, &t.Stored.Mean, &t.Stored.Count, &t.Sum, &t.Count); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
