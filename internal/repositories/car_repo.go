package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Abdilito4-real/np/internal/database"
	"github.com/Abdilito4-real/np/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CarRepository struct {
	pool *pgxpool.Pool
}

func NewCarRepository(db *database.DB) *CarRepository {
	return &CarRepository{pool: db.Pool}
}

const carColumns = `id::text, make, model, year, price::float8, status, images, meta,
	details_clicks, buy_clicks, is_deleted, created_at, updated_at`

func scanCarRow(scanner rowScanner) (*models.Car, error) {
	var car models.Car

	err := scanner.Scan(
		&car.ID, &car.Make, &car.Model, &car.Year, &car.Price, &car.Status,
		&car.Images, &car.Meta,
		&car.DetailsClicks, &car.BuyClicks, &car.IsDeleted,
		&car.CreatedAt, &car.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	if car.Images == nil {
		car.Images = []string{}
	}

	return &car, nil
}

func scanCarRows(rows pgx.Rows) ([]*models.Car, error) {
	defer rows.Close()

	cars := make([]*models.Car, 0)
	for rows.Next() {
		car, err := scanCarRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan car: %w", err)
		}
		cars = append(cars, car)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating car rows: %w", err)
	}

	return cars, nil
}

// List returns cars newest first. Deleted cars are excluded unless requested.
func (r *CarRepository) List(ctx context.Context, filter models.CarFilter) ([]*models.Car, error) {
	var (
		where []string
		args  []interface{}
	)
	if !filter.IncludeDeleted {
		where = append(where, "is_deleted = FALSE")
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + carColumns + ` FROM cars`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cars: %w", database.MapPostgresError(err))
	}

	return scanCarRows(rows)
}

// ListPublic returns the storefront listing: available, non-deleted cars.
func (r *CarRepository) ListPublic(ctx context.Context, limit, offset int) ([]*models.Car, error) {
	return r.List(ctx, models.CarFilter{Status: models.CarStatusAvailable, Limit: limit, Offset: offset})
}

func (r *CarRepository) GetByID(ctx context.Context, id string) (*models.Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars WHERE id = $1 AND is_deleted = FALSE`
	return scanCarRow(r.pool.QueryRow(ctx, query, id))
}

func (r *CarRepository) Create(ctx context.Context, car *models.Car) (*models.Car, error) {
	if car.Images == nil {
		car.Images = []string{}
	}
	if car.Status == "" {
		car.Status = models.CarStatusAvailable
	}

	query := `
		INSERT INTO cars (make, model, year, price, status, images, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + carColumns

	return scanCarRow(r.pool.QueryRow(ctx, query,
		car.Make, car.Model, car.Year, car.Price, car.Status, car.Images, car.Meta,
	))
}

func (r *CarRepository) Update(ctx context.Context, id string, car *models.Car) (*models.Car, error) {
	if car.Images == nil {
		car.Images = []string{}
	}

	query := `
		UPDATE cars SET make = $1, model = $2, year = $3, price = $4, status = $5,
			images = $6, meta = $7, updated_at = $8
		WHERE id = $9 AND is_deleted = FALSE
		RETURNING ` + carColumns

	return scanCarRow(r.pool.QueryRow(ctx, query,
		car.Make, car.Model, car.Year, car.Price, car.Status, car.Images, car.Meta, time.Now(), id,
	))
}

// SoftDelete hides a car from every listing while keeping its analytics.
func (r *CarRepository) SoftDelete(ctx context.Context, id string) (*models.Car, error) {
	query := `
		UPDATE cars SET is_deleted = TRUE, updated_at = $1
		WHERE id = $2 AND is_deleted = FALSE
		RETURNING ` + carColumns

	return scanCarRow(r.pool.QueryRow(ctx, query, time.Now(), id))
}

func (r *CarRepository) BulkSoftDelete(ctx context.Context, ids []string) (int64, error) {
	query := `UPDATE cars SET is_deleted = TRUE, updated_at = $1 WHERE id = ANY($2::uuid[]) AND is_deleted = FALSE`

	result, err := r.pool.Exec(ctx, query, time.Now(), ids)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

func (r *CarRepository) BulkSetStatus(ctx context.Context, ids []string, status string) (int64, error) {
	query := `UPDATE cars SET status = $1, updated_at = $2 WHERE id = ANY($3::uuid[]) AND is_deleted = FALSE`

	result, err := r.pool.Exec(ctx, query, status, time.Now(), ids)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

// InventoryStats summarizes the non-deleted inventory.
func (r *CarRepository) InventoryStats(ctx context.Context) (*models.InventoryStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'available'),
			COUNT(*) FILTER (WHERE status = 'sold'),
			COALESCE(SUM(price), 0)::float8,
			COALESCE(AVG(EXTRACT(EPOCH FROM (NOW() - created_at)) / 86400) FILTER (WHERE status = 'available'), 0)::float8
		FROM cars WHERE is_deleted = FALSE
	`

	var s models.InventoryStats
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.TotalCars, &s.AvailableCars, &s.SoldCars, &s.InventoryValue, &s.AvgAgeDays,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &s, nil
}
