package repositories

import (
	"context"
	"fmt"

	"github.com/Abdilito4-real/np/internal/database"
	"github.com/Abdilito4-real/np/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminLogRepository stores the admin activity trail.
type AdminLogRepository struct {
	pool *pgxpool.Pool
}

func NewAdminLogRepository(db *database.DB) *AdminLogRepository {
	return &AdminLogRepository{pool: db.Pool}
}

func scanAdminLogRow(row rowScanner) (*models.AdminLog, error) {
	var log models.AdminLog

	if err := row.Scan(&log.ID, &log.AdminID, &log.Action, &log.Description, &log.CreatedAt); err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &log, nil
}

func scanAdminLogRows(rows pgx.Rows) ([]*models.AdminLog, error) {
	defer rows.Close()

	logs := make([]*models.AdminLog, 0)
	for rows.Next() {
		log, err := scanAdminLogRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan admin log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admin log rows: %w", err)
	}

	return logs, nil
}

func (r *AdminLogRepository) Create(ctx context.Context, log *models.AdminLog) (*models.AdminLog, error) {
	query := `
		INSERT INTO admin_logs (admin_id, action, description)
		VALUES ($1, $2, $3)
		RETURNING id::text, admin_id::text, action, description, created_at
	`

	result, err := scanAdminLogRow(r.pool.QueryRow(ctx, query, log.AdminID, log.Action, log.Description))
	if err != nil {
		return nil, fmt.Errorf("failed to create admin log: %w", err)
	}
	return result, nil
}

// List returns entries newest first, optionally filtered by action.
func (r *AdminLogRepository) List(ctx context.Context, action string, limit, offset int) ([]*models.AdminLog, error) {
	query := `SELECT id::text, admin_id::text, action, description, created_at FROM admin_logs`
	args := []interface{}{limit, offset}
	if action != "" {
		query += ` WHERE action = $3`
		args = append(args, action)
	}
	query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query admin logs: %w", database.MapPostgresError(err))
	}
	return scanAdminLogRows(rows)
}
