package repositories

import (
	"context"
	"fmt"

	"github.com/Abdilito4-real/np/internal/database"
	"github.com/Abdilito4-real/np/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(db *database.DB) *MessageRepository {
	return &MessageRepository{pool: db.Pool}
}

const messageColumns = `id::text, name, email, phone, subject, message, is_read, created_at`

func scanMessageRow(scanner rowScanner) (*models.Message, error) {
	var m models.Message
	err := scanner.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.Subject, &m.Message, &m.IsRead, &m.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &m, nil
}

func (r *MessageRepository) Create(ctx context.Context, m *models.Message) (*models.Message, error) {
	query := `
		INSERT INTO messages (name, email, phone, subject, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + messageColumns

	return scanMessageRow(r.pool.QueryRow(ctx, query, m.Name, m.Email, m.Phone, m.Subject, m.Message))
}

func (r *MessageRepository) List(ctx context.Context, unreadOnly bool, limit, offset int) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages`
	if unreadOnly {
		query += ` WHERE is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", database.MapPostgresError(err))
	}
	defer rows.Close()

	msgs := make([]*models.Message, 0)
	for rows.Next() {
		m, err := scanMessageRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}
	return msgs, nil
}

func (r *MessageRepository) MarkRead(ctx context.Context, id string) (*models.Message, error) {
	query := `UPDATE messages SET is_read = TRUE WHERE id = $1 RETURNING ` + messageColumns
	return scanMessageRow(r.pool.QueryRow(ctx, query, id))
}

func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *MessageRepository) CountUnread(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE is_read = FALSE`).Scan(&n); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return n, nil
}
