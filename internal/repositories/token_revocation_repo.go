package repositories

import (
	"context"
	"time"

	"github.com/Abdilito4-real/np/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TokenRevocationRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRevocationRepository(db *database.DB) *TokenRevocationRepository {
	return &TokenRevocationRepository{pool: db.Pool}
}

// RevokeToken adds a token to the revocation list. Revoking the same jti
// twice is not an error.
func (r *TokenRevocationRepository) RevokeToken(ctx context.Context, jti, userID, tokenType string, expiresAt time.Time, reason string) error {
	query := `
		INSERT INTO revoked_tokens (id, jti, user_id, token_type, expires_at, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (jti) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query, uuid.New().String(), jti, userID, tokenType, expiresAt, reason)
	return database.MapPostgresError(err)
}

func (r *TokenRevocationRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, jti).Scan(&exists); err != nil {
		return false, database.MapPostgresError(err)
	}

	return exists, nil
}

// CleanupExpiredTokens removes revocations whose tokens have expired anyway.
func (r *TokenRevocationRepository) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	query := `DELETE FROM revoked_tokens WHERE expires_at < $1`

	result, err := r.pool.Exec(ctx, query, time.Now())
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
