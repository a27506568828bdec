package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Abdilito4-real/np/internal/database"
	"github.com/Abdilito4-real/np/internal/models"
	"github.com/Abdilito4-real/np/pkg/auth"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const userColumns = `id::text, email, password_hash, name, role, status, token_key, created_at, updated_at`

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name,
		&user.Role, &user.Status, &user.TokenKey,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUserRow(r.pool.QueryRow(ctx, query, strings.TrimSpace(email)))
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	tokenKey, err := auth.GenerateTokenKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token key: %w", err)
	}
	user.TokenKey = tokenKey

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.Role == "" {
		user.Role = models.RoleStaff
	}
	if user.Status == "" {
		user.Status = models.UserStatusActive
	}

	query := `
		INSERT INTO users (id, email, password_hash, name, role, status, token_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, strings.TrimSpace(user.Email), user.PasswordHash, user.Name,
		user.Role, user.Status, user.TokenKey, user.CreatedAt, user.UpdatedAt,
	))
}

// UpdateCredentials replaces the password hash and role and rotates the
// token key, which invalidates every token issued before.
func (r *UserRepository) UpdateCredentials(ctx context.Context, id, passwordHash, role string) (*models.User, error) {
	tokenKey, err := auth.GenerateTokenKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token key: %w", err)
	}

	query := `
		UPDATE users SET password_hash = $1, role = $2, token_key = $3, status = $4, updated_at = $5
		WHERE id = $6
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		passwordHash, role, tokenKey, models.UserStatusActive, time.Now(), id,
	))
}
