package database

import (
	"fmt"
	"testing"

	"github.com/Abdilito4-real/np/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapPostgresError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, models.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("get car: %w", pgx.ErrNoRows), models.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, models.ErrConflict},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, models.ErrNotFound},
		{"check violation", &pgconn.PgError{Code: "23514"}, models.ErrBadRequest},
		{"bad uuid", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "22P02"}), models.ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapPostgresError(tt.in))
		})
	}
}

func TestMapPostgresError_PassesThroughUnknown(t *testing.T) {
	other := &pgconn.PgError{Code: "40001"}
	assert.Same(t, other, MapPostgresError(other))
}
