package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmailShape(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"admin@example.com", true},
		{"a@b.co", true},
		{"first.last+tag@sub.example.org", true},
		{"", false},
		{"admin", false},
		{"admin@example", false},
		{"@example.com", false},
		{"admin@.com", false},
		{"admin@a.b.c", true},
		{"ad min@example.com", false},
		{"admin@@example.com", false},
		{"admin@example.com ", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := ValidateEmailShape(tt.email)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidEmailShape)
			}
		})
	}
}

func TestCheckCredentials_Valid(t *testing.T) {
	assert.NoError(t, CheckCredentials("admin@example.com", "Abc12345!"))
}

func TestCheckCredentials_ReportsBothProblems(t *testing.T) {
	err := CheckCredentials("not-an-email", "abc")
	require.Error(t, err)

	var cerr *CredentialError
	require.True(t, errors.As(err, &cerr))
	assert.ErrorIs(t, cerr.EmailErr, ErrInvalidEmailShape)
	assert.Len(t, cerr.Violations, 4)
}

func TestCheckCredentials_TrimsEmail(t *testing.T) {
	assert.NoError(t, CheckCredentials("  admin@example.com  ", "Abc12345!"))
}
