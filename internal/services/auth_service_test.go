package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Abdilito4-real/np/internal/auth"
	"github.com/Abdilito4-real/np/internal/models"
	pkgauth "github.com/Abdilito4-real/np/pkg/auth"
	pkglogger "github.com/Abdilito4-real/np/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "Abc12345!"

var testPasswordHash = sync.OnceValue(func() string {
	h, err := pkgauth.HashPassword(testPassword)
	if err != nil {
		panic(err)
	}
	return h
})

func newTestAuthService(users map[string]*models.User) (*AuthService, *MockTokenRevocationRepository) {
	repo := &MockUserRepository{
		GetByEmailFunc: func(_ context.Context, email string) (*models.User, error) {
			for _, u := range users {
				if u.Email == email {
					return u, nil
				}
			}
			return nil, models.ErrNotFound
		},
		GetByIDFunc: func(_ context.Context, id string) (*models.User, error) {
			if u, ok := users[id]; ok {
				return u, nil
			}
			return nil, models.ErrNotFound
		},
	}

	tm := auth.NewTokenManager("test-secret-32-characters-long!!", time.Hour)
	tm.SetUserRepo(repo)

	revocations := &MockTokenRevocationRepository{}
	logger := testLogger()
	return NewAuthService(repo, revocations, tm, &auth.TimingDelay{}, logger, pkglogger.NewAuditLogger(logger)), revocations
}

func testUser(id, email, role, status string) *models.User {
	return &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: testPasswordHash(),
		Role:         role,
		Status:       status,
		TokenKey:     "key-" + id,
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	users := map[string]*models.User{
		"u1": testUser("u1", "admin@example.com", models.RoleAdmin, models.UserStatusActive),
		"u2": testUser("u2", "staff@example.com", models.RoleStaff, models.UserStatusActive),
		"u3": testUser("u3", "gone@example.com", models.RoleAdmin, models.UserStatusDisabled),
	}
	svc, _ := newTestAuthService(users)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"admin", "admin@example.com", testPassword, nil},
		{"email is normalized", "  Admin@Example.com ", testPassword, nil},
		{"wrong password", "admin@example.com", "Wrong123!", models.ErrUnauthorized},
		{"unknown email", "nobody@example.com", testPassword, models.ErrUnauthorized},
		{"not an admin", "staff@example.com", testPassword, models.ErrNotAdmin},
		{"disabled", "gone@example.com", testPassword, models.ErrAccountDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := svc.Authenticate(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, sess)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "u1", sess.User.ID)
			assert.NotEmpty(t, sess.Token.Token)
			assert.NotEmpty(t, sess.Token.JTI)
		})
	}
}

func TestAuthService_Authenticate_RepositoryFailure(t *testing.T) {
	svc, _ := newTestAuthService(nil)
	svc.repo = &MockUserRepository{
		GetByEmailFunc: func(context.Context, string) (*models.User, error) {
			return nil, errors.New("connection refused")
		},
	}

	_, err := svc.Authenticate(context.Background(), "admin@example.com", testPassword)
	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestAuthService_SignOut(t *testing.T) {
	users := map[string]*models.User{
		"u1": testUser("u1", "admin@example.com", models.RoleAdmin, models.UserStatusActive),
	}
	svc, revocations := newTestAuthService(users)

	sess, err := svc.Authenticate(context.Background(), "admin@example.com", testPassword)
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(context.Background(), sess.Token.Token, "logout"))
	assert.Equal(t, "logout", revocations.Revoked[sess.Token.JTI])

	err = svc.SignOut(context.Background(), "garbage", "logout")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestAuthService_SignOut_RevocationFailure(t *testing.T) {
	users := map[string]*models.User{
		"u1": testUser("u1", "admin@example.com", models.RoleAdmin, models.UserStatusActive),
	}
	svc, revocations := newTestAuthService(users)

	sess, err := svc.Authenticate(context.Background(), "admin@example.com", testPassword)
	require.NoError(t, err)

	revocations.Err = errors.New("db down")
	assert.Error(t, svc.SignOut(context.Background(), sess.Token.Token, "logout"))
}

func TestAuthService_CreateAdmin(t *testing.T) {
	t.Run("rejects weak credentials", func(t *testing.T) {
		svc, _ := newTestAuthService(nil)

		_, err := svc.CreateAdmin(context.Background(), "not-an-email", "abc", "Admin")

		var credErr *pkgauth.CredentialError
		require.ErrorAs(t, err, &credErr)
		assert.NotNil(t, credErr.EmailErr)
		assert.Len(t, credErr.Violations, 4)
	})

	t.Run("creates a new admin", func(t *testing.T) {
		svc, _ := newTestAuthService(nil)
		var created *models.User
		svc.repo.(*MockUserRepository).CreateFunc = func(_ context.Context, u *models.User) (*models.User, error) {
			created = u
			return u, nil
		}

		_, err := svc.CreateAdmin(context.Background(), " New@Example.com ", testPassword, "")
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, "new@example.com", created.Email)
		assert.Equal(t, "new@example.com", created.Name)
		assert.Equal(t, models.RoleAdmin, created.Role)
		assert.NoError(t, pkgauth.ComparePassword(created.PasswordHash, testPassword))
	})

	t.Run("promotes an existing user", func(t *testing.T) {
		users := map[string]*models.User{
			"u2": testUser("u2", "staff@example.com", models.RoleStaff, models.UserStatusActive),
		}
		svc, _ := newTestAuthService(users)
		var gotRole string
		svc.repo.(*MockUserRepository).UpdateCredentialsFunc = func(_ context.Context, id, _, role string) (*models.User, error) {
			gotRole = role
			return users[id], nil
		}

		_, err := svc.CreateAdmin(context.Background(), "staff@example.com", testPassword, "Staff")
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, gotRole)
	})
}
