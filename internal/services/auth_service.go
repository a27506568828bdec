package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Abdilito4-real/np/internal/auth"
	"github.com/Abdilito4-real/np/internal/models"
	pkgauth "github.com/Abdilito4-real/np/pkg/auth"
	pkglogger "github.com/Abdilito4-real/np/pkg/logger"
)

// AuthSession is what a successful Authenticate hands back to the console.
type AuthSession struct {
	User  *models.User
	Token *auth.IssuedToken
}

// AuthService is the backend authentication contract: Authenticate with
// email and password, SignOut a previously issued token.
type AuthService struct {
	repo        UserRepository
	revokeRepo  TokenRevocationRepository
	tm          *auth.TokenManager
	timing      *auth.TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewAuthService(repo UserRepository, revokeRepo TokenRevocationRepository, tm *auth.TokenManager, timing *auth.TimingDelay, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		repo:        repo,
		revokeRepo:  revokeRepo,
		tm:          tm,
		timing:      timing,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Authenticate verifies the credentials of an admin and issues a token.
// Unknown email and wrong password both yield ErrUnauthorized after the
// same padded delay. A valid non-admin account yields ErrNotAdmin.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*AuthSession, error) {
	start := time.Now()
	email = strings.ToLower(strings.TrimSpace(email))

	fail := func(userID, reason string, err error) (*AuthSession, error) {
		s.timing.WaitFrom(ctx, start, false)
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        userID,
			Email:         email,
			FailureReason: reason,
		})
		return nil, err
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Hash anyway so an unknown email costs the same as a wrong password.
			_ = pkgauth.ComparePassword(dummyHash(), password)
			return fail("", "invalid_credentials", models.ErrUnauthorized)
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		return fail(user.ID, "invalid_credentials", models.ErrUnauthorized)
	}

	if user.Status != models.UserStatusActive {
		return fail(user.ID, "account_disabled", models.ErrAccountDisabled)
	}

	if !user.IsAdmin() {
		s.logger.Warn("authenticated user is not an admin", slog.String("user_id", user.ID), slog.String("role", user.Role))
		return fail(user.ID, "not_admin", models.ErrNotAdmin)
	}

	token, err := s.tm.GenerateAccessToken(ctx, user)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		Email:     email,
		Success:   true,
	})

	return &AuthSession{User: user, Token: token}, nil
}

// SignOut revokes the given token. Signing out an already invalid token is
// reported as ErrUnauthorized so callers can log and move on.
func (s *AuthService) SignOut(ctx context.Context, token, reason string) error {
	claims, err := s.tm.ValidateToken(ctx, token)
	if err != nil {
		return err
	}

	if err := s.revokeRepo.RevokeToken(ctx, claims.ID, claims.UserID, claims.Type, claims.ExpiresAt.Time, reason); err != nil {
		s.logger.Error("failed to revoke token", slog.String("jti", claims.ID), slog.Any("error", err))
		return fmt.Errorf("revoke token: %w", err)
	}

	s.logger.Info("admin signed out", slog.String("user_id", claims.UserID), slog.String("reason", reason))
	return nil
}

// CreateAdmin creates an admin account, or promotes and resets the password
// of an existing one. Credentials go through the same gate as the login form.
func (s *AuthService) CreateAdmin(ctx context.Context, email, password, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := pkgauth.CheckCredentials(email, password); err != nil {
		return nil, err
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return s.repo.UpdateCredentials(ctx, existing.ID, hash, models.RoleAdmin)
	case !errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if name = strings.TrimSpace(name); name == "" {
		name = email
	}

	return s.repo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         models.RoleAdmin,
		Status:       models.UserStatusActive,
	})
}

// dummyHash is compared against when the email is unknown.
var dummyHash = sync.OnceValue(func() string {
	h, _ := pkgauth.HashPassword("unknown-user-placeholder")
	return h
})
