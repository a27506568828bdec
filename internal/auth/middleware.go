package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Abdilito4-real/np/internal/models"
	pkghttp "github.com/Abdilito4-real/np/pkg/http"
)

type contextKey string

const (
	// UserContextKey is the key for storing user claims in context
	UserContextKey contextKey = "user"
)

// TokenRevocationChecker defines the interface for checking if tokens are revoked
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// RevocationConfig holds configuration for token revocation behavior
type RevocationConfig struct {
	FailClosed bool // deny access when the revocation lookup itself fails
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware validates bearer tokens, checks revocation and injects the
// claims into the request context.
func AuthMiddleware(tm *TokenManager, revocationChecker TokenRevocationChecker, cfg RevocationConfig, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := BearerToken(r)
			if !ok {
				pkghttp.WriteUnauthorized(w, "missing or malformed authorization header")
				return
			}

			claims, err := tm.ValidateToken(r.Context(), tokenString)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "invalid or expired token")
				return
			}

			if revocationChecker != nil {
				revoked, err := revocationChecker.IsTokenRevoked(r.Context(), claims.ID)
				if err != nil {
					logger.Error("token revocation check failed", slog.Any("error", err))
					if cfg.FailClosed {
						pkghttp.WriteError(w, http.StatusServiceUnavailable, "service_unavailable", "unable to verify token status")
						return
					}
				}
				if revoked {
					pkghttp.WriteUnauthorized(w, "token has been revoked")
					return
				}
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects callers whose current role is not admin. The role is
// re-read from the database so a demotion takes effect immediately.
func RequireAdmin(userRepo UserRepository) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserFromContext(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			user, err := userRepo.GetByID(r.Context(), claims.UserID)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "user not found")
				return
			}

			if !user.IsAdmin() || user.Status != models.UserStatusActive {
				pkghttp.WriteForbidden(w, "admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(UserContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// UserRepository interface for fetching user data
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}
