package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdilito4-real/np/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenTypeAccess is the only token type the console issues.
const TokenTypeAccess = "access"

// UserTokenKeyFetcher defines interface for retrieving user's TokenKey
type UserTokenKeyFetcher interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// IssuedToken is a signed token plus the claims needed to revoke it later.
type IssuedToken struct {
	Token     string    `json:"access_token"`
	JTI       string    `json:"-"`
	UserID    string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenManager handles JWT token generation and validation
type TokenManager struct {
	secret      string
	tokenExpiry time.Duration
	userRepo    UserTokenKeyFetcher
}

func NewTokenManager(secret string, expiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:      secret,
		tokenExpiry: expiry,
	}
}

// SetUserRepo enables composite signing with the per-user TokenKey.
func (tm *TokenManager) SetUserRepo(repo UserTokenKeyFetcher) {
	tm.userRepo = repo
}

// signingKey returns global_secret + user.TokenKey, or the global secret
// when no user repository is configured. An unknown user fails closed.
func (tm *TokenManager) signingKey(ctx context.Context, userID string) ([]byte, error) {
	if tm.userRepo == nil {
		return []byte(tm.secret), nil
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	user, err := tm.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load token key: %w", err)
	}

	return []byte(tm.secret + user.TokenKey), nil
}

// GenerateAccessToken signs a token for user with a fresh JTI.
func (tm *TokenManager) GenerateAccessToken(ctx context.Context, user *models.User) (*IssuedToken, error) {
	now := time.Now()
	issued := &IssuedToken{
		JTI:       uuid.New().String(),
		UserID:    user.ID,
		ExpiresAt: now.Add(tm.tokenExpiry),
	}

	claims := &models.TokenClaims{
		Type:   TokenTypeAccess,
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        issued.JTI,
			ExpiresAt: jwt.NewNumericDate(issued.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	key, err := tm.signingKey(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	issued.Token = signed

	return issued, nil
}

// ValidateToken verifies a token and returns its claims
func (tm *TokenManager) ValidateToken(ctx context.Context, tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		tmp, ok := token.Claims.(*models.TokenClaims)
		if !ok || tmp.UserID == "" {
			return nil, errors.New("missing user id")
		}
		return tm.signingKey(ctx, tmp.UserID)
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type != TokenTypeAccess {
		return nil, fmt.Errorf("%w: unexpected token type %q", models.ErrUnauthorized, claims.Type)
	}

	return claims, nil
}
