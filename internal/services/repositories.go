package services

import (
	"context"
	"time"

	"github.com/Abdilito4-real/np/internal/models"
)

// UserRepository is the user persistence the services depend on.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdateCredentials(ctx context.Context, id, passwordHash, role string) (*models.User, error)
}

// TokenRevocationRepository defines the interface for token revocation operations
type TokenRevocationRepository interface {
	RevokeToken(ctx context.Context, jti, userID, tokenType string, expiresAt time.Time, reason string) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

type CarRepository interface {
	List(ctx context.Context, filter models.CarFilter) ([]*models.Car, error)
	ListPublic(ctx context.Context, limit, offset int) ([]*models.Car, error)
	GetByID(ctx context.Context, id string) (*models.Car, error)
	Create(ctx context.Context, car *models.Car) (*models.Car, error)
	Update(ctx context.Context, id string, car *models.Car) (*models.Car, error)
	SoftDelete(ctx context.Context, id string) (*models.Car, error)
	BulkSoftDelete(ctx context.Context, ids []string) (int64, error)
	BulkSetStatus(ctx context.Context, ids []string, status string) (int64, error)
	InventoryStats(ctx context.Context) (*models.InventoryStats, error)
}

type AnalyticsRepository interface {
	RecordEvent(ctx context.Context, ev *models.AnalyticsEvent) (*models.AnalyticsEvent, error)
	ListSince(ctx context.Context, since time.Time) ([]*models.AnalyticsEvent, error)
	CountSince(ctx context.Context, since time.Time) (*models.ClickTotals, error)
	DailyClicks(ctx context.Context, since time.Time, timezone string) ([]models.DailyClicks, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *models.Message) (*models.Message, error)
	List(ctx context.Context, unreadOnly bool, limit, offset int) ([]*models.Message, error)
	MarkRead(ctx context.Context, id string) (*models.Message, error)
	Delete(ctx context.Context, id string) error
	CountUnread(ctx context.Context) (int, error)
}

type AdminLogRepository interface {
	Create(ctx context.Context, log *models.AdminLog) (*models.AdminLog, error)
	List(ctx context.Context, action string, limit, offset int) ([]*models.AdminLog, error)
}
