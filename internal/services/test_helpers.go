package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Abdilito4-real/np/internal/metrics"
	"github.com/Abdilito4-real/np/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc           func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc        func(ctx context.Context, email string) (*models.User, error)
	CreateFunc            func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateCredentialsFunc func(ctx context.Context, id, passwordHash, role string) (*models.User, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdateCredentials(ctx context.Context, id, passwordHash, role string) (*models.User, error) {
	if m.UpdateCredentialsFunc != nil {
		return m.UpdateCredentialsFunc(ctx, id, passwordHash, role)
	}
	return nil, models.ErrInternalServer
}

// MockTokenRevocationRepository records revocations in memory.
type MockTokenRevocationRepository struct {
	mu      sync.Mutex
	Revoked map[string]string // jti -> reason
	Err     error
}

func (m *MockTokenRevocationRepository) RevokeToken(_ context.Context, jti, _, _ string, _ time.Time, reason string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Revoked == nil {
		m.Revoked = make(map[string]string)
	}
	m.Revoked[jti] = reason
	return nil
}

func (m *MockTokenRevocationRepository) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Revoked[jti]
	return ok, nil
}

// MockCarRepository implements CarRepository for testing
type MockCarRepository struct {
	ListFunc           func(ctx context.Context, filter models.CarFilter) ([]*models.Car, error)
	ListPublicFunc     func(ctx context.Context, limit, offset int) ([]*models.Car, error)
	GetByIDFunc        func(ctx context.Context, id string) (*models.Car, error)
	CreateFunc         func(ctx context.Context, car *models.Car) (*models.Car, error)
	UpdateFunc         func(ctx context.Context, id string, car *models.Car) (*models.Car, error)
	SoftDeleteFunc     func(ctx context.Context, id string) (*models.Car, error)
	BulkSoftDeleteFunc func(ctx context.Context, ids []string) (int64, error)
	BulkSetStatusFunc  func(ctx context.Context, ids []string, status string) (int64, error)
	InventoryStatsFunc func(ctx context.Context) (*models.InventoryStats, error)
}

func (m *MockCarRepository) List(ctx context.Context, filter models.CarFilter) ([]*models.Car, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return []*models.Car{}, nil
}

func (m *MockCarRepository) ListPublic(ctx context.Context, limit, offset int) ([]*models.Car, error) {
	if m.ListPublicFunc != nil {
		return m.ListPublicFunc(ctx, limit, offset)
	}
	return []*models.Car{}, nil
}

func (m *MockCarRepository) GetByID(ctx context.Context, id string) (*models.Car, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockCarRepository) Create(ctx context.Context, car *models.Car) (*models.Car, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, car)
	}
	return car, nil
}

func (m *MockCarRepository) Update(ctx context.Context, id string, car *models.Car) (*models.Car, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, car)
	}
	return car, nil
}

func (m *MockCarRepository) SoftDelete(ctx context.Context, id string) (*models.Car, error) {
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockCarRepository) BulkSoftDelete(ctx context.Context, ids []string) (int64, error) {
	if m.BulkSoftDeleteFunc != nil {
		return m.BulkSoftDeleteFunc(ctx, ids)
	}
	return int64(len(ids)), nil
}

func (m *MockCarRepository) BulkSetStatus(ctx context.Context, ids []string, status string) (int64, error) {
	if m.BulkSetStatusFunc != nil {
		return m.BulkSetStatusFunc(ctx, ids, status)
	}
	return int64(len(ids)), nil
}

func (m *MockCarRepository) InventoryStats(ctx context.Context) (*models.InventoryStats, error) {
	if m.InventoryStatsFunc != nil {
		return m.InventoryStatsFunc(ctx)
	}
	return &models.InventoryStats{}, nil
}

// MockAnalyticsRepository implements AnalyticsRepository for testing
type MockAnalyticsRepository struct {
	RecordEventFunc func(ctx context.Context, ev *models.AnalyticsEvent) (*models.AnalyticsEvent, error)
	ListSinceFunc   func(ctx context.Context, since time.Time) ([]*models.AnalyticsEvent, error)
	CountSinceFunc  func(ctx context.Context, since time.Time) (*models.ClickTotals, error)
	DailyClicksFunc func(ctx context.Context, since time.Time, timezone string) ([]models.DailyClicks, error)
}

func (m *MockAnalyticsRepository) RecordEvent(ctx context.Context, ev *models.AnalyticsEvent) (*models.AnalyticsEvent, error) {
	if m.RecordEventFunc != nil {
		return m.RecordEventFunc(ctx, ev)
	}
	return ev, nil
}

func (m *MockAnalyticsRepository) ListSince(ctx context.Context, since time.Time) ([]*models.AnalyticsEvent, error) {
	if m.ListSinceFunc != nil {
		return m.ListSinceFunc(ctx, since)
	}
	return []*models.AnalyticsEvent{}, nil
}

func (m *MockAnalyticsRepository) CountSince(ctx context.Context, since time.Time) (*models.ClickTotals, error) {
	if m.CountSinceFunc != nil {
		return m.CountSinceFunc(ctx, since)
	}
	return &models.ClickTotals{}, nil
}

func (m *MockAnalyticsRepository) DailyClicks(ctx context.Context, since time.Time, timezone string) ([]models.DailyClicks, error) {
	if m.DailyClicksFunc != nil {
		return m.DailyClicksFunc(ctx, since, timezone)
	}
	return []models.DailyClicks{}, nil
}

// MockMessageRepository implements MessageRepository for testing
type MockMessageRepository struct {
	CreateFunc      func(ctx context.Context, m *models.Message) (*models.Message, error)
	ListFunc        func(ctx context.Context, unreadOnly bool, limit, offset int) ([]*models.Message, error)
	MarkReadFunc    func(ctx context.Context, id string) (*models.Message, error)
	DeleteFunc      func(ctx context.Context, id string) error
	CountUnreadFunc func(ctx context.Context) (int, error)
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, msg)
	}
	return msg, nil
}

func (m *MockMessageRepository) List(ctx context.Context, unreadOnly bool, limit, offset int) ([]*models.Message, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, unreadOnly, limit, offset)
	}
	return []*models.Message{}, nil
}

func (m *MockMessageRepository) MarkRead(ctx context.Context, id string) (*models.Message, error) {
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockMessageRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockMessageRepository) CountUnread(ctx context.Context) (int, error) {
	if m.CountUnreadFunc != nil {
		return m.CountUnreadFunc(ctx)
	}
	return 0, nil
}

// MockAdminLogRepository keeps created entries in memory.
type MockAdminLogRepository struct {
	mu      sync.Mutex
	Entries []*models.AdminLog
	Err     error
}

func (m *MockAdminLogRepository) Create(_ context.Context, log *models.AdminLog) (*models.AdminLog, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, log)
	return log, nil
}

func (m *MockAdminLogRepository) List(_ context.Context, action string, limit, offset int) ([]*models.AdminLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.AdminLog
	for _, e := range m.Entries {
		if action == "" || e.Action == action {
			out = append(out, e)
		}
	}
	return out, nil
}

// Actions returns the recorded actions in order.
func (m *MockAdminLogRepository) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		out = append(out, e.Action)
	}
	return out
}

// MockEmailService records notifications.
type MockEmailService struct {
	Sent chan *models.Message
	Err  error
}

func (m *MockEmailService) SendNewMessageNotification(_ context.Context, msg *models.Message) error {
	if m.Sent != nil {
		m.Sent <- msg
	}
	return m.Err
}
