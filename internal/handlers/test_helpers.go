package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Abdilito4-real/np/internal/auth"
	"github.com/Abdilito4-real/np/internal/models"
	"github.com/Abdilito4-real/np/internal/services"
	pkghttp "github.com/Abdilito4-real/np/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds admin token claims to the request context
func WithAuthContext(req *http.Request, userID, jti string) *http.Request {
	claims := &models.TokenClaims{
		UserID: userID,
		Type:   auth.TokenTypeAccess,
		Role:   models.RoleAdmin,
	}
	claims.ID = jti
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// WithChiRouteContext adds chi URL parameters to request context for testing
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// MockCarService implements CarServiceInterface for testing
type MockCarService struct {
	ListPublicFunc    func(ctx context.Context, limit, offset int) ([]*models.Car, error)
	ListFunc          func(ctx context.Context, filter models.CarFilter) ([]*models.Car, error)
	GetFunc           func(ctx context.Context, id string) (*models.Car, error)
	CreateFunc        func(ctx context.Context, adminID string, car *models.Car) (*models.Car, error)
	UpdateFunc        func(ctx context.Context, adminID, id string, car *models.Car) (*models.Car, error)
	DeleteFunc        func(ctx context.Context, adminID, id string) error
	BulkDeleteFunc    func(ctx context.Context, adminID string, ids []string) (int64, error)
	BulkSetStatusFunc func(ctx context.Context, adminID string, ids []string, status string) (int64, error)
}

func (m *MockCarService) ListPublic(ctx context.Context, limit, offset int) ([]*models.Car, error) {
	if m.ListPublicFunc == nil {
		return []*models.Car{}, nil
	}
	return m.ListPublicFunc(ctx, limit, offset)
}

func (m *MockCarService) List(ctx context.Context, filter models.CarFilter) ([]*models.Car, error) {
	if m.ListFunc == nil {
		return []*models.Car{}, nil
	}
	return m.ListFunc(ctx, filter)
}

func (m *MockCarService) Get(ctx context.Context, id string) (*models.Car, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, id)
}

func (m *MockCarService) Create(ctx context.Context, adminID string, car *models.Car) (*models.Car, error) {
	if m.CreateFunc == nil {
		return car, nil
	}
	return m.CreateFunc(ctx, adminID, car)
}

func (m *MockCarService) Update(ctx context.Context, adminID, id string, car *models.Car) (*models.Car, error) {
	if m.UpdateFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateFunc(ctx, adminID, id, car)
}

func (m *MockCarService) Delete(ctx context.Context, adminID, id string) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, adminID, id)
}

func (m *MockCarService) BulkDelete(ctx context.Context, adminID string, ids []string) (int64, error) {
	if m.BulkDeleteFunc == nil {
		return int64(len(ids)), nil
	}
	return m.BulkDeleteFunc(ctx, adminID, ids)
}

func (m *MockCarService) BulkSetStatus(ctx context.Context, adminID string, ids []string, status string) (int64, error) {
	if m.BulkSetStatusFunc == nil {
		return int64(len(ids)), nil
	}
	return m.BulkSetStatusFunc(ctx, adminID, ids, status)
}

// MockMessageService implements MessageServiceInterface for testing
type MockMessageService struct {
	SubmitFunc   func(ctx context.Context, m *models.Message) (*models.Message, error)
	ListFunc     func(ctx context.Context, unreadOnly bool, limit, offset int) ([]*models.Message, error)
	MarkReadFunc func(ctx context.Context, id string) (*models.Message, error)
	DeleteFunc   func(ctx context.Context, adminID, id string) error
}

func (m *MockMessageService) Submit(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if m.SubmitFunc == nil {
		return msg, nil
	}
	return m.SubmitFunc(ctx, msg)
}

func (m *MockMessageService) List(ctx context.Context, unreadOnly bool, limit, offset int) ([]*models.Message, error) {
	if m.ListFunc == nil {
		return []*models.Message{}, nil
	}
	return m.ListFunc(ctx, unreadOnly, limit, offset)
}

func (m *MockMessageService) MarkRead(ctx context.Context, id string) (*models.Message, error) {
	if m.MarkReadFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.MarkReadFunc(ctx, id)
}

func (m *MockMessageService) Delete(ctx context.Context, adminID, id string) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, adminID, id)
}

// MockDashboardService implements DashboardServiceInterface for testing
type MockDashboardService struct {
	DashboardStatsFunc func(ctx context.Context) (*models.DashboardStats, error)
	ChartFunc          func(ctx context.Context, rangeKey string) ([]models.DailyClicks, error)
}

func (m *MockDashboardService) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	if m.DashboardStatsFunc == nil {
		return &models.DashboardStats{}, nil
	}
	return m.DashboardStatsFunc(ctx)
}

func (m *MockDashboardService) Chart(ctx context.Context, rangeKey string) ([]models.DailyClicks, error) {
	if m.ChartFunc == nil {
		return []models.DailyClicks{}, nil
	}
	return m.ChartFunc(ctx, rangeKey)
}

// MockAdminLogService implements AdminLogServiceInterface for testing
type MockAdminLogService struct {
	ListFunc func(ctx context.Context, action string, limit, offset int) ([]*models.AdminLog, error)
}

func (m *MockAdminLogService) List(ctx context.Context, action string, limit, offset int) ([]*models.AdminLog, error) {
	if m.ListFunc == nil {
		return []*models.AdminLog{}, nil
	}
	return m.ListFunc(ctx, action, limit, offset)
}

// MockTracker implements Tracker for testing
type MockTracker struct {
	TrackFunc func(ctx context.Context, in services.TrackInput, source string) (*models.AnalyticsEvent, error)
}

func (m *MockTracker) Track(ctx context.Context, in services.TrackInput, source string) (*models.AnalyticsEvent, error) {
	if m.TrackFunc == nil {
		return &models.AnalyticsEvent{ID: "event-1", CarID: in.CarID, EventType: in.EventType, ClientEventID: in.ClientEventID}, nil
	}
	return m.TrackFunc(ctx, in, source)
}
