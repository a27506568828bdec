package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Abdilito4-real/np/internal/analytics"
	"github.com/Abdilito4-real/np/internal/auth"
	"github.com/Abdilito4-real/np/internal/background"
	"github.com/Abdilito4-real/np/internal/console"
	"github.com/Abdilito4-real/np/internal/handlers"
	"github.com/Abdilito4-real/np/internal/metrics"
	"github.com/Abdilito4-real/np/internal/middleware"
	"github.com/Abdilito4-real/np/internal/models"
	"github.com/Abdilito4-real/np/internal/realtime"
	"github.com/Abdilito4-real/np/internal/services"
	"github.com/Abdilito4-real/np/internal/session"
	"github.com/Abdilito4-real/np/internal/store"
	pkgauth "github.com/Abdilito4-real/np/pkg/auth"
	pkghttp "github.com/Abdilito4-real/np/pkg/http"
	pkglogger "github.com/Abdilito4-real/np/pkg/logger"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminID       = "11111111-1111-1111-1111-111111111111"
	adminEmail    = "admin@example.com"
	adminPassword = "Str0ng!Passw0rd"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type emptyAnalytics struct{}

func (emptyAnalytics) MirrorSeed(context.Context) ([]analytics.CarClicks, []analytics.Event, error) {
	return nil, nil, nil
}

func (emptyAnalytics) Track(_ context.Context, in services.TrackInput, _ string) (*models.AnalyticsEvent, error) {
	return &models.AnalyticsEvent{CarID: in.CarID, EventType: in.EventType}, nil
}

func (emptyAnalytics) ExportRows(context.Context, map[string]analytics.Entry) ([]analytics.ExportRow, error) {
	return nil, nil
}

type noAdminLogs struct{}

func (noAdminLogs) Record(context.Context, string, string, models.LogDescription) {}

// testServer wires the real router, console registry and auth service over
// in-memory repositories.
type testServer struct {
	*httptest.Server
	revocations *services.MockTokenRevocationRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	hash, err := pkgauth.HashPassword(adminPassword)
	require.NoError(t, err)
	admin := &models.User{
		ID: adminID, Email: adminEmail, Name: "Admin", PasswordHash: hash,
		Role: models.RoleAdmin, Status: models.UserStatusActive,
	}
	users := &services.MockUserRepository{
		GetByIDFunc: func(_ context.Context, id string) (*models.User, error) {
			if id == adminID {
				return admin, nil
			}
			return nil, models.ErrNotFound
		},
		GetByEmailFunc: func(_ context.Context, email string) (*models.User, error) {
			if email == adminEmail {
				return admin, nil
			}
			return nil, models.ErrNotFound
		},
	}
	revocations := &services.MockTokenRevocationRepository{}

	logger := testLogger()
	reg := metrics.NewRegistry()
	m := metrics.New(reg)
	clock := quartz.NewMock(t)
	tm := auth.NewTokenManager("routes-test-secret-0123456789abcdef", time.Hour)
	authService := services.NewAuthService(users, revocations, tm, nil, logger, pkglogger.NewAuditLogger(logger))

	sessionCfg := session.DefaultConfig()
	sessionCfg.CheckInterval = time.Minute
	registry := console.NewRegistry(context.Background(), console.Deps{
		Auth:      authService,
		Analytics: emptyAnalytics{},
		AdminLogs: noAdminLogs{},
		Hub:       realtime.NewHub(logger, 16),
		Store:     store.NewMemoryStore(clock),
		Clock:     clock,
		Logger:    logger,
		Audit:     pkglogger.NewAuditLogger(logger),
		Metrics:   m,
		Session:   sessionCfg,
		Reset:     background.DailyResetConfig{CheckInterval: time.Hour, Window: 24 * time.Hour},
	})
	t.Cleanup(func() { registry.CloseAll(context.Background()) })

	ipConfig := &pkghttp.IPConfig{}
	h := Handlers{
		Health:   handlers.NewHealthHandler(map[string]handlers.Pinger{}, logger),
		Console:  handlers.NewConsoleHandler(registry, ipConfig, logger),
		Session:  handlers.NewSessionHandler(logger),
		Cars:     handlers.NewCarHandler(&handlers.MockCarService{}, logger),
		Tracking: handlers.NewTrackingHandler(&handlers.MockTracker{}, ipConfig, logger),
		Messages: handlers.NewMessageHandler(&handlers.MockMessageService{}, logger),
		Admin:    handlers.NewAdminHandler(&handlers.MockDashboardService{}, &handlers.MockAdminLogService{}, logger),
		Metrics:  metrics.Handler(reg),
	}
	router := NewRouter(Options{Env: "test", Logger: logger, Metrics: m}, h, Security{
		TokenManager: tm,
		Revocations:  revocations,
		Revocation:   auth.RevocationConfig{FailClosed: true},
		Users:        users,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, revocations: revocations}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestRouter_PublicRoutes(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))

	resp = s.do(t, http.MethodGet, "/cars", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/cars/22222222-2222-2222-2222-222222222222/views", nil, nil)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "automarket_http_requests_total"))
}

func TestRouter_AdminSessionFlow(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodPost, "/admin/consoles", nil, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	var opened handlers.OpenConsoleResponse
	decode(t, resp, &opened)
	consoleID := opened.ConsoleID

	// No token at all
	resp = s.do(t, http.MethodGet, "/admin/dashboard/stats", nil, map[string]string{"X-Console-ID": consoleID})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/admin/consoles/"+consoleID+"/login",
		handlers.LoginRequest{Email: adminEmail, Password: adminPassword}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login console.LoginResult
	decode(t, resp, &login)
	require.NotNil(t, login.Token)

	bearer := map[string]string{"Authorization": "Bearer " + login.Token.Token}
	withConsole := map[string]string{"Authorization": "Bearer " + login.Token.Token, "X-Console-ID": consoleID}

	resp = s.do(t, http.MethodGet, "/admin/dashboard/stats", nil, withConsole)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// A valid token is not enough without the console it belongs to.
	resp = s.do(t, http.MethodGet, "/admin/dashboard/stats", nil, bearer)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/admin/consoles/"+consoleID+"/session", nil, bearer)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status console.Status
	decode(t, resp, &status)
	assert.True(t, status.LoggedIn)

	resp = s.do(t, http.MethodGet, "/admin/consoles/"+consoleID+"/analytics", nil, bearer)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/admin/consoles/"+consoleID+"/logout", nil, bearer)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, s.revocations.Revoked, 1)

	// The revoked token is rejected before the console is consulted.
	resp = s.do(t, http.MethodGet, "/admin/dashboard/stats", nil, withConsole)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, "/admin/consoles/"+consoleID, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRouter_LoginErrors(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodPost, "/admin/consoles", nil, nil)
	var opened handlers.OpenConsoleResponse
	decode(t, resp, &opened)

	resp = s.do(t, http.MethodPost, "/admin/consoles/"+opened.ConsoleID+"/login",
		handlers.LoginRequest{Email: adminEmail, Password: "Wr0ng!Passw0rd"}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var errResp pkghttp.ErrorResponse
	decode(t, resp, &errResp)
	assert.Equal(t, "invalid_credentials", errResp.Error)
	assert.Equal(t, "Invalid email or password. (4 attempts remaining)", errResp.Message)

	resp = s.do(t, http.MethodPost, "/admin/consoles/unknown/login",
		handlers.LoginRequest{Email: adminEmail, Password: adminPassword}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func (s *testServer) openConsole(t *testing.T) string {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/admin/consoles", nil, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var opened handlers.OpenConsoleResponse
	decode(t, resp, &opened)
	return opened.ConsoleID
}

func TestRouter_CloseConsole(t *testing.T) {
	s := newTestServer(t)

	t.Run("logged out, no token", func(t *testing.T) {
		id := s.openConsole(t)
		resp := s.do(t, http.MethodDelete, "/admin/consoles/"+id, nil, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = s.do(t, http.MethodDelete, "/admin/consoles/"+id, nil, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("signed in, with token", func(t *testing.T) {
		id := s.openConsole(t)
		resp := s.do(t, http.MethodPost, "/admin/consoles/"+id+"/login",
			handlers.LoginRequest{Email: adminEmail, Password: adminPassword}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var login console.LoginResult
		decode(t, resp, &login)

		resp = s.do(t, http.MethodDelete, "/admin/consoles/"+id, nil,
			map[string]string{"Authorization": "Bearer " + login.Token.Token})
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		// Closing the tab signs the token out.
		resp = s.do(t, http.MethodGet, "/admin/dashboard/stats", nil, map[string]string{
			"Authorization": "Bearer " + login.Token.Token,
			"X-Console-ID":  id,
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestRouter_LoginLimitSpansConsoles(t *testing.T) {
	s := newTestServer(t)
	limit := middleware.LoginRateLimit().Requests

	for i := 0; i < limit; i++ {
		resp := s.do(t, http.MethodPost, "/admin/consoles/"+s.openConsole(t)+"/login",
			handlers.LoginRequest{Email: adminEmail, Password: "Wr0ng!Passw0rd"}, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "attempt %d", i+1)
	}

	resp := s.do(t, http.MethodPost, "/admin/consoles/"+s.openConsole(t)+"/login",
		handlers.LoginRequest{Email: adminEmail, Password: adminPassword}, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestRouter_ConsoleOpenIsRateLimited(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < middleware.ConsoleOpenRateLimit().Requests; i++ {
		s.openConsole(t)
	}
	resp := s.do(t, http.MethodPost, "/admin/consoles", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
