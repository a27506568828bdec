package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Abdilito4-real/np/internal/analytics"
	"github.com/Abdilito4-real/np/internal/auth"
	"github.com/Abdilito4-real/np/internal/background"
	"github.com/Abdilito4-real/np/internal/console"
	"github.com/Abdilito4-real/np/internal/metrics"
	"github.com/Abdilito4-real/np/internal/models"
	"github.com/Abdilito4-real/np/internal/realtime"
	"github.com/Abdilito4-real/np/internal/services"
	"github.com/Abdilito4-real/np/internal/session"
	"github.com/Abdilito4-real/np/internal/store"
	pkghttp "github.com/Abdilito4-real/np/pkg/http"
	pkglogger "github.com/Abdilito4-real/np/pkg/logger"
	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "admin@example.com"
	testPassword = "Str0ng!Passw0rd"
	testJTI      = "jti-1"
)

type stubAuthenticator struct{}

func (stubAuthenticator) Authenticate(_ context.Context, email, password string) (*services.AuthSession, error) {
	if email != testEmail || password != testPassword {
		return nil, models.ErrUnauthorized
	}
	return &services.AuthSession{
		User: &models.User{ID: testAdminID, Email: testEmail, Name: "Admin", Role: models.RoleAdmin, Status: models.UserStatusActive},
		Token: &auth.IssuedToken{
			Token:     "signed-token",
			JTI:       testJTI,
			UserID:    testAdminID,
			ExpiresAt: time.Now().Add(12 * time.Hour),
		},
	}, nil
}

func (stubAuthenticator) SignOut(context.Context, string, string) error { return nil }

type stubAnalytics struct{}

func (stubAnalytics) MirrorSeed(context.Context) ([]analytics.CarClicks, []analytics.Event, error) {
	return []analytics.CarClicks{{CarID: testCarID, DetailsClicks: 4, BuyClicks: 1}}, nil, nil
}

func (stubAnalytics) Track(_ context.Context, in services.TrackInput, _ string) (*models.AnalyticsEvent, error) {
	return &models.AnalyticsEvent{CarID: in.CarID, EventType: in.EventType, ClientEventID: in.ClientEventID}, nil
}

func (stubAnalytics) ExportRows(context.Context, map[string]analytics.Entry) ([]analytics.ExportRow, error) {
	return nil, nil
}

type discardAdminLogs struct{}

func (discardAdminLogs) Record(context.Context, string, string, models.LogDescription) {}

func newTestConsoleHandler(t *testing.T) (*ConsoleHandler, *console.Registry) {
	t.Helper()
	clock := quartz.NewMock(t)
	sessionCfg := session.DefaultConfig()
	sessionCfg.CheckInterval = time.Minute

	registry := console.NewRegistry(context.Background(), console.Deps{
		Auth:      stubAuthenticator{},
		Analytics: stubAnalytics{},
		AdminLogs: discardAdminLogs{},
		Hub:       realtime.NewHub(testLogger(), 16),
		Store:     store.NewMemoryStore(clock),
		Clock:     clock,
		Logger:    testLogger(),
		Audit:     pkglogger.NewAuditLogger(testLogger()),
		Metrics:   metrics.New(prometheus.NewRegistry()),
		Session:   sessionCfg,
		Reset:     background.DailyResetConfig{CheckInterval: time.Hour, Window: 24 * time.Hour},
	})
	t.Cleanup(func() { registry.CloseAll(context.Background()) })
	return NewConsoleHandler(registry, &pkghttp.IPConfig{}, testLogger()), registry
}

func openConsole(t *testing.T, h *ConsoleHandler) string {
	t.Helper()
	w := httptest.NewRecorder()
	h.Open(w, httptest.NewRequest(http.MethodPost, "/admin/consoles", nil))

	var resp OpenConsoleResponse
	AssertJSONResponse(t, w, http.StatusCreated, &resp)
	require.NotEmpty(t, resp.ConsoleID)
	assert.False(t, resp.Status.LoggedIn)
	return resp.ConsoleID
}

func loginRequest(t *testing.T, consoleID string, body LoginRequest) *http.Request {
	req := NewTestRequest(t, http.MethodPost, "/admin/consoles/"+consoleID+"/login", body)
	return WithChiRouteContext(req, map[string]string{"consoleID": consoleID})
}

func TestConsoleHandler_Login(t *testing.T) {
	h, _ := newTestConsoleHandler(t)
	id := openConsole(t, h)

	w := httptest.NewRecorder()
	h.Login(w, loginRequest(t, id, LoginRequest{Email: testEmail, Password: testPassword}))

	var res console.LoginResult
	AssertJSONResponse(t, w, http.StatusOK, &res)
	assert.Equal(t, id, res.ConsoleID)
	assert.Equal(t, console.MsgLoginSuccess, res.Message)
	assert.Equal(t, testAdminID, res.Admin.ID)
	require.NotNil(t, res.Token)
	assert.Equal(t, "signed-token", res.Token.Token)
}

func TestConsoleHandler_Login_Failures(t *testing.T) {
	h, _ := newTestConsoleHandler(t)
	id := openConsole(t, h)

	t.Run("missing fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Login(w, loginRequest(t, id, LoginRequest{Email: testEmail}))
		resp := AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
		assert.Equal(t, console.MsgMissingCredentials, resp.Message)
	})

	t.Run("weak password checklist", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Login(w, loginRequest(t, id, LoginRequest{Email: "not-an-email", Password: "short"}))
		resp := AssertErrorResponse(t, w, http.StatusBadRequest, "invalid_credentials_format")
		fields, ok := resp.Fields.(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "password")
	})

	t.Run("wrong password counts down then locks", func(t *testing.T) {
		for remaining := 4; remaining >= 1; remaining-- {
			w := httptest.NewRecorder()
			h.Login(w, loginRequest(t, id, LoginRequest{Email: testEmail, Password: "Wr0ng!Passw0rd"}))
			resp := AssertErrorResponse(t, w, http.StatusUnauthorized, "invalid_credentials")
			fields := resp.Fields.(map[string]interface{})
			assert.Equal(t, float64(remaining), fields["attempts_remaining"])
		}

		w := httptest.NewRecorder()
		h.Login(w, loginRequest(t, id, LoginRequest{Email: testEmail, Password: "Wr0ng!Passw0rd"}))
		AssertErrorResponse(t, w, http.StatusLocked, "account_locked")

		w = httptest.NewRecorder()
		h.Login(w, loginRequest(t, id, LoginRequest{Email: testEmail, Password: testPassword}))
		resp := AssertErrorResponse(t, w, http.StatusLocked, "account_locked")
		assert.Contains(t, resp.Message, "Try again in 15 minutes")
	})

	t.Run("unknown console", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Login(w, loginRequest(t, "missing", LoginRequest{Email: testEmail, Password: testPassword}))
		AssertErrorResponse(t, w, http.StatusNotFound, "console_not_found")
	})
}

func TestConsoleHandler_RequireSession(t *testing.T) {
	h, registry := newTestConsoleHandler(t)
	id := openConsole(t, h)

	var reached bool
	protected := h.RequireSession(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = consoleFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusOK)
	}))

	request := func(consoleID, jti string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin/dashboard/stats", nil)
		req.Header.Set("X-Console-ID", consoleID)
		req = WithAuthContext(req, testAdminID, jti)
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)
		return w
	}

	t.Run("logged out console", func(t *testing.T) {
		w := request(id, testJTI)
		AssertErrorResponse(t, w, http.StatusUnauthorized, "session_not_active")
	})

	w := httptest.NewRecorder()
	h.Login(w, loginRequest(t, id, LoginRequest{Email: testEmail, Password: testPassword}))
	require.Equal(t, http.StatusOK, w.Code)

	t.Run("token of another session", func(t *testing.T) {
		w := request(id, "jti-other")
		AssertErrorResponse(t, w, http.StatusUnauthorized, "session_not_active")
	})

	t.Run("missing console id", func(t *testing.T) {
		w := request("", testJTI)
		AssertErrorResponse(t, w, http.StatusUnauthorized, "session_not_active")
	})

	t.Run("live session", func(t *testing.T) {
		w := request(id, testJTI)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, reached)
	})

	t.Run("logout ends the session", func(t *testing.T) {
		c, err := registry.Get(id)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/admin/consoles/"+id+"/logout", nil)
		req = req.WithContext(context.WithValue(req.Context(), consoleContextKey{}, c))
		w := httptest.NewRecorder()
		h.Logout(w, req)

		var resp LogoutResponse
		AssertJSONResponse(t, w, http.StatusOK, &resp)
		assert.Equal(t, console.MsgLoggedOut, resp.Message)

		w = request(id, testJTI)
		AssertErrorResponse(t, w, http.StatusUnauthorized, "session_not_active")
	})
}

func TestConsoleHandler_NotificationsAndClose(t *testing.T) {
	h, registry := newTestConsoleHandler(t)
	id := openConsole(t, h)
	params := map[string]string{"consoleID": id}

	w := httptest.NewRecorder()
	h.Login(w, loginRequest(t, id, LoginRequest{Email: testEmail, Password: testPassword}))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.Notifications(w, WithChiRouteContext(httptest.NewRequest(http.MethodGet, "/", nil), params))
	var notes []console.Notification
	AssertJSONResponse(t, w, http.StatusOK, &notes)
	var toasts []string
	for _, n := range notes {
		if n.Kind == console.KindToast {
			toasts = append(toasts, n.Message)
		}
	}
	assert.Contains(t, toasts, console.MsgLoginSuccess)

	w = httptest.NewRecorder()
	h.Close(w, WithChiRouteContext(httptest.NewRequest(http.MethodDelete, "/", nil), params))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, registry.Len())

	w = httptest.NewRecorder()
	h.Close(w, WithChiRouteContext(httptest.NewRequest(http.MethodDelete, "/", nil), params))
	AssertErrorResponse(t, w, http.StatusNotFound, "console_not_found")
}
