// Package console holds the per-tab admin console: the lockout and
// inactivity guard, the analytics mirror, the daily reset scheduler and the
// realtime subscriptions of one signed-in admin.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/Abdilito4-real/np/internal/analytics"
	"github.com/Abdilito4-real/np/internal/auth"
	"github.com/Abdilito4-real/np/internal/background"
	"github.com/Abdilito4-real/np/internal/metrics"
	"github.com/Abdilito4-real/np/internal/models"
	"github.com/Abdilito4-real/np/internal/realtime"
	"github.com/Abdilito4-real/np/internal/services"
	"github.com/Abdilito4-real/np/internal/session"
	"github.com/Abdilito4-real/np/internal/store"
	pkgauth "github.com/Abdilito4-real/np/pkg/auth"
	pkglogger "github.com/Abdilito4-real/np/pkg/logger"
	"github.com/coder/quartz"
	"github.com/google/uuid"
)

// SessionActiveKey marks a tab whose admin session is still live.
const SessionActiveKey = "session_active"

// Messages shown on the login form and the dashboard.
const (
	MsgMissingCredentials = "Please enter both email and password."
	MsgNotAdmin           = "Access denied: Admin privileges required."
	MsgLoginSuccess       = "✓ Authentication successful. Loading dashboard..."
	MsgLoggedOut          = "✓ Logged out successfully!"
	MsgSessionExpired     = "Session expired due to inactivity. Please log in again."
	MsgSessionExtended    = "Session extended."
	MsgStatsReset         = "Daily stats have been reset"
	MsgNewMessage         = "New message received!"
	MsgDashboardLoaded    = "Dashboard loaded successfully!"
	MsgDashboardFailed    = "Could not load dashboard stats."
)

// Authenticator is the backend authentication contract.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*services.AuthSession, error)
	SignOut(ctx context.Context, token, reason string) error
}

// AnalyticsSource seeds the mirror and persists locally originated events.
type AnalyticsSource interface {
	MirrorSeed(ctx context.Context) ([]analytics.CarClicks, []analytics.Event, error)
	Track(ctx context.Context, in services.TrackInput, source string) (*models.AnalyticsEvent, error)
	ExportRows(ctx context.Context, snapshot map[string]analytics.Entry) ([]analytics.ExportRow, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, adminID, action string, description models.LogDescription)
}

// Deps are shared by every console of a Registry.
type Deps struct {
	Auth      Authenticator
	Analytics AnalyticsSource
	AdminLogs AuditRecorder
	Hub       *realtime.Hub
	Store     store.Store
	Clock     quartz.Clock
	Logger    *slog.Logger
	Audit     *pkglogger.AuditLogger
	Metrics   *metrics.Metrics

	Session   session.Config
	Reset     background.DailyResetConfig
	Mirror    analytics.Options
	InboxSize int
	// MaxConsoles caps open consoles. Zero means no cap.
	MaxConsoles int
}

// LoginInput is one submission of the login form.
type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// LoginError is a rejected login with the message the form displays.
type LoginError struct {
	Err               error
	Message           string
	AttemptsRemaining int
	LockoutRemaining  time.Duration
}

func (e *LoginError) Error() string { return e.Message }
func (e *LoginError) Unwrap() error { return e.Err }

// Admin is the signed-in user as the dashboard shows it.
type Admin struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type LoginResult struct {
	ConsoleID string            `json:"console_id"`
	Message   string            `json:"message"`
	Admin     Admin             `json:"admin"`
	Token     *auth.IssuedToken `json:"token"`
	Session   session.Status    `json:"session"`
}

// Lockout is the login form's view of the failed attempt counter.
type Lockout struct {
	Locked            bool          `json:"locked"`
	Remaining         time.Duration `json:"remaining_ns"`
	AttemptsRemaining int           `json:"attempts_remaining"`
}

type Status struct {
	ConsoleID string         `json:"console_id"`
	LoggedIn  bool           `json:"logged_in"`
	Admin     *Admin         `json:"admin,omitempty"`
	Session   session.Status `json:"session"`
	Lockout   Lockout        `json:"lockout"`
}

// AnalyticsView is the mirror as the dashboard table renders it.
type AnalyticsView struct {
	Mode      analytics.DedupMode        `json:"mode"`
	Entries   map[string]analytics.Entry `json:"entries"`
	Totals    analytics.Entry            `json:"totals"`
	LastReset *time.Time                 `json:"last_reset,omitempty"`
}

// TrackResult reports what happened to an optimistic local event.
type TrackResult struct {
	ClientEventID string          `json:"client_event_id"`
	Applied       bool            `json:"applied"`
	Persisted     bool            `json:"persisted"`
	Entry         analytics.Entry `json:"entry"`
}

// Console is one browser tab of the admin dashboard.
type Console struct {
	id     string
	deps   Deps
	logger *slog.Logger
	tab    *store.Namespaced
	guard  *session.Guard
	mirror *analytics.Mirror
	inbox  *Inbox

	// lifetime of the console; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	loginMu sync.Mutex

	mu        sync.Mutex
	user      *models.User
	token     *auth.IssuedToken
	started   time.Time
	scheduler *background.DailyResetScheduler
	subs      []*realtime.Subscription
	lastSeen  time.Time
	closed    bool

	subWG sync.WaitGroup
}

func newConsole(parent context.Context, id string, deps Deps) *Console {
	ctx, cancel := context.WithCancel(parent)
	c := &Console{
		id:       id,
		deps:     deps,
		logger:   deps.Logger.With(slog.String("console_id", id)),
		tab:      store.Namespace(deps.Store, "tab:"+id+":"),
		inbox:    NewInbox(deps.InboxSize),
		ctx:      ctx,
		cancel:   cancel,
		lastSeen: deps.Clock.Now(),
	}

	mirrorOpts := deps.Mirror
	mirrorOpts.Observer = c.rowUpdated
	mirrorOpts.Clock = deps.Clock
	c.mirror = analytics.NewMirror(mirrorOpts)

	c.guard = session.NewGuard(deps.Session, deps.Clock, c.logger, session.Hooks{
		OnLockout: c.lockedOut,
		OnWarning: c.warn,
		OnExpired: c.expired,
	})
	return c
}

func (c *Console) ID() string { return c.id }

func (c *Console) touch() {
	c.mu.Lock()
	c.lastSeen = c.deps.Clock.Now()
	c.mu.Unlock()
}

func (c *Console) idleSince() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen, c.user != nil
}

func (c *Console) notify(kind Kind, level Level, msg string) {
	c.inbox.Push(Notification{Kind: kind, Level: level, Message: msg, At: c.deps.Clock.Now()})
}

// Notifications drains the inbox.
func (c *Console) Notifications() []Notification {
	c.touch()
	return c.inbox.Drain()
}

// Authorize checks that the token belongs to this console's live session.
func (c *Console) Authorize(claims *models.TokenClaims) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil || c.token == nil || claims == nil {
		return models.ErrSessionNotActive
	}
	if c.token.JTI != claims.ID || c.user.ID != claims.UserID {
		return models.ErrSessionNotActive
	}
	return nil
}

// CheckLiveness signs out a backend session left over from a previous tab
// life when this tab holds no live session flag.
func (c *Console) CheckLiveness(ctx context.Context, priorToken string) error {
	if priorToken == "" {
		return nil
	}
	_, err := c.tab.Get(ctx, SessionActiveKey)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrMiss) {
		return fmt.Errorf("read session flag: %w", err)
	}

	if err := c.deps.Auth.SignOut(ctx, priorToken, "session_not_active"); err != nil {
		c.logger.Warn("failed to sign out stale session", slog.Any("error", err))
		return nil
	}
	c.deps.Audit.LogSessionEvent("stale_session_signed_out", c.id, "", nil)
	return nil
}

func ceilMinutes(d time.Duration) int {
	return int(math.Ceil(d.Minutes()))
}

func (c *Console) lockoutError() *LoginError {
	remaining := c.guard.LockoutRemaining()
	return &LoginError{
		Err:              models.ErrAccountLocked,
		Message:          fmt.Sprintf("Too many failed attempts. Try again in %d minutes.", ceilMinutes(remaining)),
		LockoutRemaining: remaining,
	}
}

// Login runs the lockout check, the credential gate and the backend
// authentication in that order, then brings up the dashboard.
func (c *Console) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if !c.loginMu.TryLock() {
		return nil, models.ErrOperationInProgress
	}
	defer c.loginMu.Unlock()
	c.touch()

	c.mu.Lock()
	loggedIn, closed := c.user != nil, c.closed
	c.mu.Unlock()
	if closed {
		return nil, models.ErrConsoleNotFound
	}
	if loggedIn {
		return nil, models.ErrConflict
	}

	if c.guard.IsLockedOut() {
		c.deps.Metrics.LoginAttempts.WithLabelValues(metrics.LoginLocked).Inc()
		return nil, c.lockoutError()
	}

	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, &LoginError{Err: models.ErrBadRequest, Message: MsgMissingCredentials}
	}
	if err := pkgauth.CheckCredentials(email, in.Password); err != nil {
		return nil, err
	}

	sess, err := c.deps.Auth.Authenticate(ctx, email, in.Password)
	if err != nil {
		return nil, c.loginFailed(email, in, err)
	}

	return c.loginSucceeded(ctx, sess, in)
}

func (c *Console) loginFailed(email string, in LoginInput, err error) error {
	switch {
	case errors.Is(err, models.ErrNotAdmin):
		c.deps.Metrics.LoginAttempts.WithLabelValues(metrics.LoginNotAdmin).Inc()
		return &LoginError{Err: models.ErrNotAdmin, Message: MsgNotAdmin}
	case errors.Is(err, models.ErrUnauthorized), errors.Is(err, models.ErrAccountDisabled):
	default:
		return err
	}

	c.deps.Metrics.LoginAttempts.WithLabelValues(metrics.LoginRejected).Inc()
	c.deps.Audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "console_login_failed",
		ConsoleID:     c.id,
		Email:         email,
		IPAddress:     in.IPAddress,
		FailureReason: err.Error(),
	})

	if c.guard.RecordFailedAttempt() {
		return &LoginError{
			Err:              models.ErrAccountLocked,
			Message:          fmt.Sprintf("Account locked. Too many failed attempts. Try again in %d minutes.", ceilMinutes(c.guard.Config().LockoutDuration)),
			LockoutRemaining: c.guard.LockoutRemaining(),
		}
	}

	left := c.guard.AttemptsRemaining()
	return &LoginError{
		Err:               models.ErrUnauthorized,
		Message:           fmt.Sprintf("Invalid email or password. (%d attempts remaining)", left),
		AttemptsRemaining: left,
	}
}

func (c *Console) loginSucceeded(ctx context.Context, sess *services.AuthSession, in LoginInput) (*LoginResult, error) {
	user := sess.User
	c.guard.ResetAttempts()

	cfg := c.guard.Config()
	if err := c.tab.Set(ctx, SessionActiveKey, user.ID, cfg.SessionTimeout+cfg.LockoutDuration); err != nil {
		c.logger.Error("failed to mark session active", slog.Any("error", err))
		if serr := c.deps.Auth.SignOut(context.WithoutCancel(ctx), sess.Token.Token, "login_aborted"); serr != nil {
			c.logger.Warn("failed to sign out aborted login", slog.Any("error", serr))
		}
		return nil, models.ErrInternalServer
	}

	scheduler := background.NewDailyResetScheduler(
		c.deps.Reset,
		c.deps.Clock,
		store.Namespace(c.deps.Store, "admin:"+user.ID+":"),
		c.mirror,
		c.logger,
		c.statsReset,
	)

	c.mu.Lock()
	c.user = user
	c.token = sess.Token
	c.started = c.deps.Clock.Now()
	c.scheduler = scheduler
	c.mu.Unlock()

	c.deps.Metrics.LoginAttempts.WithLabelValues(metrics.LoginSuccess).Inc()
	c.deps.AdminLogs.Record(ctx, user.ID, models.AdminActionLogin, models.LogDescription{
		"email":      user.Email,
		"console_id": c.id,
		"ip_address": in.IPAddress,
		"user_agent": in.UserAgent,
	})
	c.deps.Audit.LogSessionEvent("session_started", c.id, user.ID, nil)

	c.guard.StartSession(c.ctx)
	c.notify(KindToast, LevelSuccess, MsgLoginSuccess)

	if err := c.Reload(ctx); err != nil {
		c.logger.Error("failed to load dashboard", slog.Any("error", err))
		c.notify(KindToast, LevelError, MsgDashboardFailed)
	} else {
		c.notify(KindToast, LevelSuccess, MsgDashboardLoaded)
	}

	c.subscribe()
	scheduler.Start(c.ctx)

	return &LoginResult{
		ConsoleID: c.id,
		Message:   MsgLoginSuccess,
		Admin:     Admin{ID: user.ID, Email: user.Email, Name: user.Name},
		Token:     sess.Token,
		Session:   c.guard.Status(),
	}, nil
}

func (c *Console) subscribe() {
	events := c.deps.Hub.Subscribe("analytics", realtime.ChangeInsert)
	messages := c.deps.Hub.Subscribe("messages")

	c.mu.Lock()
	c.subs = []*realtime.Subscription{events, messages}
	c.mu.Unlock()

	c.subWG.Add(2)
	go func() {
		defer c.subWG.Done()
		for ch := range events.C {
			c.remoteEvent(ch)
		}
	}()
	go func() {
		defer c.subWG.Done()
		for ch := range messages.C {
			c.messageChanged(ch)
		}
	}()
}

func (c *Console) remoteEvent(ch realtime.Change) {
	rec, err := realtime.DecodeRecord[models.AnalyticsEvent](ch)
	if err != nil {
		c.logger.Warn("dropping undecodable analytics change", slog.Any("error", err))
		return
	}

	applied, err := c.mirror.ApplyRemoteEvent(analytics.EventFromModel(&rec))
	if err != nil {
		c.logger.Warn("rejected remote analytics event", slog.String("car_id", rec.CarID), slog.Any("error", err))
		c.deps.Metrics.AnalyticsEvents.WithLabelValues(rec.EventType, metrics.SourceRemote, metrics.ResultFailed).Inc()
		return
	}
	if !applied {
		c.deps.Metrics.AnalyticsEvents.WithLabelValues(rec.EventType, metrics.SourceRemote, metrics.ResultSuppressed).Inc()
		return
	}

	c.deps.Metrics.AnalyticsEvents.WithLabelValues(rec.EventType, metrics.SourceRemote, metrics.ResultApplied).Inc()
	c.inbox.Push(Notification{
		Kind:    KindToast,
		Level:   LevelInfo,
		Message: fmt.Sprintf("New %s on a car!", strings.ReplaceAll(rec.EventType, "_", " ")),
		CarID:   rec.CarID,
		At:      c.deps.Clock.Now(),
	})
}

func (c *Console) messageChanged(ch realtime.Change) {
	if strings.EqualFold(ch.Type, realtime.ChangeInsert) {
		c.notify(KindMessageReceived, LevelInfo, MsgNewMessage)
		return
	}
	c.notify(KindMessagesChanged, LevelInfo, "")
}

func (c *Console) rowUpdated(carID string, e analytics.Entry) {
	if carID == "" {
		return
	}
	c.inbox.Push(Notification{Kind: KindRowUpdated, Level: LevelInfo, CarID: carID, Entry: &e, At: c.deps.Clock.Now()})
}

func (c *Console) statsReset(ctx context.Context, at time.Time) {
	c.deps.Metrics.DailyResets.Inc()
	c.notify(KindStatsReset, LevelInfo, MsgStatsReset)

	c.mu.Lock()
	var adminID string
	if c.user != nil {
		adminID = c.user.ID
	}
	c.mu.Unlock()
	c.deps.AdminLogs.Record(ctx, adminID, models.AdminActionDailyReset, models.LogDescription{
		"console_id": c.id,
		"reset_at":   at.UTC().Format(time.RFC3339),
	})
}

func (c *Console) lockedOut(attempts int) {
	c.deps.Metrics.Lockouts.Inc()
	c.deps.Audit.LogLockout(c.id, attempts)
	c.deps.AdminLogs.Record(c.ctx, "", models.AdminActionLockout, models.LogDescription{
		"console_id": c.id,
		"attempts":   attempts,
	})
}

func (c *Console) warn(remaining time.Duration) {
	c.notify(KindSessionWarning, LevelWarning,
		fmt.Sprintf("Your session will expire in %s due to inactivity.", formatWarning(remaining)))
}

// formatWarning renders the warning countdown as M:SS.
func formatWarning(d time.Duration) string {
	total := int(d.Round(time.Second) / time.Second)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func (c *Console) expired() {
	c.deps.Metrics.SessionExpirations.Inc()
	if err := c.Logout(c.ctx, "expired"); err != nil && !errors.Is(err, models.ErrSessionNotActive) {
		c.logger.Error("forced logout failed", slog.Any("error", err))
	}
	c.notify(KindSessionExpired, LevelWarning, MsgSessionExpired)
}

// Logout tears down the local session before signing out of the backend,
// so a failed sign-out never leaves the dashboard live.
func (c *Console) Logout(ctx context.Context, reason string) error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	c.mu.Lock()
	user, token, started := c.user, c.token, c.started
	if user == nil {
		c.mu.Unlock()
		return models.ErrSessionNotActive
	}
	scheduler, subs := c.scheduler, c.subs
	c.user, c.token, c.scheduler, c.subs = nil, nil, nil, nil
	c.lastSeen = c.deps.Clock.Now()
	c.mu.Unlock()

	c.guard.EndSession()
	if scheduler != nil {
		scheduler.Stop()
	}
	for _, s := range subs {
		s.Close()
	}
	c.subWG.Wait()

	duration := c.deps.Clock.Since(started)
	c.deps.AdminLogs.Record(ctx, user.ID, models.AdminActionLogout, models.NewLogoutDescription(user.Email, reason, duration))
	c.deps.Audit.LogSessionEvent("session_ended", c.id, user.ID, map[string]string{"reason": reason})

	if err := c.tab.Delete(ctx, SessionActiveKey); err != nil {
		c.logger.Error("failed to clear session flag", slog.Any("error", err))
	}
	c.mirror.Clear()

	if err := c.deps.Auth.SignOut(ctx, token.Token, reason); err != nil {
		c.logger.Warn("backend sign-out failed", slog.String("user_id", user.ID), slog.Any("error", err))
	}

	if reason != "expired" {
		c.notify(KindToast, LevelSuccess, MsgLoggedOut)
	}
	return nil
}

// Close is the tab going away: log out if needed and forget the tab state.
func (c *Console) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if err := c.Logout(ctx, "tab_closed"); err != nil && !errors.Is(err, models.ErrSessionNotActive) {
		c.logger.Error("logout on close failed", slog.Any("error", err))
	}
	c.cancel()

	if err := c.tab.Clear(ctx); err != nil {
		return fmt.Errorf("clear tab store: %w", err)
	}
	return nil
}

func (c *Console) Status() Status {
	c.touch()
	c.mu.Lock()
	st := Status{ConsoleID: c.id}
	if c.user != nil {
		st.LoggedIn = true
		st.Admin = &Admin{ID: c.user.ID, Email: c.user.Email, Name: c.user.Name}
	}
	c.mu.Unlock()

	st.Session = c.guard.Status()
	st.Lockout = Lockout{
		Locked:            c.guard.IsLockedOut(),
		Remaining:         c.guard.LockoutRemaining(),
		AttemptsRemaining: c.guard.AttemptsRemaining(),
	}
	return st
}

func (c *Console) requireSession() (*models.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil, models.ErrSessionNotActive
	}
	return c.user, nil
}

// RecordActivity resets the inactivity timer unless the warning is showing,
// in which case only an explicit Extend keeps the session alive.
func (c *Console) RecordActivity(ctx context.Context) (session.Status, error) {
	c.touch()
	if _, err := c.requireSession(); err != nil {
		return session.Status{}, err
	}
	if c.guard.RecordActivity() {
		c.refreshFlag(ctx)
	}
	return c.guard.Status(), nil
}

func (c *Console) Extend(ctx context.Context) (session.Status, error) {
	c.touch()
	if _, err := c.requireSession(); err != nil {
		return session.Status{}, err
	}
	c.guard.ExtendSession()
	c.refreshFlag(ctx)
	c.notify(KindToast, LevelSuccess, MsgSessionExtended)
	return c.guard.Status(), nil
}

func (c *Console) refreshFlag(ctx context.Context) {
	c.mu.Lock()
	user := c.user
	c.mu.Unlock()
	if user == nil {
		return
	}
	cfg := c.guard.Config()
	if err := c.tab.Set(ctx, SessionActiveKey, user.ID, cfg.SessionTimeout+cfg.LockoutDuration); err != nil {
		c.logger.Warn("failed to refresh session flag", slog.Any("error", err))
	}
}

// Reload rebuilds the mirror from the database.
func (c *Console) Reload(ctx context.Context) error {
	clicks, today, err := c.deps.Analytics.MirrorSeed(ctx)
	if err != nil {
		return err
	}
	c.mirror.BulkLoad(clicks, today)
	return nil
}

func (c *Console) Analytics(ctx context.Context) (*AnalyticsView, error) {
	c.touch()
	c.mu.Lock()
	scheduler := c.scheduler
	c.mu.Unlock()
	if scheduler == nil {
		return nil, models.ErrSessionNotActive
	}

	view := &AnalyticsView{
		Mode:    c.mirror.Mode(),
		Entries: c.mirror.Snapshot(),
		Totals:  c.mirror.Totals(),
	}
	last, ok, err := scheduler.LastReset(ctx)
	if err != nil {
		c.logger.Warn("failed to read last reset marker", slog.Any("error", err))
	} else if ok {
		view.LastReset = &last
	}
	return view, nil
}

// TrackLocal applies a dashboard-originated event to the mirror at once and
// then persists it. A persistence failure is logged, never rolled back.
func (c *Console) TrackLocal(ctx context.Context, carID, eventType string) (*TrackResult, error) {
	c.touch()
	if _, err := c.requireSession(); err != nil {
		return nil, err
	}

	ev := analytics.Event{CarID: carID, EventType: eventType, ClientEventID: uuid.NewString()}
	applied, err := c.mirror.ApplyLocalEvent(ev)
	if err != nil {
		return nil, err
	}

	res := &TrackResult{ClientEventID: ev.ClientEventID, Applied: applied}
	if _, err := c.deps.Analytics.Track(ctx, services.TrackInput{
		CarID:         carID,
		EventType:     eventType,
		ClientEventID: ev.ClientEventID,
	}, metrics.SourceLocal); err != nil {
		c.logger.Error("failed to persist local analytics event",
			slog.String("car_id", carID), slog.String("event_type", eventType), slog.Any("error", err))
	} else {
		res.Persisted = true
	}

	res.Entry, _ = c.mirror.Get(carID)
	return res, nil
}

// Export writes the mirror as an XLSX workbook.
func (c *Console) Export(ctx context.Context, w io.Writer) error {
	c.touch()
	if _, err := c.requireSession(); err != nil {
		return err
	}
	rows, err := c.deps.Analytics.ExportRows(ctx, c.mirror.Snapshot())
	if err != nil {
		return err
	}
	return analytics.WriteWorkbook(w, rows, c.deps.Clock.Now())
}
