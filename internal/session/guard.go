// Package session implements the admin console's Session Guard: a failed
// login lockout and an inactivity timer that warns before forcing logout.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/quartz"
)

var errSessionExpired = errors.New("session expired")

// Hooks are invoked outside the Guard's lock. Any of them may be nil.
type Hooks struct {
	// OnLockout fires once when the failed-attempt counter reaches the limit.
	OnLockout func(attempts int)
	// OnWarning fires once per warning period with the time left.
	OnWarning func(remaining time.Duration)
	// OnExpired fires when inactivity reaches the session timeout. The
	// recurring check is already stopped when it runs.
	OnExpired func()
}

// Guard tracks login attempts and session inactivity for one console.
type Guard struct {
	cfg    Config
	clock  quartz.Clock
	logger *slog.Logger
	hooks  Hooks

	mu      sync.Mutex
	state   SecurityState
	cancel  context.CancelFunc
	expired bool
}

func NewGuard(cfg Config, clock quartz.Clock, logger *slog.Logger, hooks Hooks) *Guard {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Guard{cfg: cfg, clock: clock, logger: logger, hooks: hooks}
}

func (g *Guard) Config() Config { return g.cfg }

// RecordFailedAttempt counts a failed login and reports whether the console is
// now locked out.
func (g *Guard) RecordFailedAttempt() bool {
	g.mu.Lock()
	now := g.clock.Now()
	g.state.FailedLoginAttempts++
	g.state.LastLoginAttempt = timePtr(now)

	justLocked := false
	if g.state.FailedLoginAttempts >= g.cfg.MaxLoginAttempts && !g.state.IsLockedOut {
		g.state.IsLockedOut = true
		justLocked = true
	}
	attempts := g.state.FailedLoginAttempts
	locked := g.state.IsLockedOut
	g.mu.Unlock()

	if justLocked {
		g.logger.Warn("console locked after failed login attempts", slog.Int("attempts", attempts))
		if g.hooks.OnLockout != nil {
			g.safeCall("lockout", func() { g.hooks.OnLockout(attempts) })
		}
	}
	return locked
}

// IsLockedOut reports the lock state, clearing it (and the attempt counter)
// once the lockout duration has elapsed since the last failed attempt.
func (g *Guard) IsLockedOut() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lockedLocked()
}

func (g *Guard) lockedLocked() bool {
	if !g.state.IsLockedOut {
		return false
	}
	if g.state.LastLoginAttempt != nil && g.clock.Now().Sub(*g.state.LastLoginAttempt) > g.cfg.LockoutDuration {
		g.state.IsLockedOut = false
		g.state.FailedLoginAttempts = 0
		return false
	}
	return true
}

// LockoutRemaining is how long until an active lockout clears, or zero.
func (g *Guard) LockoutRemaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.lockedLocked() || g.state.LastLoginAttempt == nil {
		return 0
	}
	left := g.cfg.LockoutDuration - g.clock.Now().Sub(*g.state.LastLoginAttempt)
	if left < 0 {
		return 0
	}
	return left
}

// AttemptsRemaining is how many more failures are allowed before lockout.
func (g *Guard) AttemptsRemaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	left := g.cfg.MaxLoginAttempts - g.state.FailedLoginAttempts
	if left < 0 {
		return 0
	}
	return left
}

// ResetAttempts clears the counter, the lock and the last attempt time.
func (g *Guard) ResetAttempts() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.FailedLoginAttempts = 0
	g.state.IsLockedOut = false
	g.state.LastLoginAttempt = nil
}

// StartSession begins (or restarts) inactivity tracking. ctx bounds the
// recurring check and must outlive the request that logged in.
func (g *Guard) StartSession(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopLocked()

	now := g.clock.Now()
	g.state.SessionStartTime = timePtr(now)
	g.state.LastActivityTime = timePtr(now)
	g.state.WarningShown = false
	g.expired = false

	tickCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.clock.TickerFunc(tickCtx, g.cfg.CheckInterval, g.check, "session", "check")
}

// RecordActivity refreshes the inactivity timer unless the warning is showing;
// once warned, only ExtendSession keeps the session alive.
func (g *Guard) RecordActivity() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.WarningShown {
		return false
	}
	g.state.LastActivityTime = timePtr(g.clock.Now())
	return true
}

// ExtendSession refreshes the inactivity timer and dismisses the warning.
func (g *Guard) ExtendSession() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.LastActivityTime = timePtr(g.clock.Now())
	g.state.WarningShown = false
}

// EndSession stops the recurring check. It is safe to call repeatedly.
func (g *Guard) EndSession() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopLocked()
}

func (g *Guard) stopLocked() {
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
}

// Active reports whether the inactivity check is running.
func (g *Guard) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancel != nil
}

func (g *Guard) Snapshot() SecurityState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Guard) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := Status{
		State:        StateIdle,
		WarningShown: g.state.WarningShown,
		SessionStart: g.state.SessionStartTime,
		LastActivity: g.state.LastActivityTime,
	}

	switch {
	case g.expired:
		st.State = StateExpired
	case g.cancel == nil || g.state.LastActivityTime == nil:
		st.State = StateIdle
	default:
		st.Remaining = g.remainingLocked(g.clock.Now())
		st.Red = st.Remaining <= g.cfg.RedThreshold
		st.State = StateActive
		if g.state.WarningShown {
			st.State = StateWarning
		}
	}
	st.Countdown = FormatCountdown(st.Remaining)
	return st
}

func (g *Guard) remainingLocked(now time.Time) time.Duration {
	return g.cfg.SessionTimeout - now.Sub(*g.state.LastActivityTime)
}

// check runs on every tick of the inactivity ticker.
func (g *Guard) check() error {
	g.mu.Lock()
	if g.cancel == nil || g.state.LastActivityTime == nil {
		g.mu.Unlock()
		return nil
	}

	remaining := g.remainingLocked(g.clock.Now())
	if remaining <= 0 {
		g.stopLocked()
		g.expired = true
		g.state.WarningShown = false
		g.mu.Unlock()

		g.logger.Info("admin session expired due to inactivity")
		if g.hooks.OnExpired != nil {
			g.safeCall("expired", g.hooks.OnExpired)
		}
		return errSessionExpired
	}

	warn := false
	if remaining <= g.cfg.WarningThreshold && !g.state.WarningShown {
		g.state.WarningShown = true
		warn = true
	}
	g.mu.Unlock()

	if warn && g.hooks.OnWarning != nil {
		g.safeCall("warning", func() { g.hooks.OnWarning(remaining) })
	}
	return nil
}

func (g *Guard) safeCall(hook string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("session hook panicked", slog.String("hook", hook), slog.Any("panic", r))
		}
	}()
	fn()
}
