package session

import (
	"fmt"
	"time"

	"github.com/Abdilito4-real/np/internal/config"
)

// Config holds the lockout and inactivity limits of a Guard.
type Config struct {
	MaxLoginAttempts int
	LockoutDuration  time.Duration
	SessionTimeout   time.Duration
	WarningThreshold time.Duration
	RedThreshold     time.Duration
	CheckInterval    time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxLoginAttempts: 5,
		LockoutDuration:  15 * time.Minute,
		SessionTimeout:   60 * time.Minute,
		WarningThreshold: 2 * time.Minute,
		RedThreshold:     10 * time.Minute,
		CheckInterval:    time.Second,
	}
}

// ConfigFrom maps the environment configuration onto a Guard configuration.
func ConfigFrom(c config.SessionConfig) Config {
	return Config{
		MaxLoginAttempts: c.MaxLoginAttempts,
		LockoutDuration:  c.LockoutDuration,
		SessionTimeout:   c.Timeout,
		WarningThreshold: c.WarningThreshold,
		RedThreshold:     c.RedThreshold,
		CheckInterval:    c.CheckInterval,
	}
}

// SecurityState is the per-console record of login attempts and session
// activity. It lives only in memory and is never persisted.
type SecurityState struct {
	FailedLoginAttempts int        `json:"failed_login_attempts"`
	LastLoginAttempt    *time.Time `json:"last_login_attempt,omitempty"`
	IsLockedOut         bool       `json:"is_locked_out"`
	SessionStartTime    *time.Time `json:"session_start_time,omitempty"`
	LastActivityTime    *time.Time `json:"last_activity_time,omitempty"`
	WarningShown        bool       `json:"warning_shown"`
}

type State string

const (
	StateIdle    State = "idle"
	StateActive  State = "active"
	StateWarning State = "warning"
	StateExpired State = "expired"
)

// Status is a point-in-time view of the session for the dashboard timer.
type Status struct {
	State        State         `json:"state"`
	Remaining    time.Duration `json:"remaining_ns"`
	Countdown    string        `json:"countdown"`
	Red          bool          `json:"red"`
	WarningShown bool          `json:"warning_shown"`
	SessionStart *time.Time    `json:"session_start,omitempty"`
	LastActivity *time.Time    `json:"last_activity,omitempty"`
}

// FormatCountdown renders a remaining duration as MM:SS, flooring to the second.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func timePtr(t time.Time) *time.Time { return &t }
