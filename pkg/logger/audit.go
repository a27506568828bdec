package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	ConsoleID     string
	UserID        string
	Email         string
	IPAddress     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes security relevant events as "audit" log records.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogAuthAttempt logs admin console login attempts
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.ConsoleID != "" {
		attrs = append(attrs, slog.String("console_id", event.ConsoleID))
	}
	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}

// LogLockout records a console crossing the failed-login threshold.
func (al *AuditLogger) LogLockout(consoleID string, attempts int) {
	al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit",
		slog.String("audit_type", "security"),
		slog.String("event", "lockout"),
		slog.Int("attempts", attempts),
		slog.String("console_id", consoleID),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	)
}

// LogSessionEvent logs console session transitions (logout, expiry, forced sign-out).
func (al *AuditLogger) LogSessionEvent(eventType, consoleID, userID string, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "session"),
		slog.String("event_type", eventType),
		slog.String("console_id", consoleID),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if userID != "" {
		attrs = append(attrs, slog.String("user_id", userID))
	}
	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
}
