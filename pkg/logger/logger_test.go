package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/Abdilito4-real/np/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NonTerminalWriterUsesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(slog.LevelInfo, logger.FormatAuto, &buf)

	log.Info("hello", slog.String("k", "v"))

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "v", rec["k"])
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(slog.LevelWarn, logger.FormatJSON, &buf)

	log.Info("dropped")
	assert.Zero(t, buf.Len())
}

func TestNew_ConsoleFormatWritesText(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(slog.LevelInfo, logger.FormatConsole, &buf)

	log.Info("console line")
	assert.Contains(t, buf.String(), "console line")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logger.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logger.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, logger.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, logger.ParseLevel("nonsense"))
}

func TestAuditLogger_LogLockout(t *testing.T) {
	var buf bytes.Buffer
	audit := logger.NewAuditLogger(logger.New(slog.LevelInfo, logger.FormatJSON, &buf))

	audit.LogLockout("console-1", 5)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "lockout", rec["event"])
	assert.Equal(t, float64(5), rec["attempts"])
	assert.Equal(t, "WARN", rec["level"])
}

func TestAuditLogger_LogAuthAttemptMasksEmail(t *testing.T) {
	var buf bytes.Buffer
	audit := logger.NewAuditLogger(logger.New(slog.LevelInfo, logger.FormatJSON, &buf))

	audit.LogAuthAttempt(logger.AuditEvent{EventType: "login", Email: "admin@example.com", Success: true})

	assert.NotContains(t, buf.String(), "admin@example.com")
	assert.Contains(t, buf.String(), "a****@*******.com")
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, logger.SanitizeQueryString("token=abc"))
	assert.True(t, logger.SanitizeQueryString("Email=x"))
	assert.False(t, logger.SanitizeQueryString("range=7d"))
}

func TestRedactedAttr(t *testing.T) {
	assert.Equal(t, "[REDACTED]", logger.RedactedAttr("email", "admin@example.com", "production").Value.String())
	assert.Equal(t, "admin@example.com", logger.RedactedAttr("email", "admin@example.com", "development").Value.String())
}
