package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Abdilito4-real/np/internal/console"
	"github.com/Abdilito4-real/np/internal/models"
	"github.com/Abdilito4-real/np/internal/services"
	pkgauth "github.com/Abdilito4-real/np/pkg/auth"
	pkghttp "github.com/Abdilito4-real/np/pkg/http"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON body into dst. It writes the 400 itself and
// reports false when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	return decodeJSON(w, r, dst)
}

// pagination reads ?limit and ?offset; the services clamp the values.
func pagination(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit, _ = strconv.Atoi(q.Get("limit"))
	offset, _ = strconv.Atoi(q.Get("offset"))
	return limit, offset
}

// credentialFields renders a gate failure as the login form's checklist.
func credentialFields(cerr *pkgauth.CredentialError) map[string]interface{} {
	fields := map[string]interface{}{}
	if cerr.EmailErr != nil {
		fields["email"] = pkgauth.EmailShapeMessage
	}
	if len(cerr.Violations) > 0 {
		fields["password"] = cerr.Violations
	}
	return fields
}

// writeError maps domain errors onto HTTP responses. Anything unknown is
// logged and reported as a 500 without detail.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		verr *services.ValidationError
		cerr *pkgauth.CredentialError
		lerr *console.LoginError
	)

	switch {
	case errors.As(err, &lerr):
		writeLoginError(w, lerr)
	case errors.As(err, &cerr):
		pkghttp.WriteErrorWithFields(w, http.StatusBadRequest, "invalid_credentials_format",
			"Please fix the highlighted fields.", credentialFields(cerr))
	case errors.As(err, &verr):
		pkghttp.WriteErrorWithFields(w, http.StatusBadRequest, "validation_failed", "Validation failed", verr.Fields)
	case errors.Is(err, models.ErrUnknownEventType), errors.Is(err, models.ErrBadRequest), errors.Is(err, models.ErrValidation):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrConsoleNotFound):
		pkghttp.WriteError(w, http.StatusNotFound, "console_not_found", "Console not found")
	case errors.Is(err, models.ErrTooManyConsoles):
		pkghttp.WriteError(w, http.StatusServiceUnavailable, "too_many_consoles", "Too many open admin consoles. Try again later.")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrSessionNotActive):
		pkghttp.WriteError(w, http.StatusUnauthorized, "session_not_active", "No active admin session. Please log in.")
	case errors.Is(err, models.ErrSessionExpired):
		pkghttp.WriteError(w, http.StatusUnauthorized, "session_expired", console.MsgSessionExpired)
	case errors.Is(err, models.ErrOperationInProgress):
		pkghttp.WriteConflict(w, "A login is already in progress for this console")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Resource already exists")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	case errors.Is(err, models.ErrForbidden), errors.Is(err, models.ErrNotAdmin):
		pkghttp.WriteForbidden(w, console.MsgNotAdmin)
	default:
		logger.Error("request failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

func writeLoginError(w http.ResponseWriter, lerr *console.LoginError) {
	switch {
	case errors.Is(lerr, models.ErrAccountLocked):
		pkghttp.WriteErrorWithFields(w, http.StatusLocked, "account_locked", lerr.Message, map[string]interface{}{
			"lockout_remaining_seconds": int(lerr.LockoutRemaining.Seconds()),
		})
	case errors.Is(lerr, models.ErrUnauthorized):
		pkghttp.WriteErrorWithFields(w, http.StatusUnauthorized, "invalid_credentials", lerr.Message, map[string]interface{}{
			"attempts_remaining": lerr.AttemptsRemaining,
		})
	case errors.Is(lerr, models.ErrNotAdmin):
		pkghttp.WriteForbidden(w, lerr.Message)
	default:
		pkghttp.WriteBadRequest(w, lerr.Message)
	}
}
