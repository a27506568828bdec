package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	pkghttp "github.com/Abdilito4-real/np/pkg/http"
)

// SessionHandler serves the signed-in console: timer, activity and the
// analytics mirror.
type SessionHandler struct {
	logger *slog.Logger
}

func NewSessionHandler(logger *slog.Logger) *SessionHandler {
	return &SessionHandler{logger: logger}
}

// LocalEventRequest is an analytics event raised from the dashboard itself.
type LocalEventRequest struct {
	CarID     string `json:"car_id" validate:"required,uuid"`
	EventType string `json:"event_type" validate:"required,oneof=view contact_click"`
}

// Status handles GET /admin/consoles/{consoleID}/session
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, consoleFromContext(r.Context()).Status())
}

// Activity handles POST /admin/consoles/{consoleID}/session/activity
func (h *SessionHandler) Activity(w http.ResponseWriter, r *http.Request) {
	st, err := consoleFromContext(r.Context()).RecordActivity(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, st)
}

// Extend handles POST /admin/consoles/{consoleID}/session/extend
func (h *SessionHandler) Extend(w http.ResponseWriter, r *http.Request) {
	st, err := consoleFromContext(r.Context()).Extend(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, st)
}

// Analytics handles GET /admin/consoles/{consoleID}/analytics
func (h *SessionHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	view, err := consoleFromContext(r.Context()).Analytics(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, view)
}

// TrackEvent handles POST /admin/consoles/{consoleID}/analytics/events
func (h *SessionHandler) TrackEvent(w http.ResponseWriter, r *http.Request) {
	var req LocalEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := ValidateRequest(req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := consoleFromContext(r.Context()).TrackLocal(r.Context(), req.CarID, req.EventType)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusAccepted, res)
}

// Reload handles POST /admin/consoles/{consoleID}/analytics/reload
func (h *SessionHandler) Reload(w http.ResponseWriter, r *http.Request) {
	c := consoleFromContext(r.Context())
	if err := c.Reload(r.Context()); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.Analytics(w, r)
}

// Export handles GET /admin/consoles/{consoleID}/analytics/export
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := consoleFromContext(r.Context()).Export(r.Context(), &buf); err != nil {
		writeError(w, h.logger, err)
		return
	}

	name := fmt.Sprintf("car-analytics-%s.xlsx", time.Now().Format(time.DateOnly))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("failed to write export", slog.Any("error", err))
	}
}
