package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Abdilito4-real/np/internal/metrics"
	"github.com/Abdilito4-real/np/internal/models"
	"github.com/Abdilito4-real/np/internal/services"
	pkghttp "github.com/Abdilito4-real/np/pkg/http"
	"github.com/go-chi/chi/v5"
)

type Tracker interface {
	Track(ctx context.Context, in services.TrackInput, source string) (*models.AnalyticsEvent, error)
}

// TrackingHandler records storefront views and contact clicks.
type TrackingHandler struct {
	tracker  Tracker
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

func NewTrackingHandler(tracker Tracker, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *TrackingHandler {
	return &TrackingHandler{tracker: tracker, ipConfig: ipConfig, logger: logger}
}

type TrackRequest struct {
	ClientEventID string `json:"client_event_id" validate:"omitempty,uuid"`
}

type TrackResponse struct {
	ID            string `json:"id"`
	ClientEventID string `json:"client_event_id,omitempty"`
}

// View handles POST /cars/{carID}/views
func (h *TrackingHandler) View(w http.ResponseWriter, r *http.Request) {
	h.track(w, r, models.EventTypeView)
}

// ContactClick handles POST /cars/{carID}/contact-clicks
func (h *TrackingHandler) ContactClick(w http.ResponseWriter, r *http.Request) {
	h.track(w, r, models.EventTypeContactClick)
}

func (h *TrackingHandler) track(w http.ResponseWriter, r *http.Request, eventType string) {
	var req TrackRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	if err := ValidateRequest(req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	ev, err := h.tracker.Track(r.Context(), services.TrackInput{
		CarID:         chi.URLParam(r, "carID"),
		EventType:     eventType,
		ClientEventID: req.ClientEventID,
		UserIP:        pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent:     pkghttp.UserAgent(r),
	}, metrics.SourceStorefront)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, TrackResponse{ID: ev.ID, ClientEventID: ev.ClientEventID})
}
