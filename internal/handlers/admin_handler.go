package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Abdilito4-real/np/internal/models"
	pkghttp "github.com/Abdilito4-real/np/pkg/http"
)

// DashboardServiceInterface defines the dashboard service contract.
type DashboardServiceInterface interface {
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
	Chart(ctx context.Context, rangeKey string) ([]models.DailyClicks, error)
}

type AdminLogServiceInterface interface {
	List(ctx context.Context, action string, limit, offset int) ([]*models.AdminLog, error)
}

// AdminHandler handles admin dashboard HTTP requests.
type AdminHandler struct {
	dashboard DashboardServiceInterface
	logs      AdminLogServiceInterface
	logger    *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(dashboard DashboardServiceInterface, logs AdminLogServiceInterface, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{dashboard: dashboard, logs: logs, logger: logger}
}

type ChartResponse struct {
	Range  string               `json:"range"`
	Points []models.DailyClicks `json:"points"`
}

type AdminLogListResponse struct {
	Logs []*models.AdminLog `json:"logs"`
}

// GetDashboardStats handles GET /admin/dashboard/stats
func (h *AdminHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.DashboardStats(r.Context())
	if err != nil {
		h.logger.Error("failed to load dashboard stats", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Could not load dashboard stats.")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, stats)
}

// GetChart handles GET /admin/dashboard/chart?range=7d
func (h *AdminHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	rangeKey := r.URL.Query().Get("range")
	points, err := h.dashboard.Chart(r.Context(), rangeKey)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if rangeKey == "" {
		rangeKey = "7d"
	}
	pkghttp.WriteJSON(w, http.StatusOK, ChartResponse{Range: rangeKey, Points: points})
}

// ListLogs handles GET /admin/logs?action=
func (h *AdminHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	logs, err := h.logs.List(r.Context(), r.URL.Query().Get("action"), limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, AdminLogListResponse{Logs: logs})
}
