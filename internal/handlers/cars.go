package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Abdilito4-real/np/internal/auth"
	"github.com/Abdilito4-real/np/internal/models"
	pkghttp "github.com/Abdilito4-real/np/pkg/http"
	"github.com/go-chi/chi/v5"
)

// CarServiceInterface defines the inventory operations the handlers need.
type CarServiceInterface interface {
	ListPublic(ctx context.Context, limit, offset int) ([]*models.Car, error)
	List(ctx context.Context, filter models.CarFilter) ([]*models.Car, error)
	Get(ctx context.Context, id string) (*models.Car, error)
	Create(ctx context.Context, adminID string, car *models.Car) (*models.Car, error)
	Update(ctx context.Context, adminID, id string, car *models.Car) (*models.Car, error)
	Delete(ctx context.Context, adminID, id string) error
	BulkDelete(ctx context.Context, adminID string, ids []string) (int64, error)
	BulkSetStatus(ctx context.Context, adminID string, ids []string, status string) (int64, error)
}

type CarHandler struct {
	service CarServiceInterface
	logger  *slog.Logger
}

func NewCarHandler(service CarServiceInterface, logger *slog.Logger) *CarHandler {
	return &CarHandler{service: service, logger: logger}
}

// CarRequest is the inventory form. Domain rules live in services.ValidateCar;
// the tags only bound sizes.
type CarRequest struct {
	Make   string         `json:"make" validate:"max=100"`
	Model  string         `json:"model" validate:"max=100"`
	Year   int            `json:"year"`
	Price  float64        `json:"price"`
	Status string         `json:"status" validate:"omitempty,oneof=available sold"`
	Images []string       `json:"images" validate:"max=30,dive,required,max=2048"`
	Meta   models.CarMeta `json:"meta"`
}

func (req CarRequest) toCar() *models.Car {
	return &models.Car{
		Make:   req.Make,
		Model:  req.Model,
		Year:   req.Year,
		Price:  req.Price,
		Status: req.Status,
		Images: req.Images,
		Meta:   req.Meta,
	}
}

type BulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=500,dive,uuid"`
}

type BulkStatusRequest struct {
	IDs    []string `json:"ids" validate:"required,min=1,max=500,dive,uuid"`
	Status string   `json:"status" validate:"required,oneof=available sold"`
}

type BulkResponse struct {
	Affected int64 `json:"affected"`
}

type CarListResponse struct {
	Cars []*models.Car `json:"cars"`
}

func adminID(r *http.Request) string {
	if claims := auth.GetUserFromContext(r); claims != nil {
		return claims.UserID
	}
	return ""
}

// ListPublic handles GET /cars
func (h *CarHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	cars, err := h.service.ListPublic(r.Context(), limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, CarListResponse{Cars: cars})
}

// Get handles GET /cars/{carID} and GET /admin/cars/{carID}
func (h *CarHandler) Get(w http.ResponseWriter, r *http.Request) {
	car, err := h.service.Get(r.Context(), chi.URLParam(r, "carID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, car)
}

// List handles GET /admin/cars?status=&include_deleted=
func (h *CarHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pagination(r)
	includeDeleted, _ := strconv.ParseBool(q.Get("include_deleted"))

	cars, err := h.service.List(r.Context(), models.CarFilter{
		Status:         q.Get("status"),
		IncludeDeleted: includeDeleted,
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, CarListResponse{Cars: cars})
}

// Create handles POST /admin/cars
func (h *CarHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CarRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := ValidateRequest(req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	car, err := h.service.Create(r.Context(), adminID(r), req.toCar())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, car)
}

// Update handles PUT /admin/cars/{carID}
func (h *CarHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req CarRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := ValidateRequest(req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	car, err := h.service.Update(r.Context(), adminID(r), chi.URLParam(r, "carID"), req.toCar())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, car)
}

// Delete handles DELETE /admin/cars/{carID}
func (h *CarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), adminID(r), chi.URLParam(r, "carID")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BulkDelete handles POST /admin/cars/bulk-delete
func (h *CarHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req BulkDeleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := ValidateRequest(req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	n, err := h.service.BulkDelete(r.Context(), adminID(r), req.IDs)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, BulkResponse{Affected: n})
}

// BulkStatus handles POST /admin/cars/bulk-status
func (h *CarHandler) BulkStatus(w http.ResponseWriter, r *http.Request) {
	var req BulkStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := ValidateRequest(req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	n, err := h.service.BulkSetStatus(r.Context(), adminID(r), req.IDs, req.Status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, BulkResponse{Affected: n})
}
