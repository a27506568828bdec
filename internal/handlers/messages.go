package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Abdilito4-real/np/internal/models"
	pkghttp "github.com/Abdilito4-real/np/pkg/http"
	"github.com/go-chi/chi/v5"
)

type MessageServiceInterface interface {
	Submit(ctx context.Context, m *models.Message) (*models.Message, error)
	List(ctx context.Context, unreadOnly bool, limit, offset int) ([]*models.Message, error)
	MarkRead(ctx context.Context, id string) (*models.Message, error)
	Delete(ctx context.Context, adminID, id string) error
}

type MessageHandler struct {
	service MessageServiceInterface
	logger  *slog.Logger
}

func NewMessageHandler(service MessageServiceInterface, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{service: service, logger: logger}
}

// ContactRequest is the storefront contact form.
type ContactRequest struct {
	Name    string `json:"name" validate:"max=200"`
	Email   string `json:"email" validate:"max=254"`
	Phone   string `json:"phone" validate:"max=40"`
	Subject string `json:"subject" validate:"max=200"`
	Message string `json:"message" validate:"max=5000"`
}

type MessageListResponse struct {
	Messages []*models.Message `json:"messages"`
}

// Submit handles POST /messages
func (h *MessageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := ValidateRequest(req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	msg, err := h.service.Submit(r.Context(), &models.Message{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, msg)
}

// List handles GET /admin/messages?unread=true
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	unread, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	limit, offset := pagination(r)

	msgs, err := h.service.List(r.Context(), unread, limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, MessageListResponse{Messages: msgs})
}

// MarkRead handles POST /admin/messages/{messageID}/read
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	msg, err := h.service.MarkRead(r.Context(), chi.URLParam(r, "messageID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, msg)
}

// Delete handles DELETE /admin/messages/{messageID}
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), adminID(r), chi.URLParam(r, "messageID")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
