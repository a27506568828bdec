package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Abdilito4-real/np/internal/auth"
	"github.com/Abdilito4-real/np/internal/console"
	"github.com/Abdilito4-real/np/internal/models"
	pkghttp "github.com/Abdilito4-real/np/pkg/http"
	"github.com/go-chi/chi/v5"
)

type consoleContextKey struct{}

// ConsoleHandler serves the lifecycle of admin consoles: opening a tab,
// logging in and out, and closing the tab.
type ConsoleHandler struct {
	registry *console.Registry
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

func NewConsoleHandler(registry *console.Registry, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *ConsoleHandler {
	return &ConsoleHandler{registry: registry, ipConfig: ipConfig, logger: logger}
}

// LoginRequest represents the request body for login. Shape checks happen in
// the credential gate so the form gets the full checklist back.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type OpenConsoleResponse struct {
	ConsoleID string         `json:"console_id"`
	Status    console.Status `json:"status"`
}

type LogoutResponse struct {
	Message string `json:"message"`
}

func (h *ConsoleHandler) console(w http.ResponseWriter, r *http.Request) (*console.Console, bool) {
	c, err := h.registry.Get(chi.URLParam(r, "consoleID"))
	if err != nil {
		writeError(w, h.logger, err)
		return nil, false
	}
	return c, true
}

// Open handles POST /admin/consoles. A bearer token left over from an
// earlier tab is signed out.
func (h *ConsoleHandler) Open(w http.ResponseWriter, r *http.Request) {
	prior, _ := auth.BearerToken(r)

	c, err := h.registry.Open(r.Context(), prior)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, OpenConsoleResponse{ConsoleID: c.ID(), Status: c.Status()})
}

// Close handles DELETE /admin/consoles/{consoleID}.
func (h *ConsoleHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Close(r.Context(), chi.URLParam(r, "consoleID")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Login handles POST /admin/consoles/{consoleID}/login.
func (h *ConsoleHandler) Login(w http.ResponseWriter, r *http.Request) {
	c, ok := h.console(w, r)
	if !ok {
		return
	}

	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := c.Login(r.Context(), console.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: pkghttp.UserAgent(r),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, res)
}

// Logout handles POST /admin/consoles/{consoleID}/logout.
func (h *ConsoleHandler) Logout(w http.ResponseWriter, r *http.Request) {
	c := consoleFromContext(r.Context())
	if err := c.Logout(r.Context(), "user"); err != nil {
		writeError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, LogoutResponse{Message: console.MsgLoggedOut})
}

// Notifications handles GET /admin/consoles/{consoleID}/notifications. It is
// open to logged-out consoles so the expiry notice still reaches the tab.
func (h *ConsoleHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	c, ok := h.console(w, r)
	if !ok {
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, c.Notifications())
}

// RequireSession admits requests whose bearer token belongs to the live
// session of the console named in the path or the X-Console-ID header.
// With trackActivity set the request also counts as user activity.
func (h *ConsoleHandler) RequireSession(trackActivity bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "consoleID")
			if id == "" {
				id = r.Header.Get("X-Console-ID")
			}
			if id == "" {
				pkghttp.WriteError(w, http.StatusUnauthorized, "session_not_active", "Missing console ID")
				return
			}

			c, err := h.registry.Get(id)
			if err != nil {
				writeError(w, h.logger, err)
				return
			}
			if err := c.Authorize(auth.GetUserFromContext(r)); err != nil {
				writeError(w, h.logger, models.ErrSessionNotActive)
				return
			}

			if trackActivity {
				if _, err := c.RecordActivity(r.Context()); err != nil {
					writeError(w, h.logger, err)
					return
				}
			}

			ctx := context.WithValue(r.Context(), consoleContextKey{}, c)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func consoleFromContext(ctx context.Context) *console.Console {
	c, _ := ctx.Value(consoleContextKey{}).(*console.Console)
	return c
}
