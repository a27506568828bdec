package routes

import (
	"log/slog"
	"net/http"

	"github.com/Abdilito4-real/np/internal/auth"
	"github.com/Abdilito4-real/np/internal/handlers"
	"github.com/Abdilito4-real/np/internal/metrics"
	"github.com/Abdilito4-real/np/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Health   *handlers.HealthHandler
	Console  *handlers.ConsoleHandler
	Session  *handlers.SessionHandler
	Cars     *handlers.CarHandler
	Tracking *handlers.TrackingHandler
	Messages *handlers.MessageHandler
	Admin    *handlers.AdminHandler
	Metrics  http.Handler
}

// Security carries what the admin routes need to check bearer tokens.
type Security struct {
	TokenManager *auth.TokenManager
	Revocations  auth.TokenRevocationChecker
	Revocation   auth.RevocationConfig
	Users        auth.UserRepository
}

type Options struct {
	Env            string
	AllowedOrigins []string
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
}

// NewRouter builds the API router with the global middleware chain.
func NewRouter(opts Options, h Handlers, sec Security) chi.Router {
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.SecureLogger(opts.Logger))
	if opts.Metrics != nil {
		router.Use(middleware.Instrument(opts.Metrics))
	}
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: opts.Env}))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(opts.AllowedOrigins)))
	router.Use(chimw.Recoverer)

	RegisterRoutes(router, h, sec, opts.Logger)
	return router
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, h Handlers, sec Security, logger *slog.Logger) {
	router.Get("/health", h.Health.Health)
	if h.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	// Storefront - no authentication required
	router.Get("/cars", h.Cars.ListPublic)
	router.Get("/cars/{carID}", h.Cars.Get)
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(middleware.TrackingRateLimit()))
		r.Post("/cars/{carID}/views", h.Tracking.View)
		r.Post("/cars/{carID}/contact-clicks", h.Tracking.ContactClick)
	})
	router.With(middleware.RateLimitByIP(middleware.ContactRateLimit())).Post("/messages", h.Messages.Submit)

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.NoStore)

		r.With(middleware.RateLimitByIP(middleware.ConsoleOpenRateLimit())).Post("/consoles", h.Console.Open)

		r.Route("/consoles/{consoleID}", func(r chi.Router) {
			// Reachable while logged out
			r.Delete("/", h.Console.Close)
			r.With(middleware.RateLimitByIP(middleware.LoginRateLimit())).Post("/login", h.Console.Login)
			r.Get("/notifications", h.Console.Notifications)

			r.Group(func(r chi.Router) {
				r.Use(auth.AuthMiddleware(sec.TokenManager, sec.Revocations, sec.Revocation, logger))
				r.Use(auth.RequireAdmin(sec.Users))

				// Polling the timer or logging out is not user activity.
				r.Group(func(r chi.Router) {
					r.Use(h.Console.RequireSession(false))
					r.Post("/logout", h.Console.Logout)
					r.Get("/session", h.Session.Status)
					r.Post("/session/activity", h.Session.Activity)
					r.Post("/session/extend", h.Session.Extend)
				})

				r.Group(func(r chi.Router) {
					r.Use(h.Console.RequireSession(true))
					r.Get("/analytics", h.Session.Analytics)
					r.Post("/analytics/events", h.Session.TrackEvent)
					r.Post("/analytics/reload", h.Session.Reload)
					r.Get("/analytics/export", h.Session.Export)
				})
			})
		})

		// Signed-in admin with a live console session
		r.Group(func(r chi.Router) {
			r.Use(auth.AuthMiddleware(sec.TokenManager, sec.Revocations, sec.Revocation, logger))
			r.Use(auth.RequireAdmin(sec.Users))

			// Dashboard data, scoped by the X-Console-ID header
			r.Group(func(r chi.Router) {
				r.Use(h.Console.RequireSession(true))

				r.Get("/dashboard/stats", h.Admin.GetDashboardStats)
				r.Get("/dashboard/chart", h.Admin.GetChart)
				r.Get("/logs", h.Admin.ListLogs)

				r.Get("/cars", h.Cars.List)
				r.Post("/cars", h.Cars.Create)
				r.Post("/cars/bulk-delete", h.Cars.BulkDelete)
				r.Post("/cars/bulk-status", h.Cars.BulkStatus)
				r.Get("/cars/{carID}", h.Cars.Get)
				r.Put("/cars/{carID}", h.Cars.Update)
				r.Delete("/cars/{carID}", h.Cars.Delete)

				r.Get("/messages", h.Messages.List)
				r.Post("/messages/{messageID}/read", h.Messages.MarkRead)
				r.Delete("/messages/{messageID}", h.Messages.Delete)
			})
		})
	})
}
