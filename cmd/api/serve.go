package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Abdilito4-real/np/internal/analytics"
	"github.com/Abdilito4-real/np/internal/auth"
	"github.com/Abdilito4-real/np/internal/background"
	"github.com/Abdilito4-real/np/internal/config"
	"github.com/Abdilito4-real/np/internal/console"
	"github.com/Abdilito4-real/np/internal/database"
	"github.com/Abdilito4-real/np/internal/handlers"
	"github.com/Abdilito4-real/np/internal/metrics"
	"github.com/Abdilito4-real/np/internal/realtime"
	"github.com/Abdilito4-real/np/internal/repositories"
	"github.com/Abdilito4-real/np/internal/routes"
	"github.com/Abdilito4-real/np/internal/services"
	"github.com/Abdilito4-real/np/internal/session"
	"github.com/Abdilito4-real/np/internal/store"
	pkghttp "github.com/Abdilito4-real/np/pkg/http"
	pkglogger "github.com/Abdilito4-real/np/pkg/logger"
	"github.com/coder/quartz"
	"github.com/urfave/cli/v3"
)

const (
	hubBuffer       = 256
	inboxSize       = 100
	shutdownTimeout = 30 * time.Second
)

func cmdServe() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API",
		Action: func(ctx context.Context, _ *cli.Command) error {
			a := fromContext(ctx)
			return serve(ctx, a.cfg, a.logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	clock := quartz.NewReal()

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
	}

	kv, err := openStore(ctx, cfg, clock, logger)
	if err != nil {
		return err
	}
	defer kv.Close()

	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	loc, err := cfg.Analytics.Location()
	if err != nil {
		return fmt.Errorf("analytics timezone: %w", err)
	}

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	revokeRepo := repositories.NewTokenRevocationRepository(db)
	carRepo := repositories.NewCarRepository(db)
	eventRepo := repositories.NewAnalyticsRepository(db)
	messageRepo := repositories.NewMessageRepository(db)
	adminLogRepo := repositories.NewAdminLogRepository(db)

	auditLogger := pkglogger.NewAuditLogger(logger)
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)

	emailService, err := newEmailService(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Services
	adminLogService := services.NewAdminLogService(adminLogRepo, logger)
	authService := services.NewAuthService(userRepo, revokeRepo, tokenManager, auth.DefaultTimingDelay(), logger, auditLogger)
	carService := services.NewCarService(carRepo, adminLogService, logger)
	analyticsService := services.NewAnalyticsService(carRepo, eventRepo, messageRepo, loc, m, logger)
	messageService := services.NewMessageService(messageRepo, emailService, adminLogService, logger)

	// Realtime feed
	hub := realtime.NewHub(logger, hubBuffer)
	hub.OnDrop(func(table string) { m.RealtimeDropped.WithLabelValues(table).Inc() })
	defer hub.CloseAll()

	listener, err := realtime.NewListener(cfg.Database.DSN(), hub, logger)
	if err != nil {
		return fmt.Errorf("start realtime listener: %w", err)
	}
	defer listener.Close()

	// Consoles live until the serve context ends.
	consoleCtx, cancelConsoles := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelConsoles()

	registry := console.NewRegistry(consoleCtx, console.Deps{
		Auth:      authService,
		Analytics: analyticsService,
		AdminLogs: adminLogService,
		Hub:       hub,
		Store:     kv,
		Clock:     clock,
		Logger:    logger,
		Audit:     auditLogger,
		Metrics:   m,
		Session:   session.ConfigFrom(cfg.Session),
		Reset: background.DailyResetConfig{
			CheckInterval: cfg.Analytics.ResetCheckInterval,
			Window:        cfg.Analytics.ResetWindow,
		},
		Mirror: analytics.Options{
			Mode:      analytics.DedupMode(cfg.Analytics.DedupMode),
			DedupTTL:  cfg.Analytics.DedupTTL,
			DedupSize: cfg.Analytics.DedupSize,
		},
		InboxSize:   inboxSize,
		MaxConsoles: cfg.Session.MaxConsoles,
	})
	listener.OnReconnect(func() { registry.ReloadAll(consoleCtx) })

	cleanupManager := background.NewCleanupManager(clock, logger, cfg.Auth.CleanupInterval,
		cleanupTasks(cfg, m, revokeRepo, registry, kv)...)

	// HTTP
	ipConfig := &pkghttp.IPConfig{}
	h := routes.Handlers{
		Health: handlers.NewHealthHandler(map[string]handlers.Pinger{
			"database": handlers.PingFunc(db.HealthCheck),
			"store":    kv,
		}, logger),
		Console:  handlers.NewConsoleHandler(registry, ipConfig, logger),
		Session:  handlers.NewSessionHandler(logger),
		Cars:     handlers.NewCarHandler(carService, logger),
		Tracking: handlers.NewTrackingHandler(analyticsService, ipConfig, logger),
		Messages: handlers.NewMessageHandler(messageService, logger),
		Admin:    handlers.NewAdminHandler(analyticsService, adminLogService, logger),
		Metrics:  metrics.Handler(reg),
	}
	router := routes.NewRouter(routes.Options{
		Env:            cfg.Server.Env,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
		Metrics:        m,
	}, h, routes.Security{
		TokenManager: tokenManager,
		Revocations:  revokeRepo,
		Revocation:   auth.RevocationConfig{FailClosed: !cfg.Auth.RevocationFailOpen},
		Users:        userRepo,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var wg sync.WaitGroup
	bgCtx, stopBackground := context.WithCancel(context.WithoutCancel(ctx))
	defer stopBackground()

	wg.Add(2)
	go func() {
		defer wg.Done()
		cleanupManager.Start(bgCtx)
	}()
	go func() {
		defer wg.Done()
		listener.Run(bgCtx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	registry.CloseAll(shutdownCtx)
	cancelConsoles()

	cleanupManager.Stop()
	stopBackground()
	wg.Wait()

	logger.Info("server stopped gracefully")
	return nil
}

// openStore uses Redis when REDIS_ADDR is set and an in-memory store otherwise.
func openStore(ctx context.Context, cfg *config.Config, clock quartz.Clock, logger *slog.Logger) (store.Store, error) {
	if cfg.Redis.Addr == "" {
		if cfg.Server.Env == "production" {
			logger.Warn("REDIS_ADDR is not set; session flags will not survive a restart")
		}
		return store.NewMemoryStore(clock), nil
	}
	return store.NewRedisStore(ctx, &cfg.Redis, logger)
}

func newEmailService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (services.EmailService, error) {
	if !cfg.Email.Enabled {
		return services.NewLogEmailService(logger), nil
	}
	svc, err := services.NewAWSSESEmailService(ctx, cfg.Email.Region, cfg.Email.FromAddress, cfg.Email.NotifyEmails, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize email service: %w", err)
	}
	return svc, nil
}

func cleanupTasks(cfg *config.Config, m *metrics.Metrics, revokeRepo *repositories.TokenRevocationRepository, registry *console.Registry, kv store.Store) []background.CleanupTask {
	tasks := []background.CleanupTask{
		{Name: "revoked_tokens", Run: revokeRepo.CleanupExpiredTokens},
		{Name: "idle_consoles", Run: func(ctx context.Context) (int64, error) {
			return registry.Sweep(ctx, cfg.Session.ConsoleIdleLimit)
		}},
	}
	if mem, ok := kv.(*store.MemoryStore); ok {
		tasks = append(tasks, background.CleanupTask{Name: "expired_keys", Run: func(context.Context) (int64, error) {
			return int64(mem.Sweep()), nil
		}})
	}

	for i := range tasks {
		name, run := tasks[i].Name, tasks[i].Run
		tasks[i].Run = func(ctx context.Context) (int64, error) {
			n, err := run(ctx)
			if n > 0 {
				m.CleanupRemoved.WithLabelValues(name).Add(float64(n))
			}
			return n, err
		}
	}
	return tasks
}
