package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Abdilito4-real/np/internal/auth"
	"github.com/Abdilito4-real/np/internal/config"
	"github.com/Abdilito4-real/np/internal/database"
	"github.com/Abdilito4-real/np/internal/repositories"
	"github.com/Abdilito4-real/np/internal/services"
	pkgauth "github.com/Abdilito4-real/np/pkg/auth"
	pkglogger "github.com/Abdilito4-real/np/pkg/logger"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

type appKey struct{}

// app is what every subcommand shares: configuration and the logger built from it.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func fromContext(ctx context.Context) *app {
	return ctx.Value(appKey{}).(*app)
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "automarket",
		Usage: "Car dealership storefront and admin console API",
		Before: func(ctx context.Context, _ *cli.Command) (context.Context, error) {
			cfg, err := config.Load()
			if err != nil {
				return ctx, fmt.Errorf("load configuration: %w", err)
			}

			logger := pkglogger.New(
				pkglogger.ParseLevel(cfg.Server.LogLevel),
				pkglogger.Format(cfg.Server.LogFormat),
				os.Stdout,
			)
			slog.SetDefault(logger)
			logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

			return context.WithValue(ctx, appKey{}, &app{cfg: cfg, logger: logger}), nil
		},
		Commands: []*cli.Command{
			cmdServe(),
			cmdMigrate(),
			cmdCreateAdmin(),
		},
	}
}

func cmdMigrate() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations and exit",
		Action: func(ctx context.Context, _ *cli.Command) error {
			a := fromContext(ctx)
			db, err := database.NewConnection(&a.cfg.Database, a.logger)
			if err != nil {
				return err
			}
			defer db.Close()
			return db.Migrate(ctx)
		},
	}
}

func cmdCreateAdmin() *cli.Command {
	var email, name string

	return &cli.Command{
		Name:  "create-admin",
		Usage: "Create an admin account, or promote and reset an existing one",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "email",
				Usage:       "Admin email address",
				Required:    true,
				Sources:     cli.EnvVars("ADMIN_EMAIL"),
				Destination: &email,
			},
			&cli.StringFlag{
				Name:        "name",
				Usage:       "Display name",
				Value:       "Admin",
				Destination: &name,
			},
		},
		Action: func(ctx context.Context, _ *cli.Command) error {
			a := fromContext(ctx)

			password, err := readPassword(os.Stdin, os.Stderr)
			if err != nil {
				return err
			}

			db, err := database.NewConnection(&a.cfg.Database, a.logger)
			if err != nil {
				return err
			}
			defer db.Close()

			svc := services.NewAuthService(
				repositories.NewUserRepository(db),
				repositories.NewTokenRevocationRepository(db),
				auth.NewTokenManager(a.cfg.Auth.JWTSecret, a.cfg.Auth.AccessTokenExpiry),
				nil,
				a.logger,
				pkglogger.NewAuditLogger(a.logger),
			)

			user, err := svc.CreateAdmin(ctx, email, password, name)
			if err != nil {
				var cerr *pkgauth.CredentialError
				if errors.As(err, &cerr) {
					for _, v := range cerr.Violations {
						fmt.Fprintln(os.Stderr, "  -", v.Message)
					}
				}
				return fmt.Errorf("create admin: %w", err)
			}

			a.logger.Info("admin account ready", slog.String("user_id", user.ID), pkglogger.RedactedAttr("email", user.Email, a.cfg.Server.Env))
			return nil
		},
	}
}

// readPassword prompts without echo on a terminal; piped input is read as one line.
func readPassword(in *os.File, prompt io.Writer) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
