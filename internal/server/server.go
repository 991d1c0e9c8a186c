// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires configuration, storage, services, and routes into a
// running HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clubworks/memberd/internal/config"
	"github.com/clubworks/memberd/internal/database"
	"github.com/clubworks/memberd/internal/events"
	"github.com/clubworks/memberd/internal/handlers"
	"github.com/clubworks/memberd/internal/middleware"
	"github.com/clubworks/memberd/internal/repository"
	"github.com/clubworks/memberd/internal/services/membership"
	"github.com/clubworks/memberd/internal/services/notify"
	"github.com/clubworks/memberd/internal/services/token"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// Repository
	repo := repository.New(db)

	// Session tokens
	tokens, err := token.NewService(cfg.Token.SigningKey, cfg.Token.TTL(), cfg.Token.RenewThreshold())
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}

	// Notifications: mail when SMTP is configured, log-only otherwise.
	var notifier notify.Notifier
	if cfg.SMTP.Host != "" {
		mailer, mailErr := notify.NewMailer(&cfg.SMTP, cfg.Notify.AdminEmail, cfg.Server.BaseURL)
		if mailErr != nil {
			return fmt.Errorf("failed to create mailer: %w", mailErr)
		}
		notifier = mailer
	} else {
		slog.Info("no SMTP host configured, notifications are logged only")
		notifier = notify.LogNotifier{}
	}

	svc := membership.NewService(repo, tokens, notifier, events.NewHub())

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.ErrorHandler

	setupMiddleware(e, cfg, tokens, repo)
	setupRoutes(e, cfg, svc, repo)

	return startWithGracefulShutdown(e, cfg)
}

func setupRoutes(e *echo.Echo, cfg *config.Config, svc *membership.Service, repo *repository.Repository) {
	h := handlers.New(svc, cfg.Server.BaseURL)

	e.GET("/health", h.Health)

	auth := e.Group("/api/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/logout", h.Logout)
	auth.POST("/email-check/:id/:token", h.VerifyEmail)
	auth.GET("/check", h.Check, middleware.RequireAuth)
	auth.PATCH("/modify", h.Modify, middleware.RequireAuth)
	auth.GET("/user-list", h.UserList, middleware.RequireAuth)
	auth.GET("/user-detail/:id", h.UserDetail, middleware.RequireAuth)

	// to-admin is self-promotion and only needs a session; the rest of the
	// admin surface requires an existing grant.
	e.POST("/api/admin/to-admin", h.ToAdmin, middleware.RequireAuth)

	admin := e.Group("/api/admin", middleware.RequireAdmin(repo))
	admin.GET("/list-unapproved", h.ListUnapproved)
	admin.POST("/approve/:id", h.Approve)
	admin.GET("/events", h.Events)
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	errChan := make(chan error, 1)

	go func() {
		slog.Info("server running", "url", cfg.Server.BaseURL)
		var startErr error
		if tlsResult.Mode == TLSModeOff {
			startErr = e.Start(addr)
		} else {
			startErr = startTLSServer(e, addr, tlsResult)
		}
		if startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
			errChan <- startErr
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
