package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/resonarr/backend/internal/config"
	"github.com/resonarr/backend/internal/database"
	"github.com/resonarr/backend/internal/db"
	"github.com/resonarr/backend/internal/logging"
	"github.com/resonarr/backend/internal/router"
	"github.com/resonarr/backend/internal/services"
)

func main() {
	// Initialize structured logging (reads LOGGING_LEVEL env var)
	logging.Initialize()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Load runtime-editable integration settings
	settings := config.NewSettingsManager(cfg.SettingsPath)
	if err := settings.Load(); err != nil {
		slog.Error("failed to load settings", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize database
	sqlDB, err := database.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer sqlDB.Close()

	// Run migrations
	if err := database.RunMigrations(sqlDB); err != nil {
		slog.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize queries
	queries := db.New(sqlDB)

	// Make sure an admin account exists
	if err := services.EnsureSuperadmin(context.Background(), queries, cfg); err != nil {
		slog.Error("failed to provision superadmin", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create router
	r := router.New(cfg, queries, settings)

	// Start server
	addr := ":" + cfg.Port
	slog.Info("starting server", slog.String("addr", addr))

	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
