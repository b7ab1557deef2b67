// Package main is the entry point for the SnippetBin server.
//
// The main package stays minimal. Its job is to:
//  1. Read configuration (environment variables, optionally from .env)
//  2. Create the logger
//  3. Build and start the server
//
// All actual logic lives in the internal/ packages.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/snippetbin/internal/config"
	"github.com/sakif/snippetbin/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// APP_ENV=development allows running without SESSION_SECRET. Anywhere
	// else a missing secret is fatal: a guessable secret means forgeable
	// sessions.
	load := config.Load
	if os.Getenv("APP_ENV") == "development" {
		load = config.LoadWithDefaults
	}

	cfg, err := load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Text handler to stdout; level from LOG_LEVEL (debug, info, warn, error).
	// SetDefault routes package-level slog calls through the same handler.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Server.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("config", cfg.String()))
	if !cfg.GitHub.Enabled() {
		logger.Info("GITHUB_CLIENT_ID/GITHUB_CLIENT_SECRET not set, GitHub sign-in disabled")
	}

	// === 3. DATABASE DIRECTORY ===
	// os.MkdirAll is `mkdir -p`: it creates missing parents and is a no-op
	// when the directory exists.
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until the server is shut down (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
