// Package main is the entry point for the easychef server.
//
// The main package stays minimal. Its job is to:
// 1. Set up logging
// 2. Read configuration (internal/config: .env file, then environment)
// 3. Build and start the server (internal/server wires everything else)
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/easychef/internal/config"
	"github.com/sakif/easychef/internal/server"
)

func main() {
	// Log levels (from least to most severe): Debug → Info → Warn → Error.
	// LOG_LEVEL=debug also shows each backend round trip.
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
