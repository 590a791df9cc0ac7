// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the composition root: New builds the whole dependency
// chain from a config.Config, and nothing below it creates dependencies of
// its own.
//
//	config → store.Client (rest | sqlite) → remote repositories → services → handlers
//
// The store client is created exactly once here and shared by reference;
// it owns the process-wide session.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/easychef/internal/auth"
	"github.com/sakif/easychef/internal/config"
	"github.com/sakif/easychef/internal/handler"
	"github.com/sakif/easychef/internal/metrics"
	"github.com/sakif/easychef/internal/middleware"
	"github.com/sakif/easychef/internal/repository/remote"
	"github.com/sakif/easychef/internal/service"
	"github.com/sakif/easychef/internal/store"
	"github.com/sakif/easychef/internal/store/rest"
	"github.com/sakif/easychef/internal/store/sqlite"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// With the sqlite backend the Server owns a database connection (closer);
// it is closed when Start returns. The rest backend has nothing to close.
type Server struct {
	router   *chi.Mux
	config   config.Config
	logger   *slog.Logger
	store    store.Client
	closer   io.Closer
	registry *prometheus.Registry
}

// New opens the configured store and wires every route.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	passwords := auth.NewPasswordService()

	client, closer, err := openStore(cfg, passwords, logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		store:    client,
		closer:   closer,
		registry: prometheus.NewRegistry(),
	}
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s.setupRoutes(passwords)
	return s, nil
}

// openStore builds the store.Client named by cfg.Backend.
func openStore(cfg config.Config, passwords *auth.PasswordService, logger *slog.Logger) (store.Client, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendREST:
		client, err := rest.New(rest.Config{
			BaseURL:    cfg.SupabaseURL,
			APIKey:     cfg.SupabaseAnonKey,
			HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("creating rest store: %w", err)
		}
		return client, nopCloser{}, nil

	case config.BackendSQLite:
		tokens, err := auth.NewTokenService(cfg.JWTSecret)
		if err != nil {
			return nil, nil, fmt.Errorf("creating token service: %w", err)
		}
		if cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqlite.New(cfg.DBPath, tokens, passwords, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		return db, db, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /healthz                                 → store ping
// GET    /metrics                                 → Prometheus
// POST   /api/auth/signin | signup | signout      → session
// GET    /api/auth/me                             → current user
// GET    /api/profile                             → profile        [session]
// PUT    /api/profile/pantry                      → replace pantry [session]
// POST   /api/profile/pantry/items                → upsert item    [session]
// DELETE /api/profile/pantry/items/{ingredientID} → remove item    [session]
// PUT    /api/profile/preferences                 → preferences    [session]
//
// MIDDLEWARE ORDER MATTERS:
// RequestID runs before Logger so each log line carries the request's id.
func (s *Server) setupRoutes(passwords *auth.PasswordService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	repoMetrics := metrics.NewRepository(s.registry)
	authRepo := remote.NewAuthRepo(s.store, repoMetrics, s.logger)
	profileRepo := remote.NewProfileRepo(s.store, repoMetrics, s.logger)

	authHandler := handler.NewAuthHandler(service.NewAuthService(authRepo, passwords, s.logger), s.logger)
	profileHandler := handler.NewProfileHandler(service.NewProfileService(profileRepo, s.logger), s.logger)
	healthHandler := handler.NewHealthHandler(s.store, s.config.Backend, s.logger)

	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signin", authHandler.HandleSignIn)
			r.Post("/signup", authHandler.HandleSignUp)
			r.Post("/signout", authHandler.HandleSignOut)
			r.Get("/me", authHandler.HandleMe)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Use(middleware.RequireSession(authRepo))
			r.Get("/", profileHandler.HandleGet)
			r.Put("/pantry", profileHandler.HandleReplacePantry)
			r.Post("/pantry/items", profileHandler.HandleUpsertItem)
			r.Delete("/pantry/items/{ingredientID}", profileHandler.HandleRemoveItem)
			r.Put("/preferences", profileHandler.HandleUpdatePreferences)
		})
	})
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store. Start calls it on return.
func (s *Server) Close() error {
	return s.closer.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the store (flushes the sqlite WAL, releases the file lock)
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("backend", s.config.Backend),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
