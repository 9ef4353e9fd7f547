// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/muninn/internal/api"
	"github.com/starford/muninn/internal/archive"
	"github.com/starford/muninn/internal/index"
	"github.com/starford/muninn/internal/links"
	"github.com/starford/muninn/internal/mcpserver"
	"github.com/starford/muninn/internal/moc"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/records"
	"github.com/starford/muninn/internal/sse"
	"github.com/starford/muninn/internal/storage"
	"github.com/starford/muninn/internal/store"
)

// services bundles the domain services shared by the HTTP and MCP frontends.
type services struct {
	notes   *records.Service
	plans   *records.Service
	links   *links.Service
	archive *archive.Service
	moc     *moc.Service
}

// buildServices opens the vault and index and wires the domain services.
// The returned cleanup closes the index database.
func buildServices(cfg *Config, logger *slog.Logger) (*services, *index.DB, storage.Provider, func(), error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("create vault dir: %w", err)
	}

	fs, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, fs, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	noteStore := store.New(fs, models.KindNote)
	planStore := store.New(fs, models.KindPlan)

	svcs := &services{
		notes:   records.NewService(noteStore, db),
		plans:   records.NewService(planStore, db),
		links:   links.NewService(noteStore, db),
		archive: archive.NewService(noteStore, planStore, db, cfg.Archive.RenameFiles),
	}
	svcs.moc = moc.NewService(svcs.notes)

	return svcs, db, fs, func() { db.Close() }, nil
}

func newLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	logger := newLogger(cfg)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svcs, db, fs, cleanup, err := buildServices(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)

	// Build API handler and router.
	h := api.NewHandler(svcs.notes, svcs.plans, svcs.links, svcs.archive, svcs.moc, db)
	apiRouter := api.NewRouter(h, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		return index.Watch(gCtx, db, fs, logger, func(kind, path string) {
			broker.PublishRecordEvent(kind, path)
		})
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the application as an MCP server over stdio.
//
// Logs go to stderr so they do not corrupt the stdio transport.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting MCP server",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path))

	svcs, db, _, cleanup, err := buildServices(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := mcpserver.New(svcs.notes, svcs.plans, svcs.links, svcs.archive, svcs.moc, db)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	}
}
