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

	"github.com/starford/tortoise/internal/accountservice"
	"github.com/starford/tortoise/internal/api"
	"github.com/starford/tortoise/internal/catalog"
	"github.com/starford/tortoise/internal/engine"
	"github.com/starford/tortoise/internal/forecast"
	"github.com/starford/tortoise/internal/mcpserver"
	"github.com/starford/tortoise/internal/selection"
	"github.com/starford/tortoise/internal/session"
	"github.com/starford/tortoise/internal/sse"
	"github.com/starford/tortoise/internal/storage"
)

// backend is what both the HTTP server and the MCP server are built on.
type backend struct {
	logger *slog.Logger
	store  *storage.FS
	db     *catalog.DB
	svc    *accountservice.Service
}

func (app *application) init() (*backend, error) {
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	out := app.logOutput
	if out == nil {
		out = os.Stdout
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("accounts_path", cfg.Accounts.Path),
		slog.String("catalog_path", cfg.Catalog.Path),
		slog.String("engine_url", cfg.Engine.BaseURL),
		slog.Duration("autosave_window", cfg.Autosave.Window),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Accounts.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create accounts dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Accounts.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}
	if err := catalog.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	client := engine.New(cfg.Engine.BaseURL,
		engine.WithTimeout(cfg.Engine.Timeout),
		engine.WithLogger(logger))

	return &backend{
		logger: logger,
		store:  store,
		db:     db,
		svc:    accountservice.New(store, db, client, logger),
	}, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}

	b, err := app.init()
	if err != nil {
		return err
	}
	defer b.db.Close()

	cfg := app.config
	logger := b.logger

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	sel := selection.New()
	sel.Subscribe(broker.PublishSelection)

	runner := forecast.NewRunner(b.svc,
		forecast.WithMinVisible(cfg.Forecast.MinVisible),
		forecast.WithLogger(logger),
		forecast.WithObserver(broker.PublishForecast))

	ws := session.NewWorkspace(b.svc,
		session.WithWindow(cfg.Autosave.Window),
		session.WithLogger(logger),
		session.WithHooks(session.Hooks{
			OnChange: broker.PublishAccountChanged,
			OnSaved:  broker.PublishSaved,
		}))

	h := api.NewHandler(b.svc, ws, sel, runner, logger)
	apiRouter := api.NewRouter(h, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if _, err := b.db.Names(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"catalog unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := catalog.Watch(gCtx, b.db, b.store, cfg.Accounts.Path, logger, broker.PublishCatalogEvent); err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Pending edits are written before the process exits.
		if err := ws.Close(shutdownCtx); err != nil {
			logger.Error("flush on shutdown failed", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown ends the errgroup once the server has been shut down, which
// also stops the watcher.
var errShutdown = errors.New("shutdown")

// RunMCP serves the account tools over stdio until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.logOutput == nil {
		app.logOutput = os.Stderr
	}

	b, err := app.init()
	if err != nil {
		return err
	}
	defer b.db.Close()

	runner := forecast.NewRunner(b.svc,
		forecast.WithMinVisible(0),
		forecast.WithLogger(b.logger))

	b.logger.Info("Starting MCP server on stdio")
	return mcpserver.New(b.svc, runner).Listen(ctx, os.Stdin, os.Stdout)
}
