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

	"github.com/starford/tabula/internal/api"
	"github.com/starford/tabula/internal/datasetservice"
	"github.com/starford/tabula/internal/datastore"
	"github.com/starford/tabula/internal/datastore/mongostore"
	"github.com/starford/tabula/internal/datastore/sqlitestore"
	"github.com/starford/tabula/internal/inbox"
	"github.com/starford/tabula/internal/profile"
	"github.com/starford/tabula/internal/sse"
	"github.com/starford/tabula/internal/storage"
)

// newApplication applies opts and installs the JSON logger.
func newApplication(opts ...Option) (*application, *slog.Logger, error) {
	app := &application{version: "dev", logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return app, logger, nil
}

// openStore connects the configured backend.
func openStore(ctx context.Context, cfg StoreConfig) (datastore.Store, error) {
	switch cfg.Driver {
	case datastore.DriverMongo:
		return mongostore.Open(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Timeout)
	default:
		return sqlitestore.Open(ctx, cfg.SQLite.Path)
	}
}

// openService builds the dataset service over a freshly opened store and
// upload directory. The caller closes the returned store.
func openService(ctx context.Context, cfg *Config, logger *slog.Logger, extra ...datasetservice.Option) (*datasetservice.Service, datastore.Store, *storage.FS, error) {
	files, err := storage.NewFS(cfg.Uploads.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init uploads: %w", err)
	}

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init store: %w", err)
	}

	opts := []datasetservice.Option{
		datasetservice.WithSchemaOptions(cfg.Ingest.SchemaOptions()),
		datasetservice.WithAnalyzer(profile.New()),
		datasetservice.WithLogger(logger),
	}
	svc := datasetservice.New(store, append(opts, extra...)...)
	return svc, store, files, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts...)
	if err != nil {
		return err
	}
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("uploads_path", cfg.Uploads.Path),
		slog.String("inbox_path", cfg.Inbox.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc, store, files, err := openService(ctx, cfg, logger, datasetservice.WithNotifier(broker))
	if err != nil {
		return err
	}
	defer store.Close()

	apiRouter := api.NewRouter(svc, files, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, cfg.Uploads.MaxBytes)

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
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := store.ListDatasets(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start inbox watcher.
	if cfg.Inbox.Enabled() {
		inboxFiles, err := storage.NewFS(cfg.Inbox.Path)
		if err != nil {
			return fmt.Errorf("init inbox: %w", err)
		}
		box := inbox.New(svc, store, inboxFiles, inboxFiles.Root(), logger)
		onIngest := func(path, datasetID string) {
			logger.Info("inbox file ingested",
				slog.String("path", path),
				slog.String("dataset_id", datasetID))
		}
		g.Go(func() error {
			if n, err := box.Sync(gCtx, onIngest); err != nil {
				logger.Warn("initial inbox sync failed", slog.String("error", err.Error()))
			} else {
				logger.Info("initial inbox sync complete", slog.Int("ingested", n))
			}
			if err := box.Watch(gCtx, onIngest); err != nil {
				logger.Error("inbox watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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
		defer signal.Stop(quit)

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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the inbox watcher stops with the server.
var errShutdown = errors.New("shutdown")
