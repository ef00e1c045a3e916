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

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/compiler"
	"github.com/starford/raido/internal/drawing"
	"github.com/starford/raido/internal/frontmatter"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/publish"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/vault"
)

// stack bundles the shared components every command wires up.
type stack struct {
	store    storage.Provider
	db       *index.DB
	vault    *vault.Vault
	compiler *compiler.Compiler
	logger   *slog.Logger
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// buildStack initializes logging, storage, the index, and the compiler
// from configuration, and runs the initial vault sync.
func buildStack(cfg *Config) (*stack, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("index_path", cfg.Index.Path),
		slog.String("output_dir", cfg.Publish.OutputDir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.Index.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	v := vault.New(store)
	comp := compiler.New(v, compiler.Options{
		Frontmatter: frontmatter.New(),
		Drawing:     drawing.New(v),
		PublishSet:  db,
		Filters:     cfg.Publish.Filters,
		QueryConfig: cfg.Publish.Query,
		ImageBase:   cfg.Publish.ImageBase,
		Logger:      logger,
	})

	return &stack{store: store, db: db, vault: v, compiler: comp, logger: logger}, nil
}

// Publish runs a one-shot publish of every flagged document into the
// configured output directory.
func Publish(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	st, err := buildStack(cfg)
	if err != nil {
		return err
	}
	defer st.db.Close()

	if err := os.MkdirAll(cfg.Publish.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	out, err := storage.NewFS(cfg.Publish.OutputDir)
	if err != nil {
		return fmt.Errorf("init output storage: %w", err)
	}

	pub := publish.New(st.compiler, st.db, out, st.logger, cfg.Publish.Concurrency)
	sum, err := pub.Run(ctx)
	if err != nil {
		return fmt.Errorf("publish run: %w", err)
	}
	if sum.Failed > 0 {
		return fmt.Errorf("publish: %d document(s) failed", sum.Failed)
	}
	return nil
}

// ServeMCP runs the MCP server over stdio.
func ServeMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	st, err := buildStack(app.config)
	if err != nil {
		return err
	}
	defer st.db.Close()

	srv := mcpserver.New(st.store, st.vault, st.compiler, st.db)
	st.logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}

// Run starts the preview server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	st, err := buildStack(cfg)
	if err != nil {
		return err
	}
	defer st.db.Close()
	logger := st.logger

	// SSE broker for live preview reloads.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build API service and router.
	svc := api.NewService(st.vault, st.compiler, st.db)
	apiRouter := api.NewRouter(svc, st.vault, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	// Start file watcher: invalidate compile caches and push SSE events.
	g.Go(func() error {
		return index.Watch(gCtx, st.db, st.store, cfg.Vault.Path, logger, func(kind, path string) {
			svc.Invalidate(path)
			broker.PublishDocumentEvent(kind, path)
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
