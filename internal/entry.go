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
	"github.com/starford/raido/internal/capture"
	"github.com/starford/raido/internal/editsession"
	"github.com/starford/raido/internal/imagestore"
	"github.com/starford/raido/internal/importwatch"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/slipservice"
	"github.com/starford/raido/internal/sliprepo"
	"github.com/starford/raido/internal/sse"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	repo := sliprepo.New()
	svc := slipservice.NewService(repo)

	// MCP mode serves tools over stdio and skips the HTTP stack.
	if app.mcpMode {
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(svc).ServeStdio()
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("images_path", cfg.Images.Path),
		slog.String("import_inbox", cfg.Import.InboxPath),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure image directory exists.
	if err := os.MkdirAll(cfg.Images.Path, 0o755); err != nil {
		return fmt.Errorf("create images dir: %w", err)
	}

	images, err := imagestore.NewFS(cfg.Images.Path)
	if err != nil {
		return fmt.Errorf("init image store: %w", err)
	}

	// SSE broker, fed by repository change notifications.
	broker := sse.NewBroker(2 * time.Second)
	repo.OnChange(func(c sliprepo.Change) {
		switch c.Kind {
		case sliprepo.ChangeImported:
			broker.PublishImport(c.Count)
		case sliprepo.ChangeCreated:
			broker.PublishSlipEvent("created", c.ID)
		case sliprepo.ChangeUpdated:
			broker.PublishSlipEvent("updated", c.ID)
		case sliprepo.ChangeDeleted:
			broker.PublishSlipEvent("deleted", c.ID)
		}
	})

	rec := app.recognizer
	if rec == nil {
		rec = capture.NewStub(2 * time.Second)
	}
	session := capture.NewSession(rec, repo, capture.Config{
		Timeout:       cfg.Capture.RecognitionTimeout,
		LowConfidence: cfg.Capture.LowConfidence,
	})
	// Remove preview images the session is done with.
	session.OnDiscard(func(ref string) {
		_ = images.Delete(ref)
	})
	editor := editsession.New()

	apiRouter := api.NewRouter(svc, session, editor, images,
		cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	// Start the workbook inbox watcher when configured.
	if cfg.Import.InboxPath != "" {
		if err := os.MkdirAll(cfg.Import.InboxPath, 0o755); err != nil {
			return fmt.Errorf("create import inbox: %w", err)
		}
		g.Go(func() error {
			if err := importwatch.Watch(gCtx, cfg.Import.InboxPath, svc, logger); err != nil {
				logger.Error("import watcher failed", slog.String("error", err.Error()))
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

		broker.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
