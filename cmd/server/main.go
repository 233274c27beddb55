// Hanasu - Timed Speech Practice Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hanasu-app/hanasu/internal/api"
	"github.com/hanasu-app/hanasu/internal/catalog"
	"github.com/hanasu-app/hanasu/internal/config"
	"github.com/hanasu-app/hanasu/internal/identity"
	"github.com/hanasu-app/hanasu/internal/middleware"
	"github.com/hanasu-app/hanasu/internal/practice"
	"github.com/hanasu-app/hanasu/internal/store"
	"github.com/hanasu-app/hanasu/internal/transcript"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Seed the theme catalog from disk when a payload file is present.
	if cfg.CatalogPath != "" {
		if prompts, err := catalog.LoadFile(cfg.CatalogPath); err != nil {
			slog.Warn("Theme catalog file not loaded", "path", cfg.CatalogPath, "error", err)
		} else if err := repo.UpsertPrompts(context.Background(), prompts); err != nil {
			slog.Error("Failed to seed theme catalog", "error", err)
			os.Exit(1)
		} else {
			slog.Info("Theme catalog seeded", "path", cfg.CatalogPath, "themes", len(prompts))
		}
	}

	// Reading normalization falls back to identity when the dictionary
	// cannot be initialized.
	var normalizer transcript.Normalizer = transcript.IdentityNormalizer{}
	if cfg.ReadingNormalization {
		rn, err := transcript.NewReadingNormalizer()
		if err != nil {
			slog.Warn("Reading normalizer unavailable, transcripts kept verbatim", "error", err)
		} else {
			normalizer = rn
			slog.Info("Reading normalizer initialized")
		}
	}

	// Initialize services.
	mgr := practice.NewManager(repo, catalog.NewDB(repo), normalizer)

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, mgr, cfg.FrontendURL)
	practiceHandler := api.NewPracticeHandler(baseHandler)
	healthHandler := api.NewHealthHandler(repo)
	wsHandler := practice.NewWebSocketHandler(repo, mgr, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS([]string{"*"}))

	// Public routes.
	healthHandler.RegisterHealth(r)
	r.Handle("/metrics", promhttp.Handler())

	// All routes use identity middleware (no auth needed).
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment()))
		practiceHandler.RegisterRoutes(r)

		// WebSocket endpoint.
		r.Get("/ws/practice", wsHandler.ServeHTTP)
	})

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // long-lived WebSocket connections
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
