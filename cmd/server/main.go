// Recall - voice-agent memory bridge server
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

	"github.com/lumivoice/recall/internal/agentcache"
	"github.com/lumivoice/recall/internal/api"
	"github.com/lumivoice/recall/internal/config"
	"github.com/lumivoice/recall/internal/greeting"
	"github.com/lumivoice/recall/internal/memory"
	"github.com/lumivoice/recall/internal/postcall"
	"github.com/lumivoice/recall/internal/storage"
	"github.com/lumivoice/recall/internal/store"
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

	slog.Info("Starting server", "port", cfg.Port, "greeting_enabled", cfg.GreetingEnabled())

	// Initialize dependencies.
	deadLetters, err := store.NewSQLite(cfg.DeadLetterDBPath)
	if err != nil {
		slog.Error("Failed to initialize dead-letter database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := deadLetters.Close(); closeErr != nil {
			slog.Error("Failed to close dead-letter store", "error", closeErr)
		}
	}()

	if err := deadLetters.Ping(context.Background()); err != nil {
		slog.Error("Dead-letter database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Dead-letter database connected", "path", cfg.DeadLetterDBPath)

	archiver, err := storage.NewArchiver(cfg.PayloadStoragePath, logger)
	if err != nil {
		slog.Error("Failed to initialize payload archiver", "error", err)
		os.Exit(1)
	}
	slog.Info("Payload archiver ready", "path", cfg.PayloadStoragePath)

	memClient := memory.NewClient(cfg.MemoryStoreURL, cfg.MemoryStoreKey, cfg.MemoryTimeout, logger)
	profiles := memory.NewProfiles(memClient, logger)

	fetcher := agentcache.NewAPIFetcher(cfg.AgentAPIURL, cfg.AgentAPIKey, cfg.LLMTimeout, logger)
	cache, err := agentcache.New(fetcher, cfg.AgentCacheTTL, logger)
	if err != nil {
		slog.Error("Failed to initialize agent cache", "error", err)
		os.Exit(1)
	}
	slog.Info("Agent profile cache ready", "ttl", cfg.AgentCacheTTL)

	generator := greeting.New(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.GreetingMaxTokens, cfg.LLMTimeout, logger)
	if !cfg.GreetingEnabled() {
		slog.Info("Greeting generation disabled (ANTHROPIC_API_KEY not set)")
	}

	processor := postcall.NewProcessor(profiles, cache, generator, archiver, logger)
	pool := postcall.NewPool(processor, deadLetters, cfg.PostCallWorkers, cfg.PostCallQueueSize, logger)
	slog.Info("Post-call worker pool started", "workers", cfg.PostCallWorkers, "queue_size", cfg.PostCallQueueSize)

	handler := api.NewHandler(
		profiles, cache, pool, deadLetters,
		cfg.PostCallHMACSecret, cfg.ClientDataAPIKey, cfg.SearchDataAPIKey,
		logger,
	)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
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

	// Drain in-flight post-call work before exiting.
	pool.Stop()

	slog.Info("Server stopped successfully")
}
