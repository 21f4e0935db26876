package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"jobradar/internal/api/routes"
	"jobradar/internal/config"
	"jobradar/internal/dedup"
	"jobradar/internal/logging"
	"jobradar/internal/notify"
	"jobradar/internal/retry"
	"jobradar/internal/scraper"
	"jobradar/internal/storage"
	"jobradar/internal/workflow"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := logging.Setup(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	logger.Info("Starting JobRadar Aggregator")

	// Initialize storage
	store, err := newStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize storage", map[string]interface{}{"error": err.Error()})
	}
	defer store.Close()

	// Wire the pipeline
	factory := scraper.NewSiteFactory(cfg)
	retrier := retry.NewHandler(cfg, logger)
	detector := dedup.NewDetector(store, cfg, logger)
	dispatcher := notify.NewDispatcher(cfg, store, logger)
	executor := workflow.NewExecutor(cfg, store, factory, retrier, detector, dispatcher, logger)

	ctx := context.Background()

	var scheduler *workflow.Scheduler
	if cfg.Workflow.ScheduleEnabled {
		scheduler = workflow.NewScheduler(cfg, executor, logger)
		scheduler.Start(ctx)
	}

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Setup routes
	routes.SetupRoutes(e, cfg, executor, store, retrier)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if scheduler != nil {
			logger.Info("Stopping scheduler...")
			scheduler.Stop()
		}

		logger.Info("Stopping HTTP server...")
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down server", map[string]interface{}{"error": err.Error()})
		}

		if err := store.Close(); err != nil {
			logger.Error("Error closing storage", map[string]interface{}{"error": err.Error()})
		}

		logger.Info("Server shutdown complete")
	}()

	// Start server
	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", map[string]interface{}{"address": address})

	if err := e.Start(address); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server failed to start", map[string]interface{}{"error": err.Error()})
	}
}

// newStore builds the configured persistence store, optionally wrapped
// with the Redis hot-path cache.
func newStore(cfg *config.Config, logger logging.Logger) (storage.PersistenceStore, error) {
	var store storage.PersistenceStore
	switch cfg.Storage.Driver {
	case "postgres":
		pg, err := storage.NewPostgresStore(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		store = pg
		logger.Info("Using Postgres storage", map[string]interface{}{
			"max_conns": cfg.Storage.Postgres.MaxConns,
		})
	case "memory", "":
		store = storage.NewMemoryStore()
		logger.Warn("Using in-memory storage; data will not survive restarts")
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}

	if cfg.Storage.Redis.Enabled {
		cached, err := storage.NewCachedStore(store, cfg, logger)
		if err != nil {
			logger.Warn("Redis cache unavailable, continuing without it", map[string]interface{}{
				"error": err.Error(),
			})
			return store, nil
		}
		logger.Info("Redis cache enabled")
		return cached, nil
	}
	return store, nil
}
