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

	"github.com/jmoiron/sqlx"

	"stockroom/api/internal/api/handlers"
	"stockroom/api/internal/api/router"
	"stockroom/api/internal/config"
	"stockroom/api/internal/core/services"
	"stockroom/api/internal/db/postgres"
	"stockroom/api/internal/db/repository"
	"stockroom/api/internal/db/sqlite"
	"stockroom/api/internal/infrastructure/crypto"
	"stockroom/api/internal/telemetry"
	"stockroom/api/internal/workers"
)

func main() {
	// --- 1. Core Telemetry & Configuration ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("🚀 Booting Stockroom API...")
	cfg := config.Load()

	// --- 2. Storage ---
	db, err := openDatabase(context.Background(), cfg)
	if err != nil {
		logger.Error("FATAL: DB failed", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// --- 3. Dependency Injection ---
	channel, err := crypto.NewChannel(cfg.ChannelPassphrase)
	if err != nil {
		logger.Error("FATAL: sealed channel init failed", "error", err)
		os.Exit(1)
	}
	if cfg.ChannelPassphrase == crypto.DefaultPassphrase && cfg.IsProduction() {
		logger.Warn("⚠️ CHANNEL_PASSPHRASE is the built-in default; payloads are only obfuscated")
	}

	// 🛡️ Global Telemetry Hub (Memory Bus)
	hub := telemetry.NewHub()

	groupRepo := repository.NewGroupRepository(db)
	productRepo := repository.NewProductRepository(db)

	inventory := services.NewInventoryService(groupRepo, productRepo, hub, logger)

	// --- 4. Background Workers ---
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	if cfg.LowStockThreshold >= 0 {
		monitor := workers.NewStockMonitor(productRepo, hub, logger, cfg.LowStockInterval, cfg.LowStockThreshold)
		go monitor.Start(workerCtx)
	}

	// --- 5. HTTP Gateway ---
	gatewayCtx, cancelGateway := context.WithCancel(context.Background())
	defer cancelGateway()

	mux := router.NewRouter(gatewayCtx, router.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		Sealer:         channel,
		GroupHandler:   handlers.NewGroupHandler(inventory),
		ProductHandler: handlers.NewProductHandler(inventory),
		StatsHandler:   handlers.NewStatsHandler(inventory),
		EventsHandler:  handlers.NewEventsHandler(hub, channel, cfg.AllowedOrigins, logger),
		HealthHandler:  handlers.NewHealthHandler(db),
		Logger:         logger,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		RequestTimeout: cfg.RequestTimeout,
	})

	// WriteTimeout stays 0: /api/events holds its connection open, request
	// handlers are bounded by the router's timeout middleware instead.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// --- 6. Graceful Exit ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("🌐 Stockroom API active", "port", cfg.Port, "env", cfg.Environment, "db", cfg.DBDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("CRITICAL: Server crashed", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	logger.Info("🛑 Shutting down...")
	cancelWorkers()
	cancelGateway() // Stops the rate limiter sweeper

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("ERROR: Forced shutdown", "error", err)
	}
	logger.Info("✅ Stockroom API shutdown complete")
}

// openDatabase connects to the configured backend and applies its schema.
func openDatabase(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	switch cfg.DBDriver {
	case "sqlite":
		return sqlite.Open(ctx, cfg.SQLitePath)
	default:
		db, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	}
}
