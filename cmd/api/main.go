package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-meal-wallet/config"
	httpHandler "campus-meal-wallet/internal/adapter/http/handler"
	memStorage "campus-meal-wallet/internal/adapter/storage/memory"
	pgStorage "campus-meal-wallet/internal/adapter/storage/postgres"
	redisStorage "campus-meal-wallet/internal/adapter/storage/redis"
	"campus-meal-wallet/internal/core/ports"
	"campus-meal-wallet/internal/service"
	"campus-meal-wallet/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("meal-wallet-api", cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("backend", cfg.Storage.Backend).
		Int("port", cfg.Server.Port).
		Msg("Starting Campus Meal Wallet")

	ctx := context.Background()

	var (
		walletRepo     ports.WalletRepository
		txRepo         ports.TransactionRepository
		transactor     ports.DBTransactor
		idempCache     ports.IdempotencyCache
		healthCheckers []ports.HealthChecker
	)

	switch cfg.Storage.Backend {
	case "postgres":
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		log.Info().Msg("PostgreSQL connected")

		if err := pgStorage.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to run schema migration")
		}

		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")

		walletRepo = pgStorage.NewWalletRepo(pool)
		txRepo = pgStorage.NewTransactionRepo(pool)
		transactor = pgStorage.NewTransactor(pool)
		idempCache = redisStorage.NewIdempotencyCache(rdb)
		healthCheckers = []ports.HealthChecker{
			pgStorage.NewHealthCheck(pool),
			redisStorage.NewHealthCheck(rdb),
		}

	case "memory":
		// Self-contained mode: no external dependencies, data is lost
		// on restart. Meant for demos and local development.
		store := memStorage.NewStore()
		walletRepo = memStorage.NewWalletRepo(store)
		txRepo = memStorage.NewTransactionRepo(store)
		transactor = memStorage.NewTransactor(store)
		idempCache = memStorage.NewIdempotencyCache()
		log.Info().Msg("In-memory storage initialised")

	default:
		log.Fatal().Str("backend", cfg.Storage.Backend).Msg("Unknown storage backend")
	}

	// Initialize business services
	ledgerSvc := service.NewLedgerService(
		walletRepo,
		txRepo,
		idempCache,
		transactor,
		cfg.Ledger.MaxRetries,
		cfg.Ledger.IdempotencyTTL,
		log,
	)
	analyticsSvc := service.NewAnalyticsService(walletRepo, txRepo, cfg.Analytics, log)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		AnalyticsSvc:   analyticsSvc,
		HealthCheckers: healthCheckers,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
