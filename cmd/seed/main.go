// Command seed loads a demo dataset into the database through the ledger
// service, so every seeded balance is reachable by replaying the
// transaction log.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"campus-meal-wallet/config"
	pgStorage "campus-meal-wallet/internal/adapter/storage/postgres"
	redisStorage "campus-meal-wallet/internal/adapter/storage/redis"
	"campus-meal-wallet/internal/core/domain"
	"campus-meal-wallet/internal/core/ports"
	"campus-meal-wallet/internal/service"
	"campus-meal-wallet/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("meal-wallet-seed", cfg.Log.Level, cfg.Log.Pretty)
	ctx := context.Background()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	if err := pgStorage.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run schema migration")
	}

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	ledgerSvc := service.NewLedgerService(
		pgStorage.NewWalletRepo(pool),
		pgStorage.NewTransactionRepo(pool),
		redisStorage.NewIdempotencyCache(rdb),
		pgStorage.NewTransactor(pool),
		cfg.Ledger.MaxRetries,
		cfg.Ledger.IdempotencyTTL,
		log,
	)

	now := time.Now().UTC()
	termEnd := now.AddDate(0, 6, 0)

	enrollments := []ports.EnrollmentRequest{
		{WalletID: "w-2025-001", Name: "Ana Garcia", Email: "ana.garcia@university.edu", InitialBalance: 50000, LimitPerPurchase: 2500, ValidUntil: termEnd},
		{WalletID: "w-2025-002", Name: "Ben Okafor", Email: "ben.okafor@university.edu", InitialBalance: 50000, LimitPerPurchase: 2500, ValidUntil: termEnd},
		{WalletID: "w-2025-003", Name: "Chloe Martin", Email: "chloe.martin@university.edu", InitialBalance: 30000, LimitPerPurchase: 2000, ValidUntil: termEnd},
		{WalletID: "w-2025-004", Name: "Diego Reyes", Email: "diego.reyes@university.edu", InitialBalance: 30000, LimitPerPurchase: 2000, ValidUntil: termEnd},
		{WalletID: "w-2025-005", Name: "Emma Novak", Email: "emma.novak@university.edu", InitialBalance: 0, LimitPerPurchase: 2500, ValidUntil: termEnd},
	}

	wallets, err := ledgerSvc.EnrollWallets(ctx, enrollments)
	if err != nil {
		log.Fatal().Err(err).Msg("Enrollment failed")
	}
	log.Info().Int("count", len(wallets)).Msg("Wallets enrolled")

	purchases := []ports.PurchaseRequest{
		{WalletID: "w-2025-001", Amount: 1800, Vendor: "Campus Cafe", OrderID: "seed-order-001",
			Items: []domain.LineItem{{Name: "Lunch menu", Quantity: 1, Price: 1800}}},
		{WalletID: "w-2025-001", Amount: 650, Vendor: "Juice Bar", OrderID: "seed-order-002",
			Items: []domain.LineItem{{Name: "Smoothie", Quantity: 1, Price: 650}}},
		{WalletID: "w-2025-002", Amount: 2200, Vendor: "Campus Cafe", OrderID: "seed-order-003",
			Items: []domain.LineItem{{Name: "Dinner menu", Quantity: 1, Price: 2200}}},
		{WalletID: "w-2025-003", Amount: 1200, Vendor: "Snack Corner", OrderID: "seed-order-004",
			Items: []domain.LineItem{{Name: "Sandwich", Quantity: 2, Price: 600}}},
	}

	for _, p := range purchases {
		if _, err := ledgerSvc.ProcessPurchase(ctx, p); err != nil {
			log.Fatal().Err(err).Str("order_id", p.OrderID).Msg("Seed purchase failed")
		}
	}
	log.Info().Int("count", len(purchases)).Msg("Seed purchases recorded")

	// One refund so the demo dashboard shows all three entry types.
	if _, err := ledgerSvc.RefundPurchase(ctx, ports.RefundRequest{
		WalletID: "w-2025-003",
		OrderID:  "seed-order-004",
		Reason:   "order cancelled at pickup",
	}); err != nil {
		log.Fatal().Err(err).Msg("Seed refund failed")
	}

	log.Info().Msg("Seed complete")
}
