package postgres

import (
	"context"
	"fmt"
)

// The partial unique index on (wallet_id, order_id) is the durable
// idempotency guard for purchases: a concurrent resubmit of the same order
// fails the append instead of deducting twice.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS wallets (
		id                  TEXT PRIMARY KEY,
		name                TEXT NOT NULL DEFAULT '',
		email               TEXT NOT NULL DEFAULT '',
		balance             BIGINT NOT NULL DEFAULT 0,
		status              TEXT NOT NULL DEFAULT 'active',
		valid_from          TIMESTAMPTZ,
		valid_until         TIMESTAMPTZ,
		limit_per_purchase  BIGINT NOT NULL DEFAULT 0,
		last_transaction_at TIMESTAMPTZ,
		version             BIGINT NOT NULL DEFAULT 0,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id            TEXT PRIMARY KEY,
		wallet_id     TEXT NOT NULL REFERENCES wallets(id),
		ts            TIMESTAMPTZ NOT NULL,
		type          TEXT NOT NULL,
		amount        BIGINT NOT NULL,
		balance_after BIGINT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		vendor        TEXT NOT NULL DEFAULT '',
		order_id      TEXT NOT NULL DEFAULT '',
		reason        TEXT NOT NULL DEFAULT '',
		items         JSONB
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_transactions_purchase_order
		ON transactions (wallet_id, order_id)
		WHERE type = 'purchase' AND order_id <> ''`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_wallet_ts
		ON transactions (wallet_id, ts)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_ts
		ON transactions (ts)`,
}

// Migrate applies the schema. Every statement is idempotent, so running it
// on startup is safe.
func Migrate(ctx context.Context, pool Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
