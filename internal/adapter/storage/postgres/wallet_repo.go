package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campus-meal-wallet/internal/core/domain"
	"campus-meal-wallet/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const walletColumns = `id, name, email, balance, status, valid_from, valid_until,
	limit_per_purchase, last_transaction_at, version, created_at, updated_at`

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, name, email, balance, status, valid_from, valid_until,
		limit_per_purchase, last_transaction_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.Name, w.Email, w.Balance, w.Status,
		nullableTime(w.ValidFrom), nullableTime(w.ValidUntil),
		w.LimitPerPurchase, w.LastTransactionAt, w.Version,
		w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicateEntry
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// CreateBatch inserts wallets one statement per wallet; enrollment batches
// are small and a failed id surfaces individually.
func (r *WalletRepo) CreateBatch(ctx context.Context, wallets []*domain.Wallet) error {
	for _, w := range wallets {
		if err := r.Create(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

// GetByID fetches a wallet without locking. Returns nil when absent.
func (r *WalletRepo) GetByID(ctx context.Context, id string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a wallet with a row lock held for the duration
// of tx. This MUST be called within a transaction.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`
	return scanWallet(tx.QueryRow(ctx, query, id))
}

// List fetches every wallet, stable order by id.
func (r *WalletRepo) List(ctx context.Context) ([]domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet row: %w", err)
		}
		wallets = append(wallets, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet rows: %w", err)
	}
	return wallets, nil
}

// UpdateBalance persists a new balance conditioned on the version the
// caller read. Zero rows affected means another writer got there first.
func (r *WalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id string, newBalance int64, lastTransactionAt time.Time, version uint64) error {
	query := `UPDATE wallets
		SET balance = $1, last_transaction_at = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3 AND version = $4`

	tag, err := tx.Exec(ctx, query, newBalance, lastTransactionAt, id, version)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrVersionConflict
	}
	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	var validFrom, validUntil *time.Time
	err := row.Scan(
		&w.ID, &w.Name, &w.Email, &w.Balance, &w.Status,
		&validFrom, &validUntil,
		&w.LimitPerPurchase, &w.LastTransactionAt, &w.Version,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	if validFrom != nil {
		w.ValidFrom = *validFrom
	}
	if validUntil != nil {
		w.ValidUntil = *validUntil
	}
	return w, nil
}

// nullableTime maps the zero time onto NULL so unbounded validity windows
// stay unbounded in the database.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
