package ports

import (
	"context"
	"errors"
	"time"

	"campus-meal-wallet/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// Sentinel errors shared by every storage backend. The service layer maps
// them onto the apperror taxonomy.
var (
	// ErrVersionConflict signals an optimistic-concurrency loss: the wallet
	// changed between read and write. Safe to retry after re-reading.
	ErrVersionConflict = errors.New("wallet version conflict")
	// ErrDuplicateEntry signals that a transaction id or purchase order id
	// is already present in the log.
	ErrDuplicateEntry = errors.New("duplicate transaction entry")
)

//go:generate mockgen -source=repositories.go -destination=mocks/repositories_mock.go -package=mocks

// WalletRepository is the wallet store contract. Reads return nil (no
// error) on a missing wallet; writes go through UpdateBalance, which is
// conditioned on the version read so concurrent writers lose cleanly
// instead of silently overwriting each other.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	CreateBatch(ctx context.Context, wallets []*domain.Wallet) error
	GetByID(ctx context.Context, id string) (*domain.Wallet, error)
	// GetByIDForUpdate locks the wallet row for the duration of the
	// surrounding database transaction.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Wallet, error)
	List(ctx context.Context) ([]domain.Wallet, error)
	// UpdateBalance persists a new balance and lastTransactionAt iff the
	// stored version still equals version. A stale version yields
	// ErrVersionConflict.
	UpdateBalance(ctx context.Context, tx pgx.Tx, id string, newBalance int64, lastTransactionAt time.Time, version uint64) error
}

// TransactionFilter narrows a transaction log query. Nil fields match
// everything. Results are always in chronological (creation) order.
type TransactionFilter struct {
	WalletID *string
	From     *time.Time
	To       *time.Time
}

// TransactionRepository is the append-only transaction log. There is no
// update or delete: entries are immutable audit records.
type TransactionRepository interface {
	// Append stores a new entry. A duplicate transaction id, or a
	// duplicate (walletId, orderId) pair for purchases, yields
	// ErrDuplicateEntry — this is the idempotency guard.
	Append(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error
	// GetPurchaseByOrderID returns the purchase recorded under the order
	// id, or nil when none exists.
	GetPurchaseByOrderID(ctx context.Context, walletID, orderID string) (*domain.Transaction, error)
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	Query(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error)
}

// DBTransactor provides database transaction management so a wallet update
// and its log append commit or roll back together.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
