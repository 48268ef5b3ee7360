package memory

import (
	"context"
	"sort"
	"time"

	"campus-meal-wallet/internal/core/domain"
	"campus-meal-wallet/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository over a Store.
type WalletRepo struct {
	store *Store
}

// NewWalletRepo creates a WalletRepo over the store.
func NewWalletRepo(store *Store) *WalletRepo {
	return &WalletRepo{store: store}
}

// Create inserts a wallet; an existing id maps to ErrDuplicateEntry.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.wallets[w.ID]; exists {
		return ports.ErrDuplicateEntry
	}
	r.store.wallets[w.ID] = cloneWallet(w)
	return nil
}

// CreateBatch inserts wallets one by one so the failing id surfaces.
func (r *WalletRepo) CreateBatch(ctx context.Context, wallets []*domain.Wallet) error {
	for _, w := range wallets {
		if err := r.Create(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

// GetByID returns a copy of the wallet, or nil when absent.
func (r *WalletRepo) GetByID(ctx context.Context, id string) (*domain.Wallet, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	w, ok := r.store.wallets[id]
	if !ok {
		return nil, nil
	}
	return cloneWallet(w), nil
}

// GetByIDForUpdate reads the wallet under an open transaction. The
// transaction already holds the store's write lock, so the read is as
// stable as a row lock.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Wallet, error) {
	if _, err := asMemTx(tx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// List returns copies of every wallet, ordered by id.
func (r *WalletRepo) List(ctx context.Context) ([]domain.Wallet, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	wallets := make([]domain.Wallet, 0, len(r.store.wallets))
	for _, w := range r.store.wallets {
		wallets = append(wallets, *cloneWallet(w))
	}
	sort.Slice(wallets, func(i, j int) bool { return wallets[i].ID < wallets[j].ID })
	return wallets, nil
}

// UpdateBalance applies a version-conditioned balance write and registers
// the undo for rollback.
func (r *WalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id string, newBalance int64, lastTransactionAt time.Time, version uint64) error {
	mt, err := asMemTx(tx)
	if err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	w, ok := r.store.wallets[id]
	if !ok || w.Version != version {
		return ports.ErrVersionConflict
	}

	prev := cloneWallet(w)
	mt.addUndo(func() { r.store.wallets[id] = prev })

	next := cloneWallet(w)
	next.Balance = newBalance
	next.LastTransactionAt = &lastTransactionAt
	next.Version = version + 1
	next.UpdatedAt = lastTransactionAt
	r.store.wallets[id] = next
	return nil
}
