package memory

import (
	"context"
	"sort"

	"campus-meal-wallet/internal/core/domain"
	"campus-meal-wallet/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository over a Store.
// Entries are append-only; indexes make the idempotency lookups O(1).
type TransactionRepo struct {
	store *Store
}

// NewTransactionRepo creates a TransactionRepo over the store.
func NewTransactionRepo(store *Store) *TransactionRepo {
	return &TransactionRepo{store: store}
}

// Append stores an entry, enforcing the same uniqueness the postgres
// schema does: unique id, unique (wallet, order) per purchase.
func (r *TransactionRepo) Append(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error {
	mt, err := asMemTx(tx)
	if err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.byID[txn.ID]; exists {
		return ports.ErrDuplicateEntry
	}
	key := purchaseKey{walletID: txn.WalletID, orderID: txn.OrderID}
	if txn.IsPurchase() && txn.OrderID != "" {
		if _, exists := r.store.byPurchase[key]; exists {
			return ports.ErrDuplicateEntry
		}
	}

	pos := len(r.store.txns)
	r.store.txns = append(r.store.txns, cloneTransaction(txn))
	r.store.byID[txn.ID] = pos
	if txn.IsPurchase() && txn.OrderID != "" {
		r.store.byPurchase[key] = pos
	}

	mt.addUndo(func() {
		r.store.txns = r.store.txns[:pos]
		delete(r.store.byID, txn.ID)
		delete(r.store.byPurchase, key)
	})
	return nil
}

// GetByID returns a copy of the entry, or nil when absent.
func (r *TransactionRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	pos, ok := r.store.byID[id]
	if !ok {
		return nil, nil
	}
	t := cloneTransaction(&r.store.txns[pos])
	return &t, nil
}

// GetPurchaseByOrderID returns the purchase recorded under the order id,
// or nil when the order was never processed.
func (r *TransactionRepo) GetPurchaseByOrderID(ctx context.Context, walletID, orderID string) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	pos, ok := r.store.byPurchase[purchaseKey{walletID: walletID, orderID: orderID}]
	if !ok {
		return nil, nil
	}
	t := cloneTransaction(&r.store.txns[pos])
	return &t, nil
}

// Query returns matching entries, oldest first.
func (r *TransactionRepo) Query(ctx context.Context, filter ports.TransactionFilter) ([]domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []domain.Transaction
	for i := range r.store.txns {
		t := &r.store.txns[i]
		if filter.WalletID != nil && t.WalletID != *filter.WalletID {
			continue
		}
		if filter.From != nil && t.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && t.Timestamp.After(*filter.To) {
			continue
		}
		out = append(out, cloneTransaction(t))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
