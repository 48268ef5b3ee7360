// Package memory is a process-local storage backend. It honors the same
// contracts as the postgres adapter (version-conditioned updates, append
// uniqueness, transactional commit/rollback) so the HTTP stack and the
// ledger service run unchanged in development and in tests.
package memory

import (
	"context"
	"errors"
	"sync"

	"campus-meal-wallet/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// Store holds all in-memory state. Write transactions are serialized by
// writeMu; mu guards the maps for concurrent readers.
type Store struct {
	mu      sync.RWMutex
	writeMu sync.Mutex

	wallets map[string]*domain.Wallet
	txns    []domain.Transaction
	// indexes into txns
	byID       map[string]int
	byPurchase map[purchaseKey]int
}

type purchaseKey struct {
	walletID string
	orderID  string
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		wallets:    make(map[string]*domain.Wallet),
		byID:       make(map[string]int),
		byPurchase: make(map[purchaseKey]int),
	}
}

// Transactor implements ports.DBTransactor for the memory backend.
type Transactor struct {
	store *Store
}

// NewTransactor creates a Transactor over the store.
func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

// Begin acquires the store's write lock; concurrent transactions are
// serialized rather than interleaved, which is what a single-row database
// lock gives the postgres backend.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.store.writeMu.Lock()
	return &memTx{store: t.store}, nil
}

// memTx is the memory backend's transaction handle. Repositories apply
// writes immediately and register undo closures; Rollback replays them in
// reverse. The embedded pgx.Tx is never touched.
type memTx struct {
	pgx.Tx
	store    *Store
	undo     []func()
	released bool
}

var errForeignTx = errors.New("memory: transaction does not belong to this store")

func (t *memTx) addUndo(fn func()) {
	t.undo = append(t.undo, fn)
}

func (t *memTx) Commit(_ context.Context) error {
	if t.released {
		return nil
	}
	t.released = true
	t.undo = nil
	t.store.writeMu.Unlock()
	return nil
}

func (t *memTx) Rollback(_ context.Context) error {
	if t.released {
		return nil
	}
	t.released = true

	t.store.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.store.mu.Unlock()

	t.undo = nil
	t.store.writeMu.Unlock()
	return nil
}

// asMemTx unwraps the transaction handed back by Begin.
func asMemTx(tx pgx.Tx) (*memTx, error) {
	mt, ok := tx.(*memTx)
	if !ok {
		return nil, errForeignTx
	}
	return mt, nil
}

func cloneWallet(w *domain.Wallet) *domain.Wallet {
	c := *w
	if w.LastTransactionAt != nil {
		t := *w.LastTransactionAt
		c.LastTransactionAt = &t
	}
	return &c
}

func cloneTransaction(t *domain.Transaction) domain.Transaction {
	c := *t
	if len(t.Items) > 0 {
		c.Items = append([]domain.LineItem(nil), t.Items...)
	}
	return c
}
