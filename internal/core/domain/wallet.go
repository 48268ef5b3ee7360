package domain

import (
	"time"
)

// WalletStatus represents the administrative state of a wallet. Transitions
// are driven by external administrative action, never by the ledger itself.
type WalletStatus string

const (
	WalletStatusActive    WalletStatus = "active"
	WalletStatusSuspended WalletStatus = "suspended"
	WalletStatusExpired   WalletStatus = "expired"
)

// Wallet is a student's prepaid meal-benefit balance. Balance is an integer
// in minor currency units; it is only ever mutated through the ledger
// service, which keeps it consistent with the transaction log.
type Wallet struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Email             string       `json:"email,omitempty"`
	Balance           int64        `json:"balance"`
	Status            WalletStatus `json:"status"`
	ValidFrom         time.Time    `json:"valid_from"`
	ValidUntil        time.Time    `json:"valid_until"`
	LimitPerPurchase  int64        `json:"limit_per_purchase"`
	LastTransactionAt *time.Time   `json:"last_transaction_at,omitempty"`
	// Version implements optimistic concurrency: a balance update carrying
	// a stale version is rejected, forcing the writer to re-read.
	Version   uint64    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive returns true if the wallet's status permits purchases.
func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}

// UsableAt reports whether the wallet may be charged at the given instant:
// status active and inside the validity window.
func (w *Wallet) UsableAt(at time.Time) bool {
	if !w.IsActive() {
		return false
	}
	if !w.ValidFrom.IsZero() && at.Before(w.ValidFrom) {
		return false
	}
	if !w.ValidUntil.IsZero() && at.After(w.ValidUntil) {
		return false
	}
	return true
}
