package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWallet_IsActive(t *testing.T) {
	tests := []struct {
		name   string
		status WalletStatus
		want   bool
	}{
		{"active", WalletStatusActive, true},
		{"suspended", WalletStatusSuspended, false},
		{"expired", WalletStatusExpired, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Wallet{Status: tt.status}
			assert.Equal(t, tt.want, w.IsActive())
		})
	}
}

func TestWallet_UsableAt(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC)

	w := &Wallet{Status: WalletStatusActive, ValidFrom: from, ValidUntil: until}

	assert.True(t, w.UsableAt(time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)))
	assert.False(t, w.UsableAt(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)), "before validity window")
	assert.False(t, w.UsableAt(time.Date(2027, 1, 10, 12, 0, 0, 0, time.UTC)), "after validity window")

	suspended := &Wallet{Status: WalletStatusSuspended, ValidFrom: from, ValidUntil: until}
	assert.False(t, suspended.UsableAt(time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)))
}

func TestWallet_UsableAt_ZeroWindow(t *testing.T) {
	// Wallets without explicit validity bounds are usable whenever active.
	w := &Wallet{Status: WalletStatusActive}
	assert.True(t, w.UsableAt(time.Now().UTC()))
}

func TestTransaction_IsRefundable(t *testing.T) {
	tests := []struct {
		name string
		txn  Transaction
		want bool
	}{
		{"purchase with order id", Transaction{Type: TransactionTypePurchase, OrderID: "ord-1"}, true},
		{"purchase without order id", Transaction{Type: TransactionTypePurchase}, false},
		{"adjustment", Transaction{Type: TransactionTypeAdjustment}, false},
		{"refund", Transaction{Type: TransactionTypeRefund, OrderID: "ord-1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.txn.IsRefundable())
		})
	}
}

func TestTransaction_RefundID(t *testing.T) {
	txn := Transaction{ID: "txn-123"}
	assert.Equal(t, "refund-txn-123", txn.RefundID())
}

func TestIdempotencyKeys(t *testing.T) {
	assert.Equal(t, "w1:purchase:ord-9", PurchaseIdempotencyKey("w1", "ord-9"))
	assert.Equal(t, "w1:refund:ord-9", RefundIdempotencyKey("w1", "ord-9"))
	assert.NotEqual(t, PurchaseIdempotencyKey("w1", "o"), RefundIdempotencyKey("w1", "o"))
}
