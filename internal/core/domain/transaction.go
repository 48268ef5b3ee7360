package domain

import (
	"time"
)

// TransactionType represents the kind of balance-affecting event.
type TransactionType string

const (
	TransactionTypePurchase   TransactionType = "purchase"
	TransactionTypeAdjustment TransactionType = "adjustment"
	TransactionTypeRefund     TransactionType = "refund"
)

// AdjustmentKind selects the arithmetic of a manual balance adjustment.
type AdjustmentKind string

const (
	AdjustmentAdd      AdjustmentKind = "add"
	AdjustmentSubtract AdjustmentKind = "subtract"
	AdjustmentSet      AdjustmentKind = "set"
)

// LineItem is a purchased item, carried on purchase transactions for audit.
type LineItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// Transaction is an immutable ledger entry. Amount is the signed delta that
// was actually applied to the wallet balance (purchases negative, refunds
// and top-ups positive), so replaying a wallet's entries in creation order
// reproduces its balance exactly. The id doubles as the idempotency key.
type Transaction struct {
	ID           string          `json:"id"`
	WalletID     string          `json:"wallet_id"`
	Timestamp    time.Time       `json:"timestamp"`
	Type         TransactionType `json:"type"`
	Amount       int64           `json:"amount"`
	BalanceAfter int64           `json:"balance_after"`
	Description  string          `json:"description,omitempty"`
	Vendor       string          `json:"vendor,omitempty"`
	OrderID      string          `json:"order_id,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	Items        []LineItem      `json:"items,omitempty"`
}

// IsPurchase reports whether the entry was a purchase deduction.
func (t *Transaction) IsPurchase() bool {
	return t.Type == TransactionTypePurchase
}

// IsRefundable returns true if a refund may be issued against this entry.
func (t *Transaction) IsRefundable() bool {
	return t.Type == TransactionTypePurchase && t.OrderID != ""
}

// RefundID derives the deterministic id of the refund entry for a purchase,
// so a retried refund collides on the append guard instead of applying twice.
func (t *Transaction) RefundID() string {
	return "refund-" + t.ID
}

// PurchaseIdempotencyKey builds the fast-path cache key for a purchase.
func PurchaseIdempotencyKey(walletID, orderID string) string {
	return walletID + ":purchase:" + orderID
}

// RefundIdempotencyKey builds the fast-path cache key for a refund.
func RefundIdempotencyKey(walletID, orderID string) string {
	return walletID + ":refund:" + orderID
}
