package dto

import "time"

// LineItem is one order line inside a purchase.
type LineItem struct {
	Name     string `json:"name" binding:"required,max=100"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	Price    int64  `json:"price" binding:"gte=0"`
}

// PurchaseRequest is the request body for purchase processing. OrderID is
// the caller's idempotency key: resubmitting it returns the original
// result.
type PurchaseRequest struct {
	WalletID string     `json:"wallet_id" binding:"required,max=64,safe_id"`
	Amount   int64      `json:"amount" binding:"required,gt=0"`
	Vendor   string     `json:"vendor" binding:"required,max=100"`
	OrderID  string     `json:"order_id" binding:"required,max=100,safe_id"`
	Items    []LineItem `json:"items,omitempty" binding:"omitempty,dive"`
}

// RefundRequest is the request body for refunding a recorded purchase.
type RefundRequest struct {
	WalletID string `json:"wallet_id" binding:"required,max=64,safe_id"`
	OrderID  string `json:"order_id" binding:"required,max=100,safe_id"`
	Reason   string `json:"reason" binding:"required,max=200"`
}

// AdjustmentRequest is the request body for a manual balance adjustment.
// The wallet id comes from the URL path.
type AdjustmentRequest struct {
	Kind        string `json:"kind" binding:"required,oneof=add subtract set"`
	Amount      int64  `json:"amount" binding:"gte=0"`
	Reason      string `json:"reason" binding:"required,max=200"`
	ReferenceID string `json:"reference_id,omitempty" binding:"omitempty,max=100,safe_id"`
}

// EnrollmentItem creates one wallet during batch enrollment.
type EnrollmentItem struct {
	WalletID         string     `json:"wallet_id" binding:"required,max=64,safe_id"`
	Name             string     `json:"name" binding:"required,max=100"`
	Email            string     `json:"email" binding:"omitempty,email"`
	InitialBalance   int64      `json:"initial_balance" binding:"gte=0"`
	LimitPerPurchase int64      `json:"limit_per_purchase" binding:"required,gt=0"`
	ValidFrom        *time.Time `json:"valid_from,omitempty"`
	ValidUntil       *time.Time `json:"valid_until,omitempty"`
}

// EnrollmentBatchRequest is the request body for batch wallet creation.
type EnrollmentBatchRequest struct {
	Wallets []EnrollmentItem `json:"wallets" binding:"required,min=1,max=500,dive"`
}

// WalletResponse is the wallet view returned by every wallet endpoint.
type WalletResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email,omitempty"`
	Balance           int64      `json:"balance"`
	Status            string     `json:"status"`
	ValidFrom         *time.Time `json:"valid_from,omitempty"`
	ValidUntil        *time.Time `json:"valid_until,omitempty"`
	LimitPerPurchase  int64      `json:"limit_per_purchase"`
	LastTransactionAt *time.Time `json:"last_transaction_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TransactionResponse is the ledger entry view.
type TransactionResponse struct {
	ID           string     `json:"id"`
	WalletID     string     `json:"wallet_id"`
	Timestamp    time.Time  `json:"timestamp"`
	Type         string     `json:"type"`
	Amount       int64      `json:"amount"`
	BalanceAfter int64      `json:"balance_after"`
	Description  string     `json:"description"`
	Vendor       string     `json:"vendor,omitempty"`
	OrderID      string     `json:"order_id,omitempty"`
	Reason       string     `json:"reason,omitempty"`
	Items        []LineItem `json:"items,omitempty"`
}

// LedgerResultResponse pairs the wallet state after a mutation with the
// entry the mutation appended.
type LedgerResultResponse struct {
	Wallet      WalletResponse      `json:"wallet"`
	Transaction TransactionResponse `json:"transaction"`
}

// WalletListResponse wraps the wallet collection.
type WalletListResponse struct {
	Items []WalletResponse `json:"items"`
	Total int              `json:"total"`
}

// TransactionListResponse wraps a transaction log query result.
type TransactionListResponse struct {
	Items []TransactionResponse `json:"items"`
	Total int                   `json:"total"`
}
