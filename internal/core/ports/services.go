package ports

import (
	"context"
	"time"

	"campus-meal-wallet/internal/core/domain"
)

//go:generate mockgen -source=services.go -destination=mocks/services_mock.go -package=mocks

// IdempotencyCache is the Redis-layer idempotency fast path. The durable
// guard is the transaction log's append uniqueness; this layer only spares
// the database a round trip on obvious retries.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // cached result JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// --- Service Ports (Business Logic) ---

// PurchaseRequest holds validated input for a purchase deduction.
// Amount is positive, in minor currency units; OrderID is the caller's
// idempotency key.
type PurchaseRequest struct {
	WalletID string
	Amount   int64
	Vendor   string
	OrderID  string
	Items    []domain.LineItem
}

// AdjustmentRequest holds input for a manual balance adjustment.
// ReferenceID, when set, becomes the transaction id so a retried request
// collides on the append guard instead of applying twice.
type AdjustmentRequest struct {
	WalletID    string
	Kind        domain.AdjustmentKind
	Amount      int64
	Reason      string
	ReferenceID string
}

// RefundRequest reverses a previously recorded purchase in full.
type RefundRequest struct {
	WalletID string
	OrderID  string
	Reason   string
}

// EnrollmentRequest creates one wallet during batch enrollment.
type EnrollmentRequest struct {
	WalletID         string
	Name             string
	Email            string
	InitialBalance   int64
	LimitPerPurchase int64
	ValidFrom        time.Time
	ValidUntil       time.Time
}

// LedgerResult pairs the wallet state after an operation with the ledger
// entry the operation appended.
type LedgerResult struct {
	Wallet      *domain.Wallet      `json:"wallet"`
	Transaction *domain.Transaction `json:"transaction"`
}

// LedgerService is the transaction processor: the only writer of the
// wallet store and the transaction log.
type LedgerService interface {
	ProcessPurchase(ctx context.Context, req PurchaseRequest) (*LedgerResult, error)
	AdjustBalance(ctx context.Context, req AdjustmentRequest) (*LedgerResult, error)
	RefundPurchase(ctx context.Context, req RefundRequest) (*LedgerResult, error)
	EnrollWallets(ctx context.Context, reqs []EnrollmentRequest) ([]domain.Wallet, error)
	GetWallet(ctx context.Context, walletID string) (*domain.Wallet, error)
	ListWallets(ctx context.Context) ([]domain.Wallet, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error)
}

// AnalyticsService derives reporting aggregates from the transaction log
// and a wallet snapshot. Read-only; it never blocks writers and tolerates
// eventually-consistent snapshots.
type AnalyticsService interface {
	GetAnalytics(ctx context.Context, windowDays int) (*domain.AnalyticsReport, error)
	GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error)
}
