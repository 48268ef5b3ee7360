package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"campus-meal-wallet/internal/core/domain"
	"campus-meal-wallet/internal/core/ports"
	"campus-meal-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// timeNow is injectable for deterministic tests.
var timeNow = func() time.Time {
	return time.Now().UTC()
}

// LedgerServiceImpl implements ports.LedgerService. It is the only writer
// of the wallet store and the transaction log; every mutation commits the
// wallet update and the log append in one database transaction.
type LedgerServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	idempCache ports.IdempotencyCache
	transactor ports.DBTransactor
	maxRetries int
	idempTTL   time.Duration
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl. maxRetries bounds the
// optimistic-concurrency retry loop; it never applies to domain errors.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	maxRetries int,
	idempTTL time.Duration,
	log zerolog.Logger,
) *LedgerServiceImpl {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &LedgerServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		idempCache: idempCache,
		transactor: transactor,
		maxRetries: maxRetries,
		idempTTL:   idempTTL,
		log:        log,
	}
}

// ProcessPurchase validates and applies a purchase deduction. Resubmitting
// a previously used orderId returns the original result without touching
// the balance again.
func (s *LedgerServiceImpl) ProcessPurchase(ctx context.Context, req ports.PurchaseRequest) (*ports.LedgerResult, error) {
	if req.WalletID == "" {
		return nil, apperror.Validation("wallet id is required")
	}
	if req.Amount <= 0 {
		return nil, apperror.Validation("purchase amount must be positive")
	}
	if req.OrderID == "" {
		return nil, apperror.Validation("order id is required")
	}
	if req.Vendor == "" {
		return nil, apperror.Validation("vendor is required")
	}

	idempKey := domain.PurchaseIdempotencyKey(req.WalletID, req.OrderID)

	// Layer 1: Redis fast path.
	if cached := s.cachedResult(ctx, idempKey); cached != nil {
		return cached, nil
	}

	// Layer 2: durable guard — the transaction log itself.
	prior, err := s.txRepo.GetPurchaseByOrderID(ctx, req.WalletID, req.OrderID)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("order id lookup: %w", err))
	}
	if prior != nil {
		return s.replayResult(ctx, prior)
	}

	var result *ports.LedgerResult
	for attempt := 1; ; attempt++ {
		result, err = s.applyPurchase(ctx, req)
		if err == nil {
			break
		}
		if errors.Is(err, ports.ErrDuplicateEntry) {
			// A concurrent submit of the same order id won the race.
			prior, lookupErr := s.txRepo.GetPurchaseByOrderID(ctx, req.WalletID, req.OrderID)
			if lookupErr != nil || prior == nil {
				return nil, apperror.ErrDuplicateTransaction()
			}
			return s.replayResult(ctx, prior)
		}
		if !errors.Is(err, ports.ErrVersionConflict) {
			return nil, err
		}
		if attempt >= s.maxRetries {
			return nil, apperror.ErrConcurrencyConflict(err)
		}
		s.log.Debug().
			Str("wallet_id", req.WalletID).
			Int("attempt", attempt).
			Msg("optimistic conflict on purchase, retrying")
	}

	s.storeResult(ctx, idempKey, result)

	s.log.Info().
		Str("tx_id", result.Transaction.ID).
		Str("wallet_id", req.WalletID).
		Str("order_id", req.OrderID).
		Int64("amount", req.Amount).
		Int64("balance_after", result.Wallet.Balance).
		Msg("purchase processed")

	return result, nil
}

func (s *LedgerServiceImpl) applyPurchase(ctx context.Context, req ports.PurchaseRequest) (*ports.LedgerResult, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, req.WalletID)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound(req.WalletID)
	}

	now := timeNow()
	if !wallet.UsableAt(now) {
		return nil, apperror.ErrWalletInactive()
	}
	if req.Amount > wallet.Balance {
		return nil, apperror.ErrInsufficientFunds()
	}
	if req.Amount > wallet.LimitPerPurchase {
		return nil, apperror.ErrLimitExceeded()
	}

	newBalance := wallet.Balance - req.Amount
	txn := &domain.Transaction{
		ID:           "txn-" + uuid.NewString(),
		WalletID:     wallet.ID,
		Timestamp:    now,
		Type:         domain.TransactionTypePurchase,
		Amount:       -req.Amount,
		BalanceAfter: newBalance,
		Description:  purchaseDescription(req.Vendor, req.Items),
		Vendor:       req.Vendor,
		OrderID:      req.OrderID,
		Items:        req.Items,
	}

	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, newBalance, now, wallet.Version); err != nil {
		if errors.Is(err, ports.ErrVersionConflict) {
			return nil, err
		}
		return nil, apperror.ErrPersistence(fmt.Errorf("update balance: %w", err))
	}
	if err := s.txRepo.Append(ctx, dbTx, txn); err != nil {
		if errors.Is(err, ports.ErrDuplicateEntry) {
			return nil, err
		}
		return nil, apperror.ErrPersistence(fmt.Errorf("append transaction: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("commit tx: %w", err))
	}

	updated := *wallet
	updated.Balance = newBalance
	updated.LastTransactionAt = &now
	updated.Version = wallet.Version + 1
	updated.UpdatedAt = now

	return &ports.LedgerResult{Wallet: &updated, Transaction: txn}, nil
}

// AdjustBalance applies a manual adjustment. Subtract clamps at zero and
// records the actual delta applied, not the requested amount, so replaying
// the log always reproduces the balance.
func (s *LedgerServiceImpl) AdjustBalance(ctx context.Context, req ports.AdjustmentRequest) (*ports.LedgerResult, error) {
	if req.WalletID == "" {
		return nil, apperror.Validation("wallet id is required")
	}
	if req.Reason == "" {
		return nil, apperror.Validation("adjustment reason is required")
	}
	switch req.Kind {
	case domain.AdjustmentAdd, domain.AdjustmentSubtract:
		if req.Amount <= 0 {
			return nil, apperror.Validation("adjustment amount must be positive")
		}
	case domain.AdjustmentSet:
		if req.Amount < 0 {
			return nil, apperror.Validation("balance cannot be set to a negative value")
		}
	default:
		return nil, apperror.Validation("adjustment kind must be add, subtract or set")
	}

	var (
		result *ports.LedgerResult
		err    error
	)
	for attempt := 1; ; attempt++ {
		result, err = s.applyAdjustment(ctx, req)
		if err == nil {
			break
		}
		if errors.Is(err, ports.ErrDuplicateEntry) {
			// A retried reference id: return the result recorded first.
			return s.replayAdjustment(ctx, req)
		}
		if !errors.Is(err, ports.ErrVersionConflict) {
			return nil, err
		}
		if attempt >= s.maxRetries {
			return nil, apperror.ErrConcurrencyConflict(err)
		}
		s.log.Debug().
			Str("wallet_id", req.WalletID).
			Int("attempt", attempt).
			Msg("optimistic conflict on adjustment, retrying")
	}

	s.log.Info().
		Str("tx_id", result.Transaction.ID).
		Str("wallet_id", req.WalletID).
		Str("kind", string(req.Kind)).
		Int64("requested", req.Amount).
		Int64("applied", result.Transaction.Amount).
		Int64("balance_after", result.Wallet.Balance).
		Msg("balance adjusted")

	return result, nil
}

func (s *LedgerServiceImpl) applyAdjustment(ctx context.Context, req ports.AdjustmentRequest) (*ports.LedgerResult, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, req.WalletID)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound(req.WalletID)
	}

	var newBalance int64
	switch req.Kind {
	case domain.AdjustmentAdd:
		newBalance = wallet.Balance + req.Amount
	case domain.AdjustmentSubtract:
		newBalance = wallet.Balance - req.Amount
		if newBalance < 0 {
			newBalance = 0
		}
	case domain.AdjustmentSet:
		newBalance = req.Amount
	}

	now := timeNow()
	txnID := req.ReferenceID
	if txnID == "" {
		txnID = "txn-" + uuid.NewString()
	}
	txn := &domain.Transaction{
		ID:        txnID,
		WalletID:  wallet.ID,
		Timestamp: now,
		Type:      domain.TransactionTypeAdjustment,
		// The actual delta, which for Subtract may be smaller in magnitude
		// than the requested amount.
		Amount:       newBalance - wallet.Balance,
		BalanceAfter: newBalance,
		Description:  adjustmentDescription(req.Kind, req.Reason),
		Reason:       req.Reason,
	}

	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, newBalance, now, wallet.Version); err != nil {
		if errors.Is(err, ports.ErrVersionConflict) {
			return nil, err
		}
		return nil, apperror.ErrPersistence(fmt.Errorf("update balance: %w", err))
	}
	if err := s.txRepo.Append(ctx, dbTx, txn); err != nil {
		if errors.Is(err, ports.ErrDuplicateEntry) {
			return nil, err
		}
		return nil, apperror.ErrPersistence(fmt.Errorf("append transaction: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("commit tx: %w", err))
	}

	updated := *wallet
	updated.Balance = newBalance
	updated.LastTransactionAt = &now
	updated.Version = wallet.Version + 1
	updated.UpdatedAt = now

	return &ports.LedgerResult{Wallet: &updated, Transaction: txn}, nil
}

// replayAdjustment resolves a duplicate reference id to the entry recorded
// on the first attempt.
func (s *LedgerServiceImpl) replayAdjustment(ctx context.Context, req ports.AdjustmentRequest) (*ports.LedgerResult, error) {
	if req.ReferenceID == "" {
		return nil, apperror.ErrDuplicateTransaction()
	}
	prior, err := s.txRepo.GetByID(ctx, req.ReferenceID)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("reference id lookup: %w", err))
	}
	if prior == nil {
		return nil, apperror.ErrDuplicateTransaction()
	}
	return s.replayResult(ctx, prior)
}

// RefundPurchase reverses a recorded purchase in full. The refund entry id
// is derived from the purchase, so a retried refund collides on the append
// guard instead of crediting twice.
func (s *LedgerServiceImpl) RefundPurchase(ctx context.Context, req ports.RefundRequest) (*ports.LedgerResult, error) {
	if req.WalletID == "" {
		return nil, apperror.Validation("wallet id is required")
	}
	if req.OrderID == "" {
		return nil, apperror.Validation("order id is required")
	}

	idempKey := domain.RefundIdempotencyKey(req.WalletID, req.OrderID)
	if cached := s.cachedResult(ctx, idempKey); cached != nil {
		return cached, nil
	}

	orig, err := s.txRepo.GetPurchaseByOrderID(ctx, req.WalletID, req.OrderID)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("order id lookup: %w", err))
	}
	if orig == nil || !orig.IsRefundable() {
		return nil, apperror.ErrRefundNotEligible()
	}

	existing, err := s.txRepo.GetByID(ctx, orig.RefundID())
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("refund lookup: %w", err))
	}
	if existing != nil {
		return s.replayResult(ctx, existing)
	}

	var result *ports.LedgerResult
	for attempt := 1; ; attempt++ {
		result, err = s.applyRefund(ctx, req, orig)
		if err == nil {
			break
		}
		if errors.Is(err, ports.ErrDuplicateEntry) {
			prior, lookupErr := s.txRepo.GetByID(ctx, orig.RefundID())
			if lookupErr != nil || prior == nil {
				return nil, apperror.ErrDuplicateTransaction()
			}
			return s.replayResult(ctx, prior)
		}
		if !errors.Is(err, ports.ErrVersionConflict) {
			return nil, err
		}
		if attempt >= s.maxRetries {
			return nil, apperror.ErrConcurrencyConflict(err)
		}
	}

	s.storeResult(ctx, idempKey, result)

	s.log.Info().
		Str("tx_id", result.Transaction.ID).
		Str("wallet_id", req.WalletID).
		Str("order_id", req.OrderID).
		Int64("amount", result.Transaction.Amount).
		Msg("refund processed")

	return result, nil
}

func (s *LedgerServiceImpl) applyRefund(ctx context.Context, req ports.RefundRequest, orig *domain.Transaction) (*ports.LedgerResult, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, req.WalletID)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound(req.WalletID)
	}

	refundAmount := -orig.Amount // purchase amounts are negative
	newBalance := wallet.Balance + refundAmount
	now := timeNow()
	txn := &domain.Transaction{
		ID:           orig.RefundID(),
		WalletID:     wallet.ID,
		Timestamp:    now,
		Type:         domain.TransactionTypeRefund,
		Amount:       refundAmount,
		BalanceAfter: newBalance,
		Description:  fmt.Sprintf("Refund for order %s: %s", req.OrderID, req.Reason),
		Vendor:       orig.Vendor,
		OrderID:      orig.OrderID,
		Reason:       req.Reason,
	}

	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, newBalance, now, wallet.Version); err != nil {
		if errors.Is(err, ports.ErrVersionConflict) {
			return nil, err
		}
		return nil, apperror.ErrPersistence(fmt.Errorf("update balance: %w", err))
	}
	if err := s.txRepo.Append(ctx, dbTx, txn); err != nil {
		if errors.Is(err, ports.ErrDuplicateEntry) {
			return nil, err
		}
		return nil, apperror.ErrPersistence(fmt.Errorf("append transaction: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("commit tx: %w", err))
	}

	updated := *wallet
	updated.Balance = newBalance
	updated.LastTransactionAt = &now
	updated.Version = wallet.Version + 1
	updated.UpdatedAt = now

	return &ports.LedgerResult{Wallet: &updated, Transaction: txn}, nil
}

// EnrollWallets creates wallets in batch. Each opening balance is applied
// through a normal adjustment with a deterministic reference id, so every
// wallet's history replays from zero and re-running a failed batch is safe.
func (s *LedgerServiceImpl) EnrollWallets(ctx context.Context, reqs []ports.EnrollmentRequest) ([]domain.Wallet, error) {
	if len(reqs) == 0 {
		return nil, apperror.Validation("at least one enrollment is required")
	}

	now := timeNow()
	wallets := make([]*domain.Wallet, 0, len(reqs))
	for i, req := range reqs {
		if req.WalletID == "" {
			return nil, apperror.Validation(fmt.Sprintf("enrollment %d: wallet id is required", i))
		}
		if req.InitialBalance < 0 {
			return nil, apperror.Validation(fmt.Sprintf("enrollment %d: initial balance cannot be negative", i))
		}
		if req.LimitPerPurchase <= 0 {
			return nil, apperror.Validation(fmt.Sprintf("enrollment %d: limit per purchase must be positive", i))
		}
		wallets = append(wallets, &domain.Wallet{
			ID:               req.WalletID,
			Name:             req.Name,
			Email:            req.Email,
			Balance:          0,
			Status:           domain.WalletStatusActive,
			ValidFrom:        req.ValidFrom,
			ValidUntil:       req.ValidUntil,
			LimitPerPurchase: req.LimitPerPurchase,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}

	if err := s.walletRepo.CreateBatch(ctx, wallets); err != nil {
		if errors.Is(err, ports.ErrDuplicateEntry) {
			return nil, apperror.ErrDuplicateTransaction()
		}
		return nil, apperror.ErrPersistence(fmt.Errorf("create wallets: %w", err))
	}

	enrolled := make([]domain.Wallet, 0, len(reqs))
	for _, req := range reqs {
		if req.InitialBalance > 0 {
			result, err := s.AdjustBalance(ctx, ports.AdjustmentRequest{
				WalletID:    req.WalletID,
				Kind:        domain.AdjustmentAdd,
				Amount:      req.InitialBalance,
				Reason:      "initial enrollment allocation",
				ReferenceID: "enroll-" + req.WalletID,
			})
			if err != nil {
				return nil, err
			}
			enrolled = append(enrolled, *result.Wallet)
			continue
		}
		w, err := s.walletRepo.GetByID(ctx, req.WalletID)
		if err != nil {
			return nil, apperror.ErrPersistence(fmt.Errorf("load wallet: %w", err))
		}
		if w == nil {
			return nil, apperror.ErrWalletNotFound(req.WalletID)
		}
		enrolled = append(enrolled, *w)
	}

	s.log.Info().Int("count", len(enrolled)).Msg("wallets enrolled")
	return enrolled, nil
}

// GetWallet returns the current wallet state.
func (s *LedgerServiceImpl) GetWallet(ctx context.Context, walletID string) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound(walletID)
	}
	return wallet, nil
}

// ListWallets returns every wallet.
func (s *LedgerServiceImpl) ListWallets(ctx context.Context) ([]domain.Wallet, error) {
	wallets, err := s.walletRepo.List(ctx)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("list wallets: %w", err))
	}
	return wallets, nil
}

// GetTransactions returns log entries in chronological order.
func (s *LedgerServiceImpl) GetTransactions(ctx context.Context, filter ports.TransactionFilter) ([]domain.Transaction, error) {
	txns, err := s.txRepo.Query(ctx, filter)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("query transactions: %w", err))
	}
	return txns, nil
}

// replayResult rebuilds a LedgerResult for an already-recorded entry.
func (s *LedgerServiceImpl) replayResult(ctx context.Context, txn *domain.Transaction) (*ports.LedgerResult, error) {
	wallet, err := s.walletRepo.GetByID(ctx, txn.WalletID)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound(txn.WalletID)
	}
	s.log.Info().
		Str("tx_id", txn.ID).
		Str("wallet_id", txn.WalletID).
		Msg("idempotent replay, returning recorded transaction")
	return &ports.LedgerResult{Wallet: wallet, Transaction: txn}, nil
}

// cachedResult checks the Redis fast path; failures only log, the request
// falls through to the durable guard.
func (s *LedgerServiceImpl) cachedResult(ctx context.Context, key string) *ports.LedgerResult {
	if s.idempCache == nil {
		return nil
	}
	data, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("idempotency cache check failed, falling through to log")
		return nil
	}
	if data == nil {
		return nil
	}
	result := &ports.LedgerResult{}
	if err := json.Unmarshal(data, result); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("corrupt idempotency cache entry ignored")
		return nil
	}
	return result
}

// storeResult caches a committed result, best-effort.
func (s *LedgerServiceImpl) storeResult(ctx context.Context, key string, result *ports.LedgerResult) {
	if s.idempCache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.idempCache.Set(ctx, key, data, s.idempTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache ledger result")
	}
}

func purchaseDescription(vendor string, items []domain.LineItem) string {
	if len(items) == 0 {
		return "Purchase at " + vendor
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%dx %s", item.Quantity, item.Name))
	}
	return fmt.Sprintf("Purchase at %s: %s", vendor, strings.Join(parts, ", "))
}

func adjustmentDescription(kind domain.AdjustmentKind, reason string) string {
	switch kind {
	case domain.AdjustmentAdd:
		return "Balance top-up: " + reason
	case domain.AdjustmentSubtract:
		return "Balance deduction: " + reason
	default:
		return "Balance set: " + reason
	}
}
