package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"campus-meal-wallet/internal/core/domain"
	"campus-meal-wallet/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, wallet_id, ts, type, amount, balance_after,
	description, vendor, order_id, reason, items`

// TransactionRepo implements ports.TransactionRepository. The table is
// append-only: there is no update or delete path.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Append inserts a log entry within a database transaction. A duplicate id
// or a duplicate purchase order id trips the unique constraints and maps
// to ports.ErrDuplicateEntry.
func (r *TransactionRepo) Append(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	items, err := marshalItems(t.Items)
	if err != nil {
		return fmt.Errorf("marshal line items: %w", err)
	}

	query := `INSERT INTO transactions (id, wallet_id, ts, type, amount, balance_after,
		description, vendor, order_id, reason, items)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = tx.Exec(ctx, query,
		t.ID, t.WalletID, t.Timestamp, t.Type, t.Amount, t.BalanceAfter,
		t.Description, t.Vendor, t.OrderID, t.Reason, items,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicateEntry
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a log entry by id. Returns nil when absent.
func (r *TransactionRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(r.pool.QueryRow(ctx, query, id))
}

// GetPurchaseByOrderID fetches the purchase recorded under an order id.
// Returns nil when the order was never processed.
func (r *TransactionRepo) GetPurchaseByOrderID(ctx context.Context, walletID, orderID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE wallet_id = $1 AND order_id = $2 AND type = 'purchase'`
	return scanTransaction(r.pool.QueryRow(ctx, query, walletID, orderID))
}

// Query fetches log entries matching the filter, oldest first.
func (r *TransactionRepo) Query(ctx context.Context, filter ports.TransactionFilter) ([]domain.Transaction, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if filter.WalletID != nil {
		conditions = append(conditions, fmt.Sprintf("wallet_id = $%d", argIdx))
		args = append(args, *filter.WalletID)
		argIdx++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("ts >= $%d", argIdx))
		args = append(args, *filter.From)
		argIdx++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("ts <= $%d", argIdx))
		args = append(args, *filter.To)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY ts, id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	var items []byte
	err := row.Scan(
		&t.ID, &t.WalletID, &t.Timestamp, &t.Type, &t.Amount, &t.BalanceAfter,
		&t.Description, &t.Vendor, &t.OrderID, &t.Reason, &items,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &t.Items); err != nil {
			return nil, fmt.Errorf("unmarshal line items: %w", err)
		}
	}
	return t, nil
}

func marshalItems(items []domain.LineItem) ([]byte, error) {
	if len(items) == 0 {
		return nil, nil
	}
	return json.Marshal(items)
}
