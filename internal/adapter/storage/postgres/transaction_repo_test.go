package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"campus-meal-wallet/internal/core/domain"
	"campus-meal-wallet/internal/core/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPurchase(id string) *domain.Transaction {
	return &domain.Transaction{
		ID:           id,
		WalletID:     "w-2024-001",
		Timestamp:    time.Now().UTC().Truncate(time.Microsecond),
		Type:         domain.TransactionTypePurchase,
		Amount:       -1500,
		BalanceAfter: 43500,
		Description:  "Purchase at Campus Cafe: 1x Lunch combo",
		Vendor:       "Campus Cafe",
		OrderID:      "order-001",
		Items:        []domain.LineItem{{Name: "Lunch combo", Quantity: 1, Price: 1500}},
	}
}

func transactionCols() []string {
	return []string{"id", "wallet_id", "ts", "type", "amount", "balance_after",
		"description", "vendor", "order_id", "reason", "items"}
}

func transactionRow(t *testing.T, txn *domain.Transaction) *pgxmock.Rows {
	t.Helper()
	var items []byte
	if len(txn.Items) > 0 {
		var err error
		items, err = json.Marshal(txn.Items)
		require.NoError(t, err)
	}
	return pgxmock.NewRows(transactionCols()).AddRow(
		txn.ID, txn.WalletID, txn.Timestamp, txn.Type, txn.Amount, txn.BalanceAfter,
		txn.Description, txn.Vendor, txn.OrderID, txn.Reason, items,
	)
}

func TestTransactionRepo_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestPurchase("txn-001")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(txn.ID, txn.WalletID, txn.Timestamp, txn.Type, txn.Amount,
			txn.BalanceAfter, txn.Description, txn.Vendor, txn.OrderID,
			txn.Reason, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Append(context.Background(), tx, txn)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_Append_DuplicateOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestPurchase("txn-001")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(txn.ID, txn.WalletID, txn.Timestamp, txn.Type, txn.Amount,
			txn.BalanceAfter, txn.Description, txn.Vendor, txn.OrderID,
			txn.Reason, pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_transactions_purchase_order"})

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Append(context.Background(), tx, txn)
	assert.ErrorIs(t, err, ports.ErrDuplicateEntry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestPurchase("txn-001")

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE id").
		WithArgs(txn.ID).
		WillReturnRows(transactionRow(t, txn))

	result, err := repo.GetByID(context.Background(), txn.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, txn.ID, result.ID)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Lunch combo", result.Items[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetPurchaseByOrderID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestPurchase("txn-001")

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE wallet_id .+ order_id .+ type = 'purchase'").
		WithArgs(txn.WalletID, txn.OrderID).
		WillReturnRows(transactionRow(t, txn))

	result, err := repo.GetPurchaseByOrderID(context.Background(), txn.WalletID, txn.OrderID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "order-001", result.OrderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetPurchaseByOrderID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE wallet_id").
		WithArgs("w-2024-001", "order-404").
		WillReturnRows(pgxmock.NewRows(transactionCols()))

	result, err := repo.GetPurchaseByOrderID(context.Background(), "w-2024-001", "order-404")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_Query_WithFilter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestPurchase("txn-001")
	from := txn.Timestamp.Add(-time.Hour)

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE wallet_id .+ ts >= .+ ORDER BY ts, id").
		WithArgs(txn.WalletID, from).
		WillReturnRows(transactionRow(t, txn))

	walletID := txn.WalletID
	txns, err := repo.Query(context.Background(), ports.TransactionFilter{
		WalletID: &walletID,
		From:     &from,
	})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "txn-001", txns[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_Query_NoFilter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM transactions ORDER BY ts, id").
		WillReturnRows(pgxmock.NewRows(transactionCols()))

	txns, err := repo.Query(context.Background(), ports.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txns)
	assert.NoError(t, mock.ExpectationsWereMet())
}
