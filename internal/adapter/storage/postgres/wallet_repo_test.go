package postgres

import (
	"context"
	"testing"
	"time"

	"campus-meal-wallet/internal/core/domain"
	"campus-meal-wallet/internal/core/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWallet(id string) *domain.Wallet {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Wallet{
		ID:               id,
		Name:             "Alex Nguyen",
		Email:            "alex@campus.edu",
		Balance:          45000,
		Status:           domain.WalletStatusActive,
		LimitPerPurchase: 2500,
		Version:          4,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func walletCols() []string {
	return []string{"id", "name", "email", "balance", "status", "valid_from", "valid_until",
		"limit_per_purchase", "last_transaction_at", "version", "created_at", "updated_at"}
}

func walletRow(w *domain.Wallet) *pgxmock.Rows {
	return pgxmock.NewRows(walletCols()).AddRow(
		w.ID, w.Name, w.Email, w.Balance, w.Status,
		nullableTime(w.ValidFrom), nullableTime(w.ValidUntil),
		w.LimitPerPurchase, w.LastTransactionAt, w.Version,
		w.CreatedAt, w.UpdatedAt,
	)
}

func TestWalletRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet("w-2024-001")

	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(w.ID, w.Name, w.Email, w.Balance, w.Status,
			pgxmock.AnyArg(), pgxmock.AnyArg(), w.LimitPerPurchase,
			pgxmock.AnyArg(), w.Version, w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), w)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_Create_Duplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet("w-2024-001")

	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(w.ID, w.Name, w.Email, w.Balance, w.Status,
			pgxmock.AnyArg(), pgxmock.AnyArg(), w.LimitPerPurchase,
			pgxmock.AnyArg(), w.Version, w.CreatedAt, w.UpdatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = repo.Create(context.Background(), w)
	assert.ErrorIs(t, err, ports.ErrDuplicateEntry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet("w-2024-001")

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id").
		WithArgs(w.ID).
		WillReturnRows(walletRow(w))

	result, err := repo.GetByID(context.Background(), w.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.ID, result.ID)
	assert.Equal(t, int64(45000), result.Balance)
	assert.Equal(t, uint64(4), result.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id").
		WithArgs("w-missing").
		WillReturnRows(pgxmock.NewRows(walletCols()))

	result, err := repo.GetByID(context.Background(), "w-missing")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet("w-2024-001")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id .+ FOR UPDATE").
		WithArgs(w.ID).
		WillReturnRows(walletRow(w))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), tx, w.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w1 := newTestWallet("w-2024-001")
	w2 := newTestWallet("w-2024-002")

	rows := walletRow(w1).AddRow(
		w2.ID, w2.Name, w2.Email, w2.Balance, w2.Status,
		nullableTime(w2.ValidFrom), nullableTime(w2.ValidUntil),
		w2.LimitPerPurchase, w2.LastTransactionAt, w2.Version,
		w2.CreatedAt, w2.UpdatedAt,
	)
	mock.ExpectQuery("SELECT .+ FROM wallets ORDER BY id").
		WillReturnRows(rows)

	wallets, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, "w-2024-001", wallets[0].ID)
	assert.Equal(t, "w-2024-002", wallets[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_UpdateBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets").
		WithArgs(int64(43500), now, "w-2024-001", uint64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalance(context.Background(), tx, "w-2024-001", 43500, now, 4)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_UpdateBalance_VersionConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	now := time.Now().UTC()

	mock.ExpectBegin()
	// Zero rows affected: another writer bumped the version first.
	mock.ExpectExec("UPDATE wallets").
		WithArgs(int64(43500), now, "w-2024-001", uint64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalance(context.Background(), tx, "w-2024-001", 43500, now, 4)
	assert.ErrorIs(t, err, ports.ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
