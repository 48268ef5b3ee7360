package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("WAL_003", "insufficient balance", http.StatusPaymentRequired),
			expected: "[WAL_003] insufficient balance",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "persistence failure", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] persistence failure: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("WAL_005", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestLedgerErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"WalletNotFound", ErrWalletNotFound("w-1"), "WAL_001", 404},
		{"WalletInactive", ErrWalletInactive(), "WAL_002", 403},
		{"InsufficientFunds", ErrInsufficientFunds(), "WAL_003", 402},
		{"LimitExceeded", ErrLimitExceeded(), "WAL_004", 422},
		{"Validation", Validation("amount must be positive"), "WAL_005", 400},
		{"DuplicateTransaction", ErrDuplicateTransaction(), "WAL_006", 409},
		{"RefundNotEligible", ErrRefundNotEligible(), "WAL_007", 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestWalletNotFound_Message(t *testing.T) {
	err := ErrWalletNotFound("std-042")
	assert.Contains(t, err.Message, "std-042")
}

func TestConcurrencyConflict(t *testing.T) {
	inner := fmt.Errorf("version mismatch")
	err := ErrConcurrencyConflict(inner)
	assert.Equal(t, "WAL_006", err.Code)
	assert.Equal(t, http.StatusConflict, err.HTTPStatus)
	assert.True(t, errors.Is(err, inner))
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")
	perErr := ErrPersistence(inner)
	assert.Equal(t, "SYS_001", perErr.Code)
	assert.Equal(t, 500, perErr.HTTPStatus)
	assert.True(t, errors.Is(perErr, inner))

	intErr := InternalError(inner)
	assert.Equal(t, "SYS_001", intErr.Code)
	assert.Equal(t, 500, intErr.HTTPStatus)
}
