package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Wallet Ledger (WAL) ----

func ErrWalletNotFound(walletID string) *AppError {
	return New("WAL_001", fmt.Sprintf("wallet %s not found", walletID), http.StatusNotFound)
}

func ErrWalletInactive() *AppError {
	return New("WAL_002", "wallet is not active", http.StatusForbidden)
}

func ErrInsufficientFunds() *AppError {
	return New("WAL_003", "insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrLimitExceeded() *AppError {
	return New("WAL_004", "amount exceeds per-purchase limit", http.StatusUnprocessableEntity)
}

// Validation returns a WAL_005 error for a malformed request.
func Validation(message string) *AppError {
	return New("WAL_005", message, http.StatusBadRequest)
}

// ErrDuplicateTransaction covers duplicate transaction ids and duplicate
// purchase order ids caught by the append guard.
func ErrDuplicateTransaction() *AppError {
	return New("WAL_006", "transaction already recorded", http.StatusConflict)
}

// ErrConcurrencyConflict is returned when an optimistic-lock loss survived
// the processor's bounded retries.
func ErrConcurrencyConflict(err error) *AppError {
	return Wrap("WAL_006", "wallet was modified concurrently", http.StatusConflict, err)
}

func ErrRefundNotEligible() *AppError {
	return New("WAL_007", "original purchase not eligible for refund", http.StatusBadRequest)
}

// ---- System & Infrastructure (SYS) ----

// ErrPersistence wraps a transient storage failure. Callers may retry with
// the same idempotency key.
func ErrPersistence(err error) *AppError {
	return Wrap("SYS_001", "persistence failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "internal server error", http.StatusInternalServerError, err)
}
