package api

import (
	"errors"
	"net/http"

	"github.com/Veraticus/the-spice-must-sort/internal/common"
	"github.com/Veraticus/the-spice-must-sort/internal/storage"
)

// AppError is an error with a stable code, a client-safe message and an HTTP status.
type AppError struct {
	Internal   error  `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap copies sentinel and attaches the internal cause.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage copies sentinel with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrConflict       = &AppError{Code: "CONFLICT", Message: "Resource already exists", StatusCode: http.StatusConflict}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Categorization job errors.
var (
	ErrJobRunning     = &AppError{Code: "JOB_RUNNING", Message: "A categorization job is already running", StatusCode: http.StatusConflict}
	ErrNoTransactions = &AppError{Code: "NO_TRANSACTIONS", Message: "No transactions to categorize", StatusCode: http.StatusUnprocessableEntity}
	ErrBatchNotFound  = &AppError{Code: "BATCH_NOT_FOUND", Message: "Batch not found", StatusCode: http.StatusNotFound}
)

// Lookup errors.
var (
	ErrRuleNotFound        = &AppError{Code: "RULE_NOT_FOUND", Message: "Rule not found", StatusCode: http.StatusNotFound}
	ErrCategoryNotFound    = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrAccountNotFound     = &AppError{Code: "ACCOUNT_NOT_FOUND", Message: "Account not found", StatusCode: http.StatusNotFound}
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
)

// translateError maps domain errors onto the catalogue. AppErrors pass through.
func translateError(err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, common.ErrJobRunning):
		return Wrap(ErrJobRunning, err)
	case errors.Is(err, common.ErrNoTransactions):
		return Wrap(ErrNoTransactions, err)
	case errors.Is(err, common.ErrNotFound):
		return Wrap(ErrNotFound, err)
	case errors.Is(err, common.ErrDuplicateEntry):
		return Wrap(ErrConflict, err)
	case errors.Is(err, storage.ErrInvalidRule),
		errors.Is(err, storage.ErrInvalidReference),
		errors.Is(err, storage.ErrInvalidTransaction):
		return WithMessage(ErrInvalidInput, err.Error())
	}
	return err
}
