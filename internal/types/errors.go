package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrorCode represents a specific error type
type ErrorCode string

const (
	// Lookup errors
	ErrNotFound        ErrorCode = "NOT_FOUND"
	ErrNoPurchaseFound ErrorCode = "NO_PURCHASE_FOUND"

	// Ledger errors
	ErrNotAvailable      ErrorCode = "NOT_AVAILABLE"
	ErrInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	ErrInvalidAmount     ErrorCode = "INVALID_AMOUNT"
	ErrAlreadyCredited   ErrorCode = "ALREADY_CREDITED"
	ErrAlreadyReviewed   ErrorCode = "ALREADY_REVIEWED"

	// Request errors
	ErrInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	ErrUnauthorized    ErrorCode = "UNAUTHORIZED"

	// System errors
	ErrStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
)

// LedgerError represents a ledger-related error
type LedgerError struct {
	Code    ErrorCode
	Message string
	Err     error // Underlying error, if any
}

// Error implements the error interface
func (e *LedgerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *LedgerError) Unwrap() error {
	return e.Err
}

// NewLedgerError creates a new LedgerError
func NewLedgerError(code ErrorCode, message string) *LedgerError {
	return &LedgerError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error in a LedgerError
func WrapError(code ErrorCode, message string, err error) *LedgerError {
	return &LedgerError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// InsufficientFundsError is returned when no eligible wallet covers a price.
// It carries the figures the transport shows back to the buyer.
type InsufficientFundsError struct {
	*LedgerError
	Price    decimal.Decimal
	Balances map[string]decimal.Decimal
}

// NewInsufficientFundsError creates an InsufficientFundsError for the given price and balances
func NewInsufficientFundsError(price decimal.Decimal, balances map[string]decimal.Decimal) *InsufficientFundsError {
	copied := make(map[string]decimal.Decimal, len(balances))
	for name, amount := range balances {
		copied[name] = amount
	}

	return &InsufficientFundsError{
		LedgerError: NewLedgerError(ErrInsufficientFunds, "insufficient balance for price "+price.StringFixed(2)),
		Price:       price,
		Balances:    copied,
	}
}

// Error implements the error interface
func (e *InsufficientFundsError) Error() string {
	names := make([]string, 0, len(e.Balances))
	for name := range e.Balances {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+e.Balances[name].StringFixed(2))
	}
	return fmt.Sprintf("%s: %s [%s]", e.Code, e.Message, strings.Join(parts, " "))
}

// Unwrap exposes the embedded LedgerError so code checks keep working
func (e *InsufficientFundsError) Unwrap() error {
	return e.LedgerError
}

// IsLedgerError checks if an error is a LedgerError and has a specific code
func IsLedgerError(err error, code ErrorCode) bool {
	var ledgerErr *LedgerError
	if err == nil {
		return false
	}
	if ok := As(err, &ledgerErr); !ok {
		return false
	}
	return ledgerErr.Code == code
}

// As finds the first LedgerError in err's chain
func As(err error, target **LedgerError) bool {
	if target == nil || err == nil {
		return false
	}
	return errors.As(err, target)
}

// CodeOf returns the code of the first LedgerError in err's chain, or "" if there is none
func CodeOf(err error) ErrorCode {
	var ledgerErr *LedgerError
	if !As(err, &ledgerErr) {
		return ""
	}
	return ledgerErr.Code
}
