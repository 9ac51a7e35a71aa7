package domain

import (
	"errors"
	"fmt"
)

// ErrorCodeOffset is the first numeric code assigned to settlement errors
const ErrorCodeOffset = 6000

// SettlementError is a rejection raised by the payment instruction.
// Code is the stable tag clients match on; Number is the numeric form.
type SettlementError struct {
	Code    string
	Number  int
	Message string
}

func (e *SettlementError) Error() string {
	return e.Message
}

func newSettlementError(ordinal int, code, message string) *SettlementError {
	return &SettlementError{Code: code, Number: ErrorCodeOffset + ordinal, Message: message}
}

// Settlement errors, numbered in declaration order
var (
	ErrLengthMismatch      = newSettlementError(0, "LengthMismatch", "amounts, recipients and destination accounts length mismatch")
	ErrOrderIDAlreadyUsed  = newSettlementError(1, "OrderIdAlreadyUsed", "order id already used")
	ErrInvalidTokenAccount = newSettlementError(2, "InvalidTokenAccount", "invalid token account")
	ErrTooManyRecipients   = newSettlementError(3, "TooManyRecipients", "too many recipients")
	ErrNoRecipients        = newSettlementError(4, "NoRecipients", "no recipients provided")
	ErrZeroAmount          = newSettlementError(5, "ZeroAmount", "amount cannot be zero")
)

// Ledger and host errors
var (
	ErrNotInitialized       = errors.New("program not initialized")
	ErrAlreadyInitialized   = errors.New("program already initialized with different parameters")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrOwnerMismatch        = errors.New("authority does not own source account")
	ErrMintMismatch         = errors.New("token account mint mismatch")
	ErrDecimalsMismatch     = errors.New("mint decimals mismatch")
	ErrTokenAccountNotFound = errors.New("token account not found")
	ErrTokenAccountExists   = errors.New("token account already exists")
	ErrInvalidSignature     = errors.New("invalid payer signature")
	ErrInvalidIdentity      = errors.New("invalid identity")
	ErrAmountOverflow       = errors.New("amount overflow")
	ErrEventNotFound        = errors.New("settlement event not found")
	ErrOrderNotFound        = errors.New("order not found")
)

// ErrorCode returns the settlement error tag carried by err, or "" if it has none
func ErrorCode(err error) string {
	var se *SettlementError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// AsSettlementError unwraps err to its settlement error, if any
func AsSettlementError(err error) (*SettlementError, bool) {
	var se *SettlementError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// atIndex attaches the offending batch position to err
func atIndex(err error, i int) error {
	return fmt.Errorf("index %d: %w", i, err)
}
