package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientFunds is returned when a debit would take a
	// balance below zero. The check runs inside the same transaction
	// as the debit itself.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrFundNotFound is returned when a donation names a fund that
	// does not exist.
	ErrFundNotFound = errors.New("fund not found")

	// ErrAlreadyCheckedIn is returned when the stored check-in date
	// equals today.
	ErrAlreadyCheckedIn = errors.New("already checked in today")

	// ErrAccountNotFound is returned by read-only balance queries for
	// unknown users. Get-or-create paths never return it.
	ErrAccountNotFound = errors.New("account not found")

	// ErrNothingToDonate is returned when both donation amounts are
	// zero.
	ErrNothingToDonate = errors.New("nothing to donate")

	// ErrInvalidAmount is returned for zero or negative amounts on
	// operations that require a positive amount.
	ErrInvalidAmount = errors.New("amount must be a positive integer")
)

// StorageError wraps any repository failure so callers can tell a
// storage problem apart from a business rule rejection.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// wrapStorage passes the ledger's own typed errors through untouched
// and wraps everything else as a StorageError.
func wrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, typed := range []error{
		ErrInsufficientFunds,
		ErrFundNotFound,
		ErrAlreadyCheckedIn,
		ErrAccountNotFound,
		ErrNothingToDonate,
		ErrInvalidAmount,
	} {
		if errors.Is(err, typed) {
			return err
		}
	}
	return &StorageError{Op: op, Err: err}
}
