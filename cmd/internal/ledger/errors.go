package ledger

import "errors"

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	ErrDuplicateAccount  = errors.New("duplicate_account")
	ErrNotFound          = errors.New("not_found")
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidBalance    = errors.New("invalid_balance")
)

// IsNotFound reports whether err represents ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsDuplicateAccount reports whether err represents ErrDuplicateAccount.
func IsDuplicateAccount(err error) bool { return errors.Is(err, ErrDuplicateAccount) }

// IsInsufficientFunds reports whether err represents ErrInsufficientFunds.
func IsInsufficientFunds(err error) bool { return errors.Is(err, ErrInsufficientFunds) }
