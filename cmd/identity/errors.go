package identity

import "errors"

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	ErrInvalidInput      = errors.New("invalid_input")
	ErrDuplicateUsername = errors.New("duplicate_username")
	ErrInvalidCredential = errors.New("invalid_credential")
	ErrNotFound          = errors.New("not_found")
)

// IsDuplicateUsername reports whether err represents ErrDuplicateUsername.
func IsDuplicateUsername(err error) bool { return errors.Is(err, ErrDuplicateUsername) }

// IsInvalidCredential reports whether err represents ErrInvalidCredential.
func IsInvalidCredential(err error) bool { return errors.Is(err, ErrInvalidCredential) }

// IsNotFound reports whether err represents ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
