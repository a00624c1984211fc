package token

import "errors"

var (
	// ErrInvalidToken is returned for malformed tokens and signature failures.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the signature is intact but the token
	// is past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid token config")
)
