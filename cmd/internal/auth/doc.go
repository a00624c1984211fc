// Package auth gates access to ledgerd's authenticated operations.
//
// The Gate turns a raw bearer token into a registered principal by verifying
// the token signature and expiry, then confirming the subject still exists.
// Every failure collapses to ErrUnauthorized at the boundary; the underlying
// kind (malformed, expired, unknown subject) is kept for logging only and is
// never echoed to the caller.
package auth
