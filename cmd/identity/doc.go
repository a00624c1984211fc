// Package identity owns ledgerd's registered principals.
//
// It holds the principal records (username, email, password hash), performs
// registration and credential verification, and exposes the lookup used by
// token verification to confirm a token's subject still exists.
//
// Credential verification is deliberately non-distinguishing: an unknown
// username and a wrong password both surface as ErrInvalidCredential, and a
// dummy hash verification keeps the two paths close in timing.
package identity
