package identity

import "context"

// Store is the principal persistence boundary.
//
// Implementations must enforce username uniqueness under NormalizeUsername
// and must never hand out references to mutable internal state.
type Store interface {
	// CreatePrincipal inserts a new principal.
	// Returns ErrDuplicateUsername if the normalized username already exists.
	CreatePrincipal(ctx context.Context, p Principal) error

	// GetPrincipal fetches a principal by normalized username.
	// Returns ErrNotFound if absent.
	GetPrincipal(ctx context.Context, usernameNorm string) (Principal, error)
}
