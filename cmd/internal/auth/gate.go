package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ledgerd/cmd/identity"
	"ledgerd/cmd/internal/auth/token"
)

// ErrUnauthorized is the single failure kind this package exposes.
var ErrUnauthorized = errors.New("unauthorized")

// Gate authenticates bearer tokens against the token service and the
// principal store.
type Gate struct {
	log        *slog.Logger
	tokens     *token.Service
	principals *identity.Service
}

// NewGate constructs a Gate.
func NewGate(log *slog.Logger, tokens *token.Service, principals *identity.Service) (*Gate, error) {
	if tokens == nil || principals == nil {
		return nil, errors.New("auth: nil dependency")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Gate{log: log, tokens: tokens, principals: principals}, nil
}

// Authenticate verifies bearerToken and returns the principal it names.
//
// A token is admitted only while its signature is intact, now is before its
// expiry, and its subject names an existing principal. Expired, tampered and
// orphaned tokens are indistinguishable to the caller: all return
// ErrUnauthorized.
func (g *Gate) Authenticate(ctx context.Context, bearerToken string, now time.Time) (identity.Principal, error) {
	bearerToken = strings.TrimSpace(bearerToken)
	if bearerToken == "" {
		return identity.Principal{}, ErrUnauthorized
	}

	claims, err := g.tokens.Verify(bearerToken, now)
	if err != nil {
		// Expired vs invalid stays visible in logs for diagnostics, never
		// in the response.
		g.log.Debug("auth.token.rejected", "kind", err.Error())
		return identity.Principal{}, ErrUnauthorized
	}

	p, err := g.principals.Lookup(ctx, claims.Subject)
	if err != nil {
		if identity.IsNotFound(err) {
			g.log.Debug("auth.subject.unknown")
			return identity.Principal{}, ErrUnauthorized
		}
		return identity.Principal{}, err
	}
	return p, nil
}
