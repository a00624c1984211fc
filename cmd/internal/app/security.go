package app

import (
	"errors"

	"ledgerd/cmd/internal/auth/token"
)

// ValidateSecurityConfig enforces the token signing policy at startup.
//
// Fail-fast is intentional: an ephemeral secret means every restart silently
// invalidates all tokens, which is fine for dev and unacceptable when the
// operator has asked for a durable secret.
func ValidateSecurityConfig(cfg Config, tokens *token.Service) error {
	if !cfg.RequireTokenSecret {
		return nil
	}
	if tokens == nil {
		return errors.New("security policy: token service not configured")
	}
	if tokens.SecretEphemeral() {
		return errors.New("security policy: LEDGERD_REQUIRE_TOKEN_SECRET=true but LEDGERD_TOKEN_SECRET is not set (min 32 bytes)")
	}
	return nil
}
