package token

import (
	"crypto/rand"
	"os"
	"strings"
	"time"
)

const minSecretBytes = 32

// Config defines runtime configuration for token issuance and verification.
type Config struct {
	// Issuer is the value set in the "iss" claim.
	Issuer string

	// TTL is the default and maximum token lifetime.
	TTL time.Duration

	// Leeway is the clock-skew tolerance applied during verification.
	// Zero by default; any widening is an explicit operator decision.
	Leeway time.Duration

	// Secret is the HMAC signing key. Immutable for the process lifetime.
	Secret []byte

	// SecretEphemeral is true when no secret was configured and a random
	// one was generated at startup (dev mode; tokens die with the process).
	SecretEphemeral bool
}

// DefaultConfig returns the policy defaults (30 minute tokens, zero leeway).
func DefaultConfig() Config {
	return Config{
		Issuer: "ledgerd",
		TTL:    30 * time.Minute,
		Leeway: 0,
	}
}

// LoadConfigFromEnv loads token configuration from environment variables.
//
// Env surface:
//   - LEDGERD_TOKEN_SECRET (min 32 bytes when set; generated if absent)
//   - LEDGERD_TOKEN_ISSUER
//   - LEDGERD_TOKEN_TTL
//   - LEDGERD_TOKEN_LEEWAY
//
// Returns ErrConfig if a configured value is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("LEDGERD_TOKEN_ISSUER")); v != "" {
		cfg.Issuer = v
	}

	if v := strings.TrimSpace(os.Getenv("LEDGERD_TOKEN_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.TTL = d
	}

	if v := strings.TrimSpace(os.Getenv("LEDGERD_TOKEN_LEEWAY")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.Leeway = d
	}

	secret := strings.TrimSpace(os.Getenv("LEDGERD_TOKEN_SECRET"))
	switch {
	case secret == "":
		b := make([]byte, minSecretBytes)
		if _, err := rand.Read(b); err != nil {
			return Config{}, err
		}
		cfg.Secret = b
		cfg.SecretEphemeral = true
	case len(secret) < minSecretBytes:
		return Config{}, ErrConfig
	default:
		cfg.Secret = []byte(secret)
	}

	return cfg, nil
}
