package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the validated identity envelope carried by a token.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Service issues and verifies HS256-signed bearer tokens.
type Service struct {
	cfg Config
}

// NewService constructs a Service, validating the signing configuration.
func NewService(cfg Config) (*Service, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, ErrConfig
	}
	if cfg.TTL <= 0 || cfg.Leeway < 0 || strings.TrimSpace(cfg.Issuer) == "" {
		return nil, ErrConfig
	}
	return &Service{cfg: cfg}, nil
}

// SecretEphemeral reports whether the signing secret was generated at startup.
func (s *Service) SecretEphemeral() bool { return s.cfg.SecretEphemeral }

// TTL returns the configured default token lifetime.
func (s *Service) TTL() time.Duration { return s.cfg.TTL }

// Issue signs a token asserting subject's identity.
//
// ttl may shorten the lifetime below the configured default; zero or
// out-of-policy values fall back to the default. Longer lifetimes cannot be
// requested.
func (s *Service) Issue(subject string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", time.Time{}, ErrInvalidToken
	}
	if ttl <= 0 || ttl > s.cfg.TTL {
		ttl = s.cfg.TTL
	}
	exp := now.Add(ttl)

	claims := jwt.RegisteredClaims{
		Issuer:    s.cfg.Issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify validates a token and returns its claims.
//
// The signature is validated before any claim is inspected; a tampered or
// malformed token never reaches the expiry check. Expiry is evaluated
// against the supplied now, widened only by the configured leeway.
// Returns ErrTokenExpired for an intact-but-stale token and ErrInvalidToken
// for everything else.
func (s *Service) Verify(tokenStr string, now time.Time) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(s.cfg.Leeway),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	var rc jwt.RegisteredClaims
	parsed, err := parser.ParseWithClaims(tokenStr, &rc, func(t *jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrInvalidToken
	}
	if !parsed.Valid || rc.Subject == "" {
		return Claims{}, ErrInvalidToken
	}

	claims := Claims{Subject: rc.Subject}
	if rc.IssuedAt != nil {
		claims.IssuedAt = rc.IssuedAt.Time
	}
	if rc.ExpiresAt != nil {
		claims.ExpiresAt = rc.ExpiresAt.Time
	}
	return claims, nil
}
