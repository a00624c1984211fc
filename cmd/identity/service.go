package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ledgerd/cmd/security/password"
)

// Service implements registration, credential verification and lookup on top
// of a Store. It is the only component that sees raw passwords, and it never
// stores or logs them.
type Service struct {
	store Store
	pw    password.Config

	// dummyHash is verified when the username is unknown so the missing-user
	// and wrong-password paths stay close in timing.
	dummyHash string
}

// NewService constructs a Service around the given store and hashing config.
func NewService(store Store, pw password.Config) (*Service, error) {
	if store == nil {
		return nil, errors.New("identity: nil store")
	}

	dummy, err := pw.Hash("dummy-password-for-timing-only")
	if err != nil {
		return nil, fmt.Errorf("identity: dummy hash: %w", err)
	}

	return &Service{store: store, pw: pw, dummyHash: dummy}, nil
}

// Register creates a new principal with a salted Argon2id hash of rawPassword.
// Returns ErrDuplicateUsername if the username is taken and ErrInvalidInput
// (wrapped with detail) for malformed input or a password outside policy.
func (s *Service) Register(ctx context.Context, username, email, rawPassword string) (Principal, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return Principal{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if email == "" || !strings.Contains(email, "@") {
		return Principal{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}

	hash, err := s.pw.Hash(rawPassword)
	if err != nil {
		switch {
		case errors.Is(err, password.ErrPasswordTooShort), errors.Is(err, password.ErrPasswordTooLong):
			return Principal{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		default:
			return Principal{}, err
		}
	}

	now := time.Now().UTC()
	id, err := NewULID(now)
	if err != nil {
		return Principal{}, err
	}

	p := Principal{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
	}

	if err := s.store.CreatePrincipal(ctx, p); err != nil {
		return Principal{}, err
	}
	return p, nil
}

// Verify checks a username/password pair.
//
// An unknown username and a wrong password both return ErrInvalidCredential;
// callers must not be able to probe for account existence through this path.
func (s *Service) Verify(ctx context.Context, username, rawPassword string) (Principal, error) {
	p, err := s.store.GetPrincipal(ctx, NormalizeUsername(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_, _ = s.pw.Verify(s.dummyHash, rawPassword)
			return Principal{}, ErrInvalidCredential
		}
		return Principal{}, err
	}

	ok, err := s.pw.Verify(p.PasswordHash, rawPassword)
	if err != nil || !ok {
		return Principal{}, ErrInvalidCredential
	}
	return p, nil
}

// Lookup fetches a principal by username. Used by token verification to
// confirm a token's subject still exists.
func (s *Service) Lookup(ctx context.Context, username string) (Principal, error) {
	return s.store.GetPrincipal(ctx, NormalizeUsername(username))
}
