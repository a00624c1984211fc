package identity

import (
	"context"
	"sync"
)

// MemoryStore is the in-memory Store used when no database is configured.
// All state lives for the process lifetime.
type MemoryStore struct {
	mu         sync.RWMutex
	principals map[string]Principal // normalized username -> principal
}

// NewMemoryStore constructs an empty in-memory principal store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		principals: make(map[string]Principal),
	}
}

// CreatePrincipal inserts a principal, enforcing username uniqueness.
func (s *MemoryStore) CreatePrincipal(ctx context.Context, p Principal) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := NormalizeUsername(p.Username)
	if key == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.principals[key]; exists {
		return ErrDuplicateUsername
	}
	s.principals[key] = p
	return nil
}

// GetPrincipal returns a copy of the stored principal.
func (s *MemoryStore) GetPrincipal(ctx context.Context, usernameNorm string) (Principal, error) {
	if err := ctx.Err(); err != nil {
		return Principal{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.principals[usernameNorm]
	if !ok {
		return Principal{}, ErrNotFound
	}
	return p, nil
}
