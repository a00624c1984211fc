package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the Postgres-backed principal store.
//
// Expected schema (managed outside this binary, see migrations/):
//
//	CREATE TABLE ledgerd.principals (
//	    id            text PRIMARY KEY,
//	    username      text NOT NULL,
//	    username_norm text NOT NULL UNIQUE,
//	    email         text NOT NULL,
//	    password_hash text NOT NULL,
//	    created_at    timestamptz NOT NULL
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore. The pool is owned by the caller.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("identity: nil db pool")
	}
	return &PostgresStore{pool: pool}, nil
}

// CreatePrincipal inserts a principal row, mapping the unique constraint on
// the normalized username to ErrDuplicateUsername.
func (s *PostgresStore) CreatePrincipal(ctx context.Context, p Principal) error {
	key := NormalizeUsername(p.Username)
	if key == "" {
		return ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO ledgerd.principals (id, username, username_norm, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (username_norm) DO NOTHING
	`, p.ID, p.Username, key, p.Email, p.PasswordHash, p.CreatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateUsername
	}
	return nil
}

// GetPrincipal fetches a principal row by normalized username.
func (s *PostgresStore) GetPrincipal(ctx context.Context, usernameNorm string) (Principal, error) {
	var p Principal
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM ledgerd.principals
		WHERE username_norm = $1
	`, usernameNorm).Scan(&p.ID, &p.Username, &p.Email, &p.PasswordHash, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Principal{}, ErrNotFound
	}
	if err != nil {
		return Principal{}, err
	}
	return p, nil
}
