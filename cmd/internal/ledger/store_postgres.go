package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore is the Postgres-backed ledger.
//
// Expected schema (managed outside this binary, see migrations/):
//
//	CREATE TABLE ledgerd.accounts (
//	    id      bigint PRIMARY KEY,
//	    name    text NOT NULL,
//	    email   text NOT NULL,
//	    balance numeric NOT NULL CHECK (balance >= 0)
//	);
//
//	CREATE TABLE ledgerd.transfers (
//	    id         uuid PRIMARY KEY,
//	    from_id    bigint NOT NULL REFERENCES ledgerd.accounts (id),
//	    to_id      bigint NOT NULL REFERENCES ledgerd.accounts (id),
//	    amount     numeric NOT NULL CHECK (amount > 0),
//	    created_at timestamptz NOT NULL
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore. The pool is owned by the caller.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("ledger: nil db pool")
	}
	return &PostgresStore{pool: pool}, nil
}

// CreateAccount inserts an account row, mapping the primary-key conflict to
// ErrDuplicateAccount.
func (s *PostgresStore) CreateAccount(ctx context.Context, a Account) (Account, error) {
	if a.Balance.Sign() < 0 {
		return Account{}, ErrInvalidBalance
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO ledgerd.accounts (id, name, email, balance)
		VALUES ($1, $2, $3, $4::numeric)
		ON CONFLICT (id) DO NOTHING
	`, a.ID, a.Name, a.Email, a.Balance.String())
	if err != nil {
		return Account{}, err
	}
	if tag.RowsAffected() == 0 {
		return Account{}, ErrDuplicateAccount
	}
	return a, nil
}

// GetAccount fetches one account row.
func (s *PostgresStore) GetAccount(ctx context.Context, id int64) (Account, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, email, balance::text
		FROM ledgerd.accounts
		WHERE id = $1
	`, id)
	return scanAccount(row)
}

// ListAccounts returns all accounts ordered by id.
func (s *PostgresStore) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, email, balance::text
		FROM ledgerd.accounts
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Transfer runs both legs inside a single transaction.
//
// Row locks are taken with SELECT ... FOR UPDATE ordered by id, the database
// analogue of the memory store's ascending-id mutex order, so opposing
// transfers on the same pair cannot deadlock. Any error before commit rolls
// the whole transfer back; no partial leg ever becomes visible.
func (s *PostgresStore) Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal) (TransferResult, error) {
	if amount.Sign() <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return TransferResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT id, balance::text
		FROM ledgerd.accounts
		WHERE id = $1 OR id = $2
		ORDER BY id
		FOR UPDATE
	`, fromID, toID)
	if err != nil {
		return TransferResult{}, err
	}

	balances := make(map[int64]decimal.Decimal, 2)
	for rows.Next() {
		var id int64
		var raw string
		if err := rows.Scan(&id, &raw); err != nil {
			rows.Close()
			return TransferResult{}, err
		}
		bal, err := decimal.NewFromString(raw)
		if err != nil {
			rows.Close()
			return TransferResult{}, err
		}
		balances[id] = bal
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return TransferResult{}, err
	}

	srcBal, srcOK := balances[fromID]
	dstBal, dstOK := balances[toID]
	if !srcOK || !dstOK {
		return TransferResult{}, ErrNotFound
	}
	if srcBal.Cmp(amount) < 0 {
		return TransferResult{}, ErrInsufficientFunds
	}

	rec := Transfer{
		ID:     uuid.New().String(),
		FromID: fromID,
		ToID:   toID,
		Amount: amount,
		At:     time.Now().UTC(),
	}

	if fromID != toID {
		srcBal = srcBal.Sub(amount)
		dstBal = dstBal.Add(amount)

		if _, err := tx.Exec(ctx, `
			UPDATE ledgerd.accounts SET balance = $2::numeric WHERE id = $1
		`, fromID, srcBal.String()); err != nil {
			return TransferResult{}, err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE ledgerd.accounts SET balance = $2::numeric WHERE id = $1
		`, toID, dstBal.String()); err != nil {
			return TransferResult{}, err
		}
	} else {
		dstBal = srcBal
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO ledgerd.transfers (id, from_id, to_id, amount, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5)
	`, rec.ID, rec.FromID, rec.ToID, rec.Amount.String(), rec.At); err != nil {
		return TransferResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, err
	}

	return TransferResult{Transfer: rec, SourceBalance: srcBal, DestBalance: dstBal}, nil
}

// ListTransfers returns the journal ordered oldest first.
func (s *PostgresStore) ListTransfers(ctx context.Context) ([]Transfer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, from_id, to_id, amount::text, created_at
		FROM ledgerd.transfers
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transfer
	for rows.Next() {
		var rec Transfer
		var raw string
		if err := rows.Scan(&rec.ID, &rec.FromID, &rec.ToID, &raw, &rec.At); err != nil {
			return nil, err
		}
		amt, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, err
		}
		rec.Amount = amt
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var a Account
	var raw string
	err := row.Scan(&a.ID, &a.Name, &a.Email, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	bal, err := decimal.NewFromString(raw)
	if err != nil {
		return Account{}, err
	}
	a.Balance = bal
	return a, nil
}
