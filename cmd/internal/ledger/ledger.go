package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Account is a ledger account. The id is caller-assigned and immutable;
// the balance is mutated only by Transfer and never goes negative.
type Account struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Email   string          `json:"email"`
	Balance decimal.Decimal `json:"balance"`
}

// Transfer is a journal record of one applied transfer.
type Transfer struct {
	ID     string          `json:"id"`
	FromID int64           `json:"from_id"`
	ToID   int64           `json:"to_id"`
	Amount decimal.Decimal `json:"amount"`
	At     time.Time       `json:"at"`
}

// TransferResult reports the applied transfer and both post-transfer balances.
type TransferResult struct {
	Transfer      Transfer
	SourceBalance decimal.Decimal
	DestBalance   decimal.Decimal
}

// Store is the ledger persistence boundary.
//
// Implementations must serialize operations touching the same account:
// the funds check and the two balance writes of a transfer form one critical
// section, and a transfer admitted to it always runs to completion.
type Store interface {
	// CreateAccount inserts a new account with the given starting balance.
	// Returns ErrInvalidBalance for a negative balance and
	// ErrDuplicateAccount if the id already exists.
	CreateAccount(ctx context.Context, a Account) (Account, error)

	// GetAccount returns a snapshot of the account, or ErrNotFound.
	GetAccount(ctx context.Context, id int64) (Account, error)

	// ListAccounts returns a snapshot of all accounts ordered by id.
	ListAccounts(ctx context.Context) ([]Account, error)

	// Transfer atomically moves amount from one account to the other.
	//
	// amount must be strictly positive (ErrInvalidAmount). Both accounts
	// must exist; a missing account on either side reports the same joint
	// ErrNotFound without naming the side. The source must hold at least
	// amount (ErrInsufficientFunds; both balances unchanged).
	// fromID == toID succeeds as a recorded no-op, subject to the same
	// existence and funds checks.
	Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal) (TransferResult, error)

	// ListTransfers returns the journal of applied transfers, oldest first.
	ListTransfers(ctx context.Context) ([]Transfer, error)
}
