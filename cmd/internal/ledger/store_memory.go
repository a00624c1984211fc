package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore is the in-memory Store used when no database is configured.
//
// The accounts map is guarded by mu; each account carries its own mutex so
// transfers on disjoint pairs proceed concurrently. Accounts are never
// deleted, so pointers handed out under mu stay valid for the process
// lifetime.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[int64]*memAccount

	jmu     sync.Mutex
	journal []Transfer
}

type memAccount struct {
	mu   sync.Mutex
	acct Account
}

// NewMemoryStore constructs an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[int64]*memAccount),
	}
}

// CreateAccount inserts an account, enforcing id uniqueness and a
// non-negative starting balance.
func (s *MemoryStore) CreateAccount(ctx context.Context, a Account) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	if a.Balance.Sign() < 0 {
		return Account{}, ErrInvalidBalance
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.ID]; exists {
		return Account{}, ErrDuplicateAccount
	}
	s.accounts[a.ID] = &memAccount{acct: a}
	return a, nil
}

// GetAccount returns a point-in-time snapshot of the account.
func (s *MemoryStore) GetAccount(ctx context.Context, id int64) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	s.mu.RLock()
	ma := s.accounts[id]
	s.mu.RUnlock()

	if ma == nil {
		return Account{}, ErrNotFound
	}

	ma.mu.Lock()
	snap := ma.acct
	ma.mu.Unlock()
	return snap, nil
}

// ListAccounts returns a snapshot of all accounts ordered by id.
func (s *MemoryStore) ListAccounts(ctx context.Context) ([]Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	refs := make([]*memAccount, 0, len(s.accounts))
	for _, ma := range s.accounts {
		refs = append(refs, ma)
	}
	s.mu.RUnlock()

	out := make([]Account, 0, len(refs))
	for _, ma := range refs {
		ma.mu.Lock()
		out = append(out, ma.acct)
		ma.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Transfer moves amount between two accounts as one critical section.
//
// Both account mutexes are taken in ascending id order, so two concurrent
// transfers moving funds in opposite directions between the same pair cannot
// deadlock. The funds check and both balance writes happen under the locks;
// a failed check mutates nothing.
func (s *MemoryStore) Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal) (TransferResult, error) {
	if err := ctx.Err(); err != nil {
		return TransferResult{}, err
	}
	if amount.Sign() <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}

	s.mu.RLock()
	src := s.accounts[fromID]
	dst := s.accounts[toID]
	s.mu.RUnlock()

	// Joint check: the caller is not told which side is missing.
	if src == nil || dst == nil {
		return TransferResult{}, ErrNotFound
	}

	if fromID == toID {
		// Degenerate self-transfer: a recorded no-op after the same
		// existence and funds checks as the general case.
		src.mu.Lock()
		defer src.mu.Unlock()

		if src.acct.Balance.Cmp(amount) < 0 {
			return TransferResult{}, ErrInsufficientFunds
		}
		rec := s.record(fromID, toID, amount)
		return TransferResult{
			Transfer:      rec,
			SourceBalance: src.acct.Balance,
			DestBalance:   src.acct.Balance,
		}, nil
	}

	first, second := src, dst
	if toID < fromID {
		first, second = dst, src
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if src.acct.Balance.Cmp(amount) < 0 {
		return TransferResult{}, ErrInsufficientFunds
	}

	src.acct.Balance = src.acct.Balance.Sub(amount)
	dst.acct.Balance = dst.acct.Balance.Add(amount)

	rec := s.record(fromID, toID, amount)
	return TransferResult{
		Transfer:      rec,
		SourceBalance: src.acct.Balance,
		DestBalance:   dst.acct.Balance,
	}, nil
}

// ListTransfers returns a copy of the journal, oldest first.
func (s *MemoryStore) ListTransfers(ctx context.Context) ([]Transfer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.jmu.Lock()
	defer s.jmu.Unlock()

	out := make([]Transfer, len(s.journal))
	copy(out, s.journal)
	return out, nil
}

func (s *MemoryStore) record(fromID, toID int64, amount decimal.Decimal) Transfer {
	rec := Transfer{
		ID:     uuid.New().String(),
		FromID: fromID,
		ToID:   toID,
		Amount: amount,
		At:     time.Now().UTC(),
	}

	s.jmu.Lock()
	s.journal = append(s.journal, rec)
	s.jmu.Unlock()
	return rec
}
