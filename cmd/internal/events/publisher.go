// Package events publishes ledger domain events to external consumers.
//
// The only event today is TransferCompleted. When no broker is configured
// the app wires the no-op publisher; event delivery is best-effort and never
// fails the originating request.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TransferCompleted is emitted after a transfer has been applied.
type TransferCompleted struct {
	TransferID    string          `json:"transfer_id"`
	FromID        int64           `json:"from_id"`
	ToID          int64           `json:"to_id"`
	Amount        decimal.Decimal `json:"amount"`
	SourceBalance decimal.Decimal `json:"source_balance"`
	DestBalance   decimal.Decimal `json:"dest_balance"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Publisher is the outbound event boundary.
type Publisher interface {
	TransferCompleted(ctx context.Context, ev TransferCompleted) error
	Close() error
}

// Noop discards all events.
type Noop struct{}

// TransferCompleted implements Publisher.
func (Noop) TransferCompleted(context.Context, TransferCompleted) error { return nil }

// Close implements Publisher.
func (Noop) Close() error { return nil }
