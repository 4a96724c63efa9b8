// Package wallet defines the Wallet Adapter boundary (§6): the core engine
// never persists money itself, it only calls out to this narrow interface
// at seat join, pot award, and hand end.
package wallet

import "context"

// HandMeta identifies the hand a rake contribution belongs to.
type HandMeta struct {
	TableID    string
	HandNumber uint64
}

// Adapter reserves buy-ins, credits winnings, and records rake. The core
// invokes it at seat join (Reserve), at pot award (Credit), and at hand end
// (RakeContribution); it never touches money directly itself.
type Adapter interface {
	Reserve(ctx context.Context, playerID string, amount int) error
	Credit(ctx context.Context, playerID string, amount int) error
	RakeContribution(ctx context.Context, meta HandMeta, perSeatShares map[string]int) error
}

// Noop is a no-op Adapter: reservations and credits always succeed and rake
// is discarded. Grounded on auth.NoopValidator's same fail-open shape,
// useful for a standalone deployment with no external ledger.
type Noop struct{}

// NewNoop creates a Wallet Adapter that performs no accounting at all.
func NewNoop() Noop { return Noop{} }

func (Noop) Reserve(ctx context.Context, playerID string, amount int) error { return nil }

func (Noop) Credit(ctx context.Context, playerID string, amount int) error { return nil }

func (Noop) RakeContribution(ctx context.Context, meta HandMeta, perSeatShares map[string]int) error {
	return nil
}
