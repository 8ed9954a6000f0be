package vault

import (
	"context"
	"sync"

	"game-wager-service/internal/pkg/numeric"
)

// MemoryEngine is an in-process TransferEngine. It backs unit tests and
// local runs without the repository's Postgres-backed account store, with
// the same semantics: a transfer is atomic and fails when the source
// balance is insufficient.
type MemoryEngine struct {
	mu       sync.Mutex
	balances map[string]uint64
}

// NewMemoryEngine creates an engine with no funded accounts.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{balances: make(map[string]uint64)}
}

// Credit funds an account directly, outside any session's ledger. Used to
// seed player balances.
func (e *MemoryEngine) Credit(account string, amount uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.balances[account] = e.balances[account] + amount
}

// Transfer moves amount between accounts atomically.
func (e *MemoryEngine) Transfer(ctx context.Context, from, to string, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	src, err := numeric.CheckedSub64(e.balances[from], amount)
	if err != nil {
		return ErrInsufficientFunds
	}
	dst, err := numeric.CheckedAdd64(e.balances[to], amount)
	if err != nil {
		return err
	}
	e.balances[from] = src
	e.balances[to] = dst
	return nil
}

// Balance returns an account's current balance. Unknown accounts hold zero.
func (e *MemoryEngine) Balance(ctx context.Context, account string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balances[account], nil
}
