// Package vault owns the custody invariant for one session's escrow: at
// every observable point the custody account balance equals total deposits
// minus total distributions minus total refunds. All value movement goes
// through the ledger; nothing transfers around it.
package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"game-wager-service/internal/pkg/numeric"
)

var (
	// ErrInsufficientFunds is returned by a TransferEngine when the source
	// account cannot cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrBalanceMismatch is the reconciliation failure sentinel.
	ErrBalanceMismatch = errors.New("vault balance reconciliation failed")
)

// TransferEngine is the external token-transfer primitive: move amount
// units from one account to another, atomically, failing when the source
// balance is insufficient. Key management and the token itself live behind
// this interface.
type TransferEngine interface {
	Transfer(ctx context.Context, from, to string, amount uint64) error
	Balance(ctx context.Context, account string) (uint64, error)
}

// TransferRecord is one completed transfer as reported by an engine that
// keeps history.
type TransferRecord struct {
	From   string
	To     string
	Amount uint64
	At     time.Time
}

// ReconciliationError reports a divergence between the ledger's tracked
// balance and the custody account's actual balance. It unwraps to
// ErrBalanceMismatch.
type ReconciliationError struct {
	VaultKey string
	Expected uint64
	Actual   uint64
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("vault %s: tracked balance %d, actual balance %d", e.VaultKey, e.Expected, e.Actual)
}

func (e *ReconciliationError) Unwrap() error {
	return ErrBalanceMismatch
}

// Ledger tracks one session's custody totals. The three totals are
// monotonically non-decreasing; additions are checked, never wrapping.
type Ledger struct {
	TotalDeposited   uint64
	TotalDistributed uint64
	TotalRefunded    uint64
	RefundedPlayers  map[string]bool
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{RefundedPlayers: make(map[string]bool)}
}

// ExpectedBalance is the balance the custody account must hold.
func (l *Ledger) ExpectedBalance() uint64 {
	return l.TotalDeposited - l.TotalDistributed - l.TotalRefunded
}

// Reconcile verifies the custody account's actual balance against the
// ledger. Settlement and refund abort on the first divergence.
func (l *Ledger) Reconcile(vaultKey string, actual uint64) error {
	if expected := l.ExpectedBalance(); actual != expected {
		return &ReconciliationError{VaultKey: vaultKey, Expected: expected, Actual: actual}
	}
	return nil
}

// Deposit moves amount from the player's account into the vault and
// records it. The total is updated only after the transfer succeeds, and
// the transfer is only issued if recording it cannot overflow, so the
// ledger and the account can never disagree.
func (l *Ledger) Deposit(ctx context.Context, eng TransferEngine, from, vaultKey string, amount uint64) error {
	next, err := numeric.CheckedAdd64(l.TotalDeposited, amount)
	if err != nil {
		return fmt.Errorf("recording deposit of %d: %w", amount, err)
	}
	if err := eng.Transfer(ctx, from, vaultKey, amount); err != nil {
		return err
	}
	l.TotalDeposited = next
	return nil
}

// Distribute pays amount out of the vault to a settlement recipient. The
// vault's balance is checked immediately before the transfer; paying out
// more than the vault holds fails closed as a reconciliation error.
func (l *Ledger) Distribute(ctx context.Context, eng TransferEngine, vaultKey, to string, amount uint64) error {
	balance, err := eng.Balance(ctx, vaultKey)
	if err != nil {
		return fmt.Errorf("reading vault balance: %w", err)
	}
	if balance < amount {
		return &ReconciliationError{VaultKey: vaultKey, Expected: amount, Actual: balance}
	}
	next, err := numeric.CheckedAdd64(l.TotalDistributed, amount)
	if err != nil {
		return fmt.Errorf("recording distribution of %d: %w", amount, err)
	}
	if err := eng.Transfer(ctx, vaultKey, to, amount); err != nil {
		return err
	}
	l.TotalDistributed = next
	return nil
}

// Refunded reports whether the player has already been refunded.
func (l *Ledger) Refunded(player string) bool {
	return l.RefundedPlayers[player]
}

// RefundPlayer returns a player's deposited share out of the vault and
// marks them refunded. Marking happens immediately after the transfer so an
// interrupted refund pass resumes without paying anyone twice.
func (l *Ledger) RefundPlayer(ctx context.Context, eng TransferEngine, vaultKey, player string, amount uint64) error {
	if l.RefundedPlayers[player] {
		return nil
	}
	balance, err := eng.Balance(ctx, vaultKey)
	if err != nil {
		return fmt.Errorf("reading vault balance: %w", err)
	}
	if balance < amount {
		return &ReconciliationError{VaultKey: vaultKey, Expected: amount, Actual: balance}
	}
	next, err := numeric.CheckedAdd64(l.TotalRefunded, amount)
	if err != nil {
		return fmt.Errorf("recording refund of %d: %w", amount, err)
	}
	if err := eng.Transfer(ctx, vaultKey, player, amount); err != nil {
		return err
	}
	l.TotalRefunded = next
	l.RefundedPlayers[player] = true
	return nil
}
