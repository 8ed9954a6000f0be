package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"game-wager-service/internal/vault"
)

const pgCheckViolation = "23514"

// AccountRepository is the Postgres-backed token transfer engine. A
// transfer debits and credits inside one transaction, and the table's
// balance check constraint rejects any debit past zero, so a failed
// transfer moves nothing.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository instance.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Transfer moves amount from one account to another atomically.
// Returns vault.ErrInsufficientFunds when the source cannot cover it.
func (r *AccountRepository) Transfer(ctx context.Context, from, to string, amount uint64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const debit = `
		UPDATE token_accounts
		SET balance = balance - $2, updated_at = NOW()
		WHERE account = $1
	`
	result, err := tx.Exec(ctx, debit, from, int64(amount))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
			return vault.ErrInsufficientFunds
		}
		return fmt.Errorf("failed to debit %s: %w", from, err)
	}
	if result.RowsAffected() == 0 {
		// The account has never been funded, so its balance is zero.
		if amount > 0 {
			return vault.ErrInsufficientFunds
		}
		return nil
	}

	const credit = `
		INSERT INTO token_accounts (account, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (account) DO UPDATE
		SET balance = token_accounts.balance + EXCLUDED.balance, updated_at = NOW()
	`
	if _, err := tx.Exec(ctx, credit, to, int64(amount)); err != nil {
		return fmt.Errorf("failed to credit %s: %w", to, err)
	}

	const record = `
		INSERT INTO account_transfers (from_account, to_account, amount)
		VALUES ($1, $2, $3)
	`
	if _, err := tx.Exec(ctx, record, from, to, int64(amount)); err != nil {
		return fmt.Errorf("failed to record transfer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transfer: %w", err)
	}
	return nil
}

// Balance returns an account's current balance. Unknown accounts hold
// zero.
func (r *AccountRepository) Balance(ctx context.Context, account string) (uint64, error) {
	const query = `SELECT COALESCE(
		(SELECT balance FROM token_accounts WHERE account = $1), 0)`

	var balance int64
	if err := r.pool.QueryRow(ctx, query, account).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to get balance of %s: %w", account, err)
	}
	return uint64(balance), nil
}

// Credit funds an account directly, outside any session's ledger. Used
// for player onboarding and operational top-ups.
func (r *AccountRepository) Credit(ctx context.Context, account string, amount uint64) error {
	const query = `
		INSERT INTO token_accounts (account, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (account) DO UPDATE
		SET balance = token_accounts.balance + EXCLUDED.balance, updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, query, account, int64(amount)); err != nil {
		return fmt.Errorf("failed to credit %s: %w", account, err)
	}
	return nil
}

// History returns the most recent transfers touching an account, newest
// first.
func (r *AccountRepository) History(ctx context.Context, account string, limit int) ([]vault.TransferRecord, error) {
	const query = `
		SELECT from_account, to_account, amount, created_at
		FROM account_transfers
		WHERE from_account = $1 OR to_account = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, account, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer history: %w", err)
	}
	defer rows.Close()

	var records []vault.TransferRecord
	for rows.Next() {
		var rec vault.TransferRecord
		var amount int64
		if err := rows.Scan(&rec.From, &rec.To, &amount, &rec.At); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		rec.Amount = uint64(amount)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transfers: %w", err)
	}
	return records, nil
}
