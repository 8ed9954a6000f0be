package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Migrate applies the database schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: session header plus ledger totals
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS game_sessions (
			session_id VARCHAR(10) PRIMARY KEY,
			authority TEXT NOT NULL,
			mode VARCHAR(20) NOT NULL,
			bet_amount BIGINT NOT NULL,
			status VARCHAR(20) NOT NULL,
			vault_key TEXT NOT NULL UNIQUE,
			total_deposited BIGINT NOT NULL DEFAULT 0,
			total_distributed BIGINT NOT NULL DEFAULT 0,
			total_refunded BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_game_sessions_status ON game_sessions(status);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: game_sessions table created")

	// Migration 2: one row per occupied roster slot
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS session_players (
			session_id VARCHAR(10) NOT NULL REFERENCES game_sessions(session_id) ON DELETE CASCADE,
			side SMALLINT NOT NULL,
			slot_index INT NOT NULL,
			player TEXT NOT NULL,
			kills INT NOT NULL DEFAULT 0,
			spawns INT NOT NULL DEFAULT 0,
			eliminated BOOLEAN NOT NULL DEFAULT FALSE,
			deposited BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (session_id, side, slot_index),
			UNIQUE (session_id, player)
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: session_players table created")

	// Migration 3: per-player refund marks so an interrupted refund pass
	// can resume without double paying
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS refunded_players (
			session_id VARCHAR(10) NOT NULL REFERENCES game_sessions(session_id) ON DELETE CASCADE,
			player TEXT NOT NULL,
			refunded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (session_id, player)
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: refunded_players table created")

	// Migration 4: token accounts; the check constraint is the database's
	// own guarantee that no transfer overdraws an account
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS token_accounts (
			account TEXT PRIMARY KEY,
			balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: token_accounts table created")

	// Migration 5: append-only transfer log
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS account_transfers (
			id BIGSERIAL PRIMARY KEY,
			from_account TEXT NOT NULL,
			to_account TEXT NOT NULL,
			amount BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_account_transfers_from_time ON account_transfers(from_account, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_account_transfers_to_time ON account_transfers(to_account, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 5: account_transfers table created")

	// Migration 6: fixed-width audit snapshots of terminal sessions
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS session_snapshots (
			session_id VARCHAR(10) PRIMARY KEY REFERENCES game_sessions(session_id) ON DELETE CASCADE,
			status VARCHAR(20) NOT NULL,
			snapshot BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 6: session_snapshots table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
