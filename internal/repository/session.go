// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"game-wager-service/internal/model"
	"game-wager-service/internal/vault"
)

const pgUniqueViolation = "23505"

// SessionRepository persists sessions, rosters, and ledger state. One Save
// writes the full session state in a single transaction, so readers never
// observe a roster that disagrees with its header.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create persists a new session and its empty ledger.
// Returns model.ErrSessionExists if the session id is already taken.
func (r *SessionRepository) Create(ctx context.Context, s *model.GameSession, l *vault.Ledger) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const query = `
		INSERT INTO game_sessions (session_id, authority, mode, bet_amount, status, vault_key,
			total_deposited, total_distributed, total_refunded, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	`
	_, err = tx.Exec(ctx, query,
		s.SessionID, s.Authority, string(s.Mode), int64(s.BetAmount), string(s.Status), s.VaultKey,
		int64(l.TotalDeposited), int64(l.TotalDistributed), int64(l.TotalRefunded), s.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return model.ErrSessionExists
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	if err := insertSlots(ctx, tx, s); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit session create: %w", err)
	}
	return nil
}

// Get loads a session and its ledger.
// Returns model.ErrSessionNotFound if the session does not exist.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*model.GameSession, *vault.Ledger, error) {
	const query = `
		SELECT session_id, authority, mode, bet_amount, status, vault_key,
			total_deposited, total_distributed, total_refunded, created_at
		FROM game_sessions
		WHERE session_id = $1
	`

	var s model.GameSession
	var mode, status string
	var bet, deposited, distributed, refunded int64
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(
		&s.SessionID,
		&s.Authority,
		&mode,
		&bet,
		&status,
		&s.VaultKey,
		&deposited,
		&distributed,
		&refunded,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, model.ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("failed to get session: %w", err)
	}

	s.Mode, err = model.ParseGameMode(mode)
	if err != nil {
		return nil, nil, fmt.Errorf("session %s has unknown mode %q: %w", sessionID, mode, err)
	}
	s.Status = model.GameStatus(status)
	s.BetAmount = uint64(bet)
	perTeam := s.Mode.PlayersPerTeam()
	s.TeamA = model.NewTeam(perTeam)
	s.TeamB = model.NewTeam(perTeam)

	if err := r.loadSlots(ctx, &s); err != nil {
		return nil, nil, err
	}

	l := vault.NewLedger()
	l.TotalDeposited = uint64(deposited)
	l.TotalDistributed = uint64(distributed)
	l.TotalRefunded = uint64(refunded)
	if err := r.loadRefunded(ctx, sessionID, l); err != nil {
		return nil, nil, err
	}

	return &s, l, nil
}

// Save persists the full current state of an existing session.
func (r *SessionRepository) Save(ctx context.Context, s *model.GameSession, l *vault.Ledger) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const query = `
		UPDATE game_sessions
		SET status = $2, total_deposited = $3, total_distributed = $4, total_refunded = $5,
			updated_at = NOW()
		WHERE session_id = $1
	`
	result, err := tx.Exec(ctx, query,
		s.SessionID, string(s.Status),
		int64(l.TotalDeposited), int64(l.TotalDistributed), int64(l.TotalRefunded),
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrSessionNotFound
	}

	// The roster is rewritten wholesale rather than diffed; rosters are at
	// most ten rows.
	if _, err := tx.Exec(ctx, `DELETE FROM session_players WHERE session_id = $1`, s.SessionID); err != nil {
		return fmt.Errorf("failed to clear roster: %w", err)
	}
	if err := insertSlots(ctx, tx, s); err != nil {
		return err
	}

	for player := range l.RefundedPlayers {
		_, err := tx.Exec(ctx, `
			INSERT INTO refunded_players (session_id, player)
			VALUES ($1, $2)
			ON CONFLICT (session_id, player) DO NOTHING
		`, s.SessionID, player)
		if err != nil {
			return fmt.Errorf("failed to record refund mark: %w", err)
		}
	}

	// A session reaching a terminal status leaves a fixed-width audit
	// image behind; the first one written wins.
	if s.Status.Terminal() {
		_, err := tx.Exec(ctx, `
			INSERT INTO session_snapshots (session_id, status, snapshot)
			VALUES ($1, $2, $3)
			ON CONFLICT (session_id) DO NOTHING
		`, s.SessionID, string(s.Status), s.EncodeSnapshot())
		if err != nil {
			return fmt.Errorf("failed to write session snapshot: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit session save: %w", err)
	}
	return nil
}

// Snapshot returns the stored audit snapshot of a terminal session.
// Returns model.ErrSessionNotFound when no snapshot has been written.
func (r *SessionRepository) Snapshot(ctx context.Context, sessionID string) ([]byte, error) {
	const query = `SELECT snapshot FROM session_snapshots WHERE session_id = $1`

	var snap []byte
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(&snap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session snapshot: %w", err)
	}
	return snap, nil
}

// ListIDsByStatus returns the ids of every session in one of the given
// states, oldest first. Used by the reconciliation sweep over open
// sessions.
func (r *SessionRepository) ListIDsByStatus(ctx context.Context, statuses ...model.GameStatus) ([]string, error) {
	const query = `
		SELECT session_id
		FROM game_sessions
		WHERE status = ANY($1)
		ORDER BY created_at
	`

	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}

	rows, err := r.pool.Query(ctx, query, names)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return ids, nil
}

func insertSlots(ctx context.Context, tx pgx.Tx, s *model.GameSession) error {
	const query = `
		INSERT INTO session_players (session_id, side, slot_index, player, kills, spawns, eliminated, deposited)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, side := range []model.TeamSide{model.SideA, model.SideB} {
		team := s.Team(side)
		for i := range team.Slots {
			slot := &team.Slots[i]
			if !slot.Occupied {
				continue
			}
			_, err := tx.Exec(ctx, query,
				s.SessionID, int16(side), i, slot.Player,
				int32(slot.Kills), int32(slot.Spawns), slot.Eliminated, int64(slot.Deposited),
			)
			if err != nil {
				return fmt.Errorf("failed to insert roster slot: %w", err)
			}
		}
	}
	return nil
}

func (r *SessionRepository) loadSlots(ctx context.Context, s *model.GameSession) error {
	const query = `
		SELECT side, slot_index, player, kills, spawns, eliminated, deposited
		FROM session_players
		WHERE session_id = $1
		ORDER BY side, slot_index
	`

	rows, err := r.pool.Query(ctx, query, s.SessionID)
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			side          int16
			idx           int
			player        string
			kills, spawns int32
			eliminated    bool
			deposited     int64
		)
		if err := rows.Scan(&side, &idx, &player, &kills, &spawns, &eliminated, &deposited); err != nil {
			return fmt.Errorf("failed to scan roster slot: %w", err)
		}

		teamSide := model.TeamSide(side)
		if !teamSide.Valid() {
			return fmt.Errorf("session %s has roster slot on unknown side %d", s.SessionID, side)
		}
		team := s.Team(teamSide)
		if idx < 0 || idx >= len(team.Slots) {
			return fmt.Errorf("session %s has roster slot outside mode %s: side %s index %d",
				s.SessionID, s.Mode, teamSide, idx)
		}
		team.Slots[idx] = model.PlayerSlot{
			Player:     player,
			Occupied:   true,
			Kills:      uint32(kills),
			Spawns:     uint32(spawns),
			Eliminated: eliminated,
			Deposited:  uint64(deposited),
		}
		team.Deposited += uint64(deposited)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating roster: %w", err)
	}
	return nil
}

func (r *SessionRepository) loadRefunded(ctx context.Context, sessionID string, l *vault.Ledger) error {
	const query = `SELECT player FROM refunded_players WHERE session_id = $1`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load refund marks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var player string
		if err := rows.Scan(&player); err != nil {
			return fmt.Errorf("failed to scan refund mark: %w", err)
		}
		l.RefundedPlayers[player] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating refund marks: %w", err)
	}
	return nil
}
