package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"game-wager-service/internal/model"
	"game-wager-service/internal/pkg/numeric"
	"game-wager-service/internal/roster"
	"game-wager-service/internal/vault"
)

// CreateSession validates the identifier, mode, and bet amount, then
// persists a fresh WaitingForPlayers session with a dedicated vault.
func (s *SessionService) CreateSession(ctx context.Context, sessionID, authority string, mode model.GameMode, bet uint64) (*model.GameSession, error) {
	if err := model.ValidateSessionID(sessionID, s.cfg.Wager.SessionIDMaxLen); err != nil {
		return nil, err
	}
	if authority == "" {
		return nil, fmt.Errorf("%w: empty authority", model.ErrInvalidIdentifier)
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidMode, mode)
	}
	if bet < s.cfg.Wager.MinBet || bet > s.cfg.Wager.MaxBet {
		return nil, fmt.Errorf("%w: %d outside [%d, %d]",
			model.ErrInvalidBetAmount, bet, s.cfg.Wager.MinBet, s.cfg.Wager.MaxBet)
	}

	sess := model.NewGameSession(sessionID, authority, mode, bet)
	if err := s.store.Create(ctx, sess, vault.NewLedger()); err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", sessionID).
		Str("mode", string(mode)).
		Uint64("bet_amount", bet).
		Msg("Game session created")

	return sess, nil
}

// Join places a player on a side, takes their entry bet into the vault,
// and grants the initial spawn allotment. The slot write, the bet
// transfer, and the automatic start once both teams are full are one
// atomic unit under the session lock.
func (s *SessionService) Join(ctx context.Context, sessionID, player string, side model.TeamSide) error {
	return s.withSession(ctx, sessionID, func(sess *model.GameSession, led *vault.Ledger) error {
		if err := requireStatus("join", sess, model.StatusWaitingForPlayers); err != nil {
			return err
		}

		idx, err := roster.Join(sess, player, side, s.cfg.Wager.InitialSpawns)
		if err != nil {
			return err
		}

		team := sess.Team(side)
		if err := led.Deposit(ctx, s.engine, player, sess.VaultKey, sess.BetAmount); err != nil {
			// Slot write and bet transfer succeed or fail together.
			team.Slots[idx] = model.PlayerSlot{}
			return err
		}
		team.Slots[idx].Deposited = sess.BetAmount
		teamTotal, err := numeric.CheckedAdd64(team.Deposited, sess.BetAmount)
		if err != nil {
			return fmt.Errorf("recording team deposit: %w", err)
		}
		team.Deposited = teamTotal

		if sess.RosterFull() {
			sess.Status = model.StatusInProgress
			log.Info().
				Str("session_id", sessionID).
				Msg("Roster full, session in progress")
		}
		return nil
	})
}

// Cancel aborts a session before it starts. It is only available while net
// deposits are at or below the configured threshold; anything already
// deposited is returned to its player before the session is marked
// Cancelled.
func (s *SessionService) Cancel(ctx context.Context, sessionID, authority string) error {
	return s.withSession(ctx, sessionID, func(sess *model.GameSession, led *vault.Ledger) error {
		if err := requireStatus("cancel", sess, model.StatusWaitingForPlayers); err != nil {
			return err
		}
		if err := requireAuthority(sess, authority); err != nil {
			return err
		}
		if net := led.ExpectedBalance(); net > s.cfg.Wager.CancelDepositThreshold {
			return fmt.Errorf("%w: %d deposited", ErrCancelDepositsExceeded, net)
		}

		if _, err := s.refundOccupied(ctx, sess, led); err != nil {
			return err
		}

		sess.Status = model.StatusCancelled
		log.Info().Str("session_id", sessionID).Msg("Session cancelled")
		return nil
	})
}

// GetSession returns the current session record.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*model.GameSession, error) {
	sess, _, err := s.store.Get(ctx, sessionID)
	return sess, err
}
