package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"game-wager-service/internal/economy"
	"game-wager-service/internal/model"
	"game-wager-service/internal/roster"
	"game-wager-service/internal/vault"
)

// Settle distributes the full custody balance for a declared winner side
// and completes the session. Only the session authority may settle; the
// winner set comes strictly from the stored roster, never from the caller.
func (s *SessionService) Settle(ctx context.Context, sessionID, authority string, winnerSide model.TeamSide) (*model.PayoutReceipt, error) {
	var receipt *model.PayoutReceipt
	err := s.withSession(ctx, sessionID, func(sess *model.GameSession, led *vault.Ledger) error {
		if err := requireStatus("settle", sess, model.StatusInProgress); err != nil {
			return err
		}
		if err := requireAuthority(sess, authority); err != nil {
			return err
		}
		if !winnerSide.Valid() {
			return fmt.Errorf("%w: %d", model.ErrInvalidWinner, uint8(winnerSide))
		}

		var err error
		receipt, err = s.settleLocked(ctx, sess, led, winnerSide)
		return err
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// settleLocked runs settlement for an InProgress session whose lock is
// already held. Payouts are a deterministic function of the actual vault
// balance, the configured weights, and the roster; their sum always equals
// that balance, and the session only becomes Completed once the vault is
// verifiably empty.
func (s *SessionService) settleLocked(ctx context.Context, sess *model.GameSession, led *vault.Ledger, winnerSide model.TeamSide) (*model.PayoutReceipt, error) {
	balance, err := s.engine.Balance(ctx, sess.VaultKey)
	if err != nil {
		return nil, fmt.Errorf("reading vault balance: %w", err)
	}
	if err := led.Reconcile(sess.VaultKey, balance); err != nil {
		return nil, err
	}

	winners := roster.OccupiedSlots(sess.Team(winnerSide))
	if len(winners) == 0 {
		return nil, fmt.Errorf("%w: side %s has no players", model.ErrInvalidWinner, winnerSide)
	}

	hasTreasury := s.cfg.Payout.TreasuryAccount != ""
	feeBps := s.cfg.Payout.ProtocolFeeBps

	recipients := winners
	var dist economy.Distribution
	if sess.Mode.IsPayToSpawn() {
		weights := economy.Weights{Kill: s.cfg.Payout.KillWeight, Spawn: s.cfg.Payout.SpawnWeight}
		all := roster.AllOccupiedSlots(sess)
		scores := make([]uint64, len(all))
		for i, slot := range all {
			scores[i] = economy.Score(slot.Kills, slot.Spawns, weights)
		}
		var scored bool
		dist, scored = economy.WeightedSplit(balance, scores, feeBps, hasTreasury)
		if scored {
			recipients = all
		} else {
			// Nobody scored; fall back to an even split over the winners.
			dist = economy.EvenSplit(balance, len(winners), feeBps, hasTreasury)
		}
	} else {
		dist = economy.EvenSplit(balance, len(winners), feeBps, hasTreasury)
	}

	receipt := &model.PayoutReceipt{
		SessionID:  sess.SessionID,
		WinnerSide: winnerSide,
		Fee:        dist.Treasury,
	}
	for i, slot := range recipients {
		share := dist.Shares[i]
		if share == 0 {
			continue
		}
		if err := led.Distribute(ctx, s.engine, sess.VaultKey, slot.Player, share); err != nil {
			return nil, fmt.Errorf("paying %s: %w", slot.Player, err)
		}
		receipt.Payouts = append(receipt.Payouts, model.Payout{Player: slot.Player, Amount: share})
		receipt.Total += share
	}
	if dist.Treasury > 0 {
		if err := led.Distribute(ctx, s.engine, sess.VaultKey, s.cfg.Payout.TreasuryAccount, dist.Treasury); err != nil {
			return nil, fmt.Errorf("paying treasury: %w", err)
		}
		receipt.Total += dist.Treasury
	}

	// The vault must be fully drained before the session can complete.
	remaining, err := s.engine.Balance(ctx, sess.VaultKey)
	if err != nil {
		return nil, fmt.Errorf("verifying vault drainage: %w", err)
	}
	if remaining != 0 {
		return nil, &vault.ReconciliationError{VaultKey: sess.VaultKey, Expected: 0, Actual: remaining}
	}

	sess.Status = model.StatusCompleted
	log.Info().
		Str("session_id", sess.SessionID).
		Str("winner_side", winnerSide.String()).
		Uint64("distributed", receipt.Total).
		Uint64("fee", receipt.Fee).
		Msg("Session settled")
	return receipt, nil
}

// Reconcile compares an open session's actual vault balance against the
// ledger's tracked balance. A divergence means value moved around the
// ledger and the session needs operator attention before it can settle.
func (s *SessionService) Reconcile(ctx context.Context, sessionID string) error {
	return s.withSession(ctx, sessionID, func(sess *model.GameSession, led *vault.Ledger) error {
		if sess.Status.Terminal() {
			return nil
		}
		balance, err := s.engine.Balance(ctx, sess.VaultKey)
		if err != nil {
			return fmt.Errorf("reading vault balance: %w", err)
		}
		return led.Reconcile(sess.VaultKey, balance)
	})
}

// Refund returns every occupied player's own tracked deposit and ends the
// session in Refunded. Each player is marked refunded immediately after
// their transfer, so an interrupted refund resumes where it stopped
// without paying anyone twice; a repeat call on an already-Refunded
// session is a no-op.
func (s *SessionService) Refund(ctx context.Context, sessionID, authority string) (*model.RefundReceipt, error) {
	var receipt *model.RefundReceipt
	err := s.withSession(ctx, sessionID, func(sess *model.GameSession, led *vault.Ledger) error {
		if err := requireStatus("refund", sess,
			model.StatusWaitingForPlayers, model.StatusInProgress, model.StatusRefunded); err != nil {
			return err
		}
		if err := requireAuthority(sess, authority); err != nil {
			return err
		}

		var err error
		receipt, err = s.refundOccupied(ctx, sess, led)
		if err != nil {
			return err
		}

		sess.Status = model.StatusRefunded
		log.Info().
			Str("session_id", sessionID).
			Uint64("refunded", receipt.Total).
			Msg("Session refunded")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// refundOccupied pays back each occupied, not-yet-refunded player their
// tracked deposited share. Progress is persisted after every transfer so a
// mid-pass failure leaves correct, resumable state.
func (s *SessionService) refundOccupied(ctx context.Context, sess *model.GameSession, led *vault.Ledger) (*model.RefundReceipt, error) {
	receipt := &model.RefundReceipt{SessionID: sess.SessionID}
	for _, slot := range roster.AllOccupiedSlots(sess) {
		if led.Refunded(slot.Player) {
			continue
		}
		if err := s.refundOne(ctx, sess, led, slot.Player, slot.Deposited); err != nil {
			return nil, err
		}
		receipt.Refunds = append(receipt.Refunds, model.Payout{Player: slot.Player, Amount: slot.Deposited})
		receipt.Total += slot.Deposited
	}
	return receipt, nil
}

func (s *SessionService) refundOne(ctx context.Context, sess *model.GameSession, led *vault.Ledger, player string, amount uint64) error {
	if err := led.RefundPlayer(ctx, s.engine, sess.VaultKey, player, amount); err != nil {
		return fmt.Errorf("refunding %s: %w", player, err)
	}
	// Commit per player: the refunded set must survive a failure later in
	// the pass.
	if err := s.store.Save(ctx, sess, led); err != nil {
		return fmt.Errorf("persisting refund of %s: %w", player, err)
	}
	return nil
}
