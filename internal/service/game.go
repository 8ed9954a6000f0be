package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"game-wager-service/internal/economy"
	"game-wager-service/internal/model"
	"game-wager-service/internal/pkg/numeric"
	"game-wager-service/internal/roster"
	"game-wager-service/internal/vault"
)

// PayToSpawn sells a spawn batch to a player mid-game. The purchase is
// priced from the session bet and the configured divisor, capped by the
// configured spawn maximum, and recorded in the vault ledger together with
// the transfer.
func (s *SessionService) PayToSpawn(ctx context.Context, sessionID, player string, side model.TeamSide) error {
	return s.withSession(ctx, sessionID, func(sess *model.GameSession, led *vault.Ledger) error {
		if err := requireStatus("pay_to_spawn", sess, model.StatusInProgress); err != nil {
			return err
		}
		if !sess.Mode.IsPayToSpawn() {
			return fmt.Errorf("%w: %s", model.ErrSpawnsNotPurchasable, sess.Mode)
		}

		slot, err := roster.Lookup(sess, player, side)
		if err != nil {
			return err
		}
		if slot.Eliminated {
			return fmt.Errorf("%w: %s", model.ErrPlayerEliminated, player)
		}

		// The cap is enforced before the purchase, so the counter can
		// never be pushed toward its overflow point.
		count := s.cfg.Wager.SpawnPurchaseCount
		maxSpawns := s.cfg.Wager.MaxSpawnsPerPlayer
		if uint64(slot.Spawns)+uint64(count) > uint64(maxSpawns) {
			return fmt.Errorf("%w: %d + %d exceeds %d",
				model.ErrSpawnLimitReached, slot.Spawns, count, maxSpawns)
		}

		cost := economy.SpawnCost(sess.BetAmount, s.cfg.Wager.SpawnCostDivisor)
		if err := led.Deposit(ctx, s.engine, player, sess.VaultKey, cost); err != nil {
			return err
		}

		slot.Spawns = numeric.SatAdd32(slot.Spawns, count)
		slotTotal, err := numeric.CheckedAdd64(slot.Deposited, cost)
		if err != nil {
			return fmt.Errorf("recording spawn purchase: %w", err)
		}
		slot.Deposited = slotTotal

		team := sess.Team(side)
		teamTotal, err := numeric.CheckedAdd64(team.Deposited, cost)
		if err != nil {
			return fmt.Errorf("recording team deposit: %w", err)
		}
		team.Deposited = teamTotal

		log.Debug().
			Str("session_id", sessionID).
			Str("player", player).
			Uint64("cost", cost).
			Uint32("spawns", slot.Spawns).
			Msg("Spawn purchase")
		return nil
	})
}

// RecordKill applies one kill event from the session authority: the
// killer's kill counter goes up, the victim loses one spawn with a floor
// of zero, and a victim killed at zero spawns is eliminated rather than
// underflowing. When one side has no players left the session can settle
// itself for the surviving side.
func (s *SessionService) RecordKill(ctx context.Context, sessionID, authority string, killerSide model.TeamSide, killer string, victimSide model.TeamSide, victim string) error {
	return s.withSession(ctx, sessionID, func(sess *model.GameSession, led *vault.Ledger) error {
		if err := requireStatus("record_kill", sess, model.StatusInProgress); err != nil {
			return err
		}
		if err := requireAuthority(sess, authority); err != nil {
			return err
		}
		if killer == victim {
			return fmt.Errorf("%w: %s", model.ErrSelfKill, killer)
		}
		if killerSide.Valid() && victimSide.Valid() && killerSide == victimSide {
			return fmt.Errorf("%w: side %s", model.ErrSameTeamKill, killerSide)
		}

		killerSlot, err := roster.Lookup(sess, killer, killerSide)
		if err != nil {
			return err
		}
		victimSlot, err := roster.Lookup(sess, victim, victimSide)
		if err != nil {
			return err
		}
		if victimSlot.Eliminated {
			return fmt.Errorf("%w: %s", model.ErrPlayerEliminated, victim)
		}

		killerSlot.Kills = numeric.SatAdd32(killerSlot.Kills, 1)
		if victimSlot.Spawns > 0 {
			victimSlot.Spawns--
		} else {
			victimSlot.Eliminated = true
			log.Info().
				Str("session_id", sessionID).
				Str("player", victim).
				Msg("Player eliminated")
		}

		if s.cfg.Wager.AutoResolveElimination && sess.Team(victimSide).AllEliminated() {
			winner := victimSide.Opponent()
			receipt, err := s.settleLocked(ctx, sess, led, winner)
			if err != nil {
				return fmt.Errorf("auto-resolving for side %s: %w", winner, err)
			}
			log.Info().
				Str("session_id", sessionID).
				Str("winner_side", winner.String()).
				Uint64("total", receipt.Total).
				Msg("Session auto-resolved by elimination")
		}
		return nil
	})
}
