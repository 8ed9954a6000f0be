// Package roster owns team membership for a session: slot assignment,
// capacity, and the one-slot-per-identity rule.
package roster

import (
	"fmt"

	"game-wager-service/internal/model"
)

// Join places a player into the first empty slot on the requested side and
// grants their initial spawn allotment. The duplicate check spans both
// teams, and slot emptiness is re-validated at the point of write, so the
// caller only has to hold the session lock for the whole call to rule out
// lost updates.
func Join(s *model.GameSession, player string, side model.TeamSide, initialSpawns uint32) (int, error) {
	if !side.Valid() {
		return 0, fmt.Errorf("%w: %d", model.ErrInvalidSide, uint8(side))
	}
	if player == "" {
		return 0, fmt.Errorf("%w: empty player identity", model.ErrInvalidIdentifier)
	}
	if _, _, found := s.FindPlayer(player); found {
		return 0, model.ErrPlayerAlreadyInSession
	}

	team := s.Team(side)
	idx, ok := team.EmptySlotIndex()
	if !ok {
		return 0, model.ErrTeamFull
	}
	if team.Slots[idx].Occupied {
		return 0, model.ErrTeamFull
	}

	team.Slots[idx] = model.PlayerSlot{
		Player:   player,
		Occupied: true,
		Spawns:   initialSpawns,
	}
	return idx, nil
}

// Lookup resolves a player's slot on their declared side. The declared side
// must match where the player actually is; protocol events never trust a
// caller-supplied position over the stored roster.
func Lookup(s *model.GameSession, player string, side model.TeamSide) (*model.PlayerSlot, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("%w: %d", model.ErrInvalidSide, uint8(side))
	}
	team := s.Team(side)
	idx, ok := team.IndexOf(player)
	if !ok {
		return nil, fmt.Errorf("%w: %s on side %s", model.ErrPlayerNotFound, player, side)
	}
	return &team.Slots[idx], nil
}

// OccupiedSlots returns pointers to a team's occupied slots in roster
// order.
func OccupiedSlots(team *model.Team) []*model.PlayerSlot {
	var out []*model.PlayerSlot
	for i := range team.Slots {
		if team.Slots[i].Occupied {
			out = append(out, &team.Slots[i])
		}
	}
	return out
}

// AllOccupiedSlots returns both teams' occupied slots, side A first.
func AllOccupiedSlots(s *model.GameSession) []*model.PlayerSlot {
	return append(OccupiedSlots(&s.TeamA), OccupiedSlots(&s.TeamB)...)
}
