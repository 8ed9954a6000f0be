// Package model defines the data model for wagered game sessions: the
// session record, team rosters, game modes, and the lifecycle status enum.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GameMode determines roster capacity and the payout rule for a session.
type GameMode string

const (
	ModeWinnerTakesAll1v1 GameMode = "wta_1v1"
	ModeWinnerTakesAll3v3 GameMode = "wta_3v3"
	ModeWinnerTakesAll5v5 GameMode = "wta_5v5"
	ModePayToSpawn1v1     GameMode = "pts_1v1"
	ModePayToSpawn3v3     GameMode = "pts_3v3"
	ModePayToSpawn5v5     GameMode = "pts_5v5"
)

// PlayersPerTeam returns the roster capacity of one side for this mode.
func (m GameMode) PlayersPerTeam() int {
	switch m {
	case ModeWinnerTakesAll1v1, ModePayToSpawn1v1:
		return 1
	case ModeWinnerTakesAll3v3, ModePayToSpawn3v3:
		return 3
	case ModeWinnerTakesAll5v5, ModePayToSpawn5v5:
		return 5
	default:
		return 0
	}
}

// IsPayToSpawn reports whether the mode allows mid-game spawn purchases
// and settles by performance weights instead of an even winner split.
func (m GameMode) IsPayToSpawn() bool {
	switch m {
	case ModePayToSpawn1v1, ModePayToSpawn3v3, ModePayToSpawn5v5:
		return true
	default:
		return false
	}
}

// Valid reports whether m is one of the defined game modes.
func (m GameMode) Valid() bool {
	return m.PlayersPerTeam() > 0
}

// ParseGameMode converts a stored mode string back into a GameMode.
func ParseGameMode(s string) (GameMode, error) {
	m := GameMode(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: unknown game mode %q", ErrInvalidMode, s)
	}
	return m, nil
}

// TeamSide identifies one of the two sides of a session. Using a dedicated
// type means a side value outside {A, B} is rejected once at the boundary
// instead of being range-checked in every handler.
type TeamSide uint8

const (
	SideA TeamSide = 0
	SideB TeamSide = 1
)

// Valid reports whether the side is one of the two defined sides.
func (s TeamSide) Valid() bool {
	return s == SideA || s == SideB
}

// Opponent returns the other side.
func (s TeamSide) Opponent() TeamSide {
	if s == SideA {
		return SideB
	}
	return SideA
}

func (s TeamSide) String() string {
	switch s {
	case SideA:
		return "A"
	case SideB:
		return "B"
	default:
		return fmt.Sprintf("TeamSide(%d)", uint8(s))
	}
}

// GameStatus is the session lifecycle state. Only the session state machine
// writes this field; every mutating operation is gated on it.
type GameStatus string

const (
	StatusWaitingForPlayers GameStatus = "waiting_for_players"
	StatusInProgress        GameStatus = "in_progress"
	StatusCompleted         GameStatus = "completed"
	StatusCancelled         GameStatus = "cancelled"
	StatusRefunded          GameStatus = "refunded"
)

// Terminal reports whether no further mutation is accepted in this status.
func (s GameStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	default:
		return false
	}
}

// PlayerSlot is one roster position. Occupancy is an explicit tag: an empty
// slot can never be confused with a participant whose identity happens to
// match a reserved sentinel value.
type PlayerSlot struct {
	Player     string
	Occupied   bool
	Kills      uint32
	Spawns     uint32
	Eliminated bool
	Deposited  uint64
}

// Team is one side's roster plus its running deposit total. Deposited is
// written only through the vault ledger path.
type Team struct {
	Slots     []PlayerSlot
	Deposited uint64
}

// NewTeam creates an empty team with the given slot capacity.
func NewTeam(capacity int) Team {
	return Team{Slots: make([]PlayerSlot, capacity)}
}

// EmptySlotIndex returns the first unoccupied slot index within capacity.
func (t *Team) EmptySlotIndex() (int, bool) {
	for i := range t.Slots {
		if !t.Slots[i].Occupied {
			return i, true
		}
	}
	return 0, false
}

// IndexOf returns the slot index occupied by the given player.
func (t *Team) IndexOf(player string) (int, bool) {
	for i := range t.Slots {
		if t.Slots[i].Occupied && t.Slots[i].Player == player {
			return i, true
		}
	}
	return 0, false
}

// Full reports whether every slot is occupied.
func (t *Team) Full() bool {
	_, ok := t.EmptySlotIndex()
	return !ok
}

// AllEliminated reports whether every occupied slot has been eliminated.
// An empty team is not considered eliminated.
func (t *Team) AllEliminated() bool {
	any := false
	for i := range t.Slots {
		if !t.Slots[i].Occupied {
			continue
		}
		any = true
		if !t.Slots[i].Eliminated {
			return false
		}
	}
	return any
}

// GameSession is one match's wager, roster, and settlement record. The
// record is retained after reaching a terminal status for audit purposes.
type GameSession struct {
	SessionID string
	Authority string
	Mode      GameMode
	BetAmount uint64
	Status    GameStatus
	TeamA     Team
	TeamB     Team
	VaultKey  string
	CreatedAt time.Time
}

// NewGameSession builds a WaitingForPlayers session with empty rosters and
// a freshly derived vault key. Inputs are assumed validated by the caller.
func NewGameSession(sessionID, authority string, mode GameMode, bet uint64) *GameSession {
	n := mode.PlayersPerTeam()
	return &GameSession{
		SessionID: sessionID,
		Authority: authority,
		Mode:      mode,
		BetAmount: bet,
		Status:    StatusWaitingForPlayers,
		TeamA:     NewTeam(n),
		TeamB:     NewTeam(n),
		VaultKey:  NewVaultKey(authority, sessionID),
		CreatedAt: time.Now().UTC(),
	}
}

// NewVaultKey derives a custody account key from the session authority, the
// session id, and a random nonce. Two authorities creating sessions with
// the same id can never collide on a vault.
func NewVaultKey(authority, sessionID string) string {
	return "vault:" + authority + ":" + sessionID + ":" + uuid.NewString()
}

// Team returns the roster for the given side.
func (g *GameSession) Team(side TeamSide) *Team {
	if side == SideA {
		return &g.TeamA
	}
	return &g.TeamB
}

// FindPlayer locates a player across both teams.
func (g *GameSession) FindPlayer(player string) (TeamSide, int, bool) {
	if i, ok := g.TeamA.IndexOf(player); ok {
		return SideA, i, true
	}
	if i, ok := g.TeamB.IndexOf(player); ok {
		return SideB, i, true
	}
	return SideA, 0, false
}

// RosterFull reports whether both teams are at capacity.
func (g *GameSession) RosterFull() bool {
	return g.TeamA.Full() && g.TeamB.Full()
}

// MaxSessionIDLen bounds the session identifier length. Oversized ids are
// rejected at creation, never truncated.
const MaxSessionIDLen = 10

// ValidateSessionID checks length and charset of a session identifier.
func ValidateSessionID(id string, maxLen int) error {
	if maxLen <= 0 || maxLen > MaxSessionIDLen {
		maxLen = MaxSessionIDLen
	}
	if len(id) == 0 {
		return fmt.Errorf("%w: empty session id", ErrInvalidIdentifier)
	}
	if len(id) > maxLen {
		return fmt.Errorf("%w: session id %q exceeds %d characters", ErrInvalidIdentifier, id, maxLen)
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return fmt.Errorf("%w: session id %q contains %q", ErrInvalidIdentifier, id, c)
		}
	}
	return nil
}

// Payout is one settlement or refund transfer to a player.
type Payout struct {
	Player string
	Amount uint64
}

// PayoutReceipt is returned by a successful settlement.
type PayoutReceipt struct {
	SessionID  string
	WinnerSide TeamSide
	Payouts    []Payout
	Fee        uint64
	Total      uint64
}

// RefundReceipt is returned by a completed refund or deposit-returning
// cancel. Refunds lists only transfers made by this call; players refunded
// by an earlier, interrupted attempt are skipped.
type RefundReceipt struct {
	SessionID string
	Refunds   []Payout
	Total     uint64
}
