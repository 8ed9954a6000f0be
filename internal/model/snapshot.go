package model

import (
	"crypto/sha256"
	"encoding/binary"
)

// Audit snapshot: a fixed-width binary image of a session, written to the
// settlement log when a session reaches a terminal status. Variable-length
// identities are stored as SHA-256 digests so every field has a declared
// width. The encoded size is derived by encoding, never hand-computed; see
// SnapshotSize.

const idDigestLen = sha256.Size

// EncodeSnapshot serializes the session into its fixed-width audit form.
// The layout is a pure function of the game mode's roster capacity.
func (g *GameSession) EncodeSnapshot() []byte {
	buf := make([]byte, 0, 128)

	buf = append(buf, byte(len(g.SessionID)))
	var id [MaxSessionIDLen]byte
	copy(id[:], g.SessionID)
	buf = append(buf, id[:]...)

	buf = appendDigest(buf, g.Authority)
	buf = appendDigest(buf, g.VaultKey)
	buf = append(buf, modeByte(g.Mode), statusByte(g.Status))
	buf = binary.BigEndian.AppendUint64(buf, g.BetAmount)
	buf = binary.BigEndian.AppendUint64(buf, uint64(g.CreatedAt.Unix()))

	for _, team := range []*Team{&g.TeamA, &g.TeamB} {
		buf = binary.BigEndian.AppendUint64(buf, team.Deposited)
		for i := range team.Slots {
			s := &team.Slots[i]
			buf = append(buf, boolByte(s.Occupied), boolByte(s.Eliminated))
			buf = appendDigest(buf, s.Player)
			buf = binary.BigEndian.AppendUint32(buf, s.Kills)
			buf = binary.BigEndian.AppendUint32(buf, s.Spawns)
			buf = binary.BigEndian.AppendUint64(buf, s.Deposited)
		}
	}

	return buf
}

// SnapshotSize returns the encoded snapshot size for a mode. It is derived
// by encoding a zero-value session of that mode, so it can never drift from
// the declared field widths when the model changes.
func SnapshotSize(mode GameMode) int {
	n := mode.PlayersPerTeam()
	s := GameSession{Mode: mode, TeamA: NewTeam(n), TeamB: NewTeam(n)}
	return len(s.EncodeSnapshot())
}

func appendDigest(buf []byte, s string) []byte {
	d := sha256.Sum256([]byte(s))
	return append(buf, d[:]...)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func modeByte(m GameMode) byte {
	switch m {
	case ModeWinnerTakesAll1v1:
		return 0
	case ModeWinnerTakesAll3v3:
		return 1
	case ModeWinnerTakesAll5v5:
		return 2
	case ModePayToSpawn1v1:
		return 3
	case ModePayToSpawn3v3:
		return 4
	case ModePayToSpawn5v5:
		return 5
	default:
		return 0xff
	}
}

func statusByte(s GameStatus) byte {
	switch s {
	case StatusWaitingForPlayers:
		return 0
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	case StatusCancelled:
		return 3
	case StatusRefunded:
		return 4
	default:
		return 0xff
	}
}
