package model

import (
	"errors"
	"fmt"
)

// Validation errors: rejected before any state mutation or transfer, the
// caller can retry with corrected input.
var (
	ErrInvalidIdentifier = errors.New("invalid session identifier")
	ErrInvalidBetAmount  = errors.New("invalid bet amount")
	ErrInvalidMode       = errors.New("invalid game mode")
	ErrInvalidSide       = errors.New("invalid team side")
)

// State errors: the operation is not legal given the session's current
// state or the caller's identity. Not retryable without a precondition
// change.
var (
	ErrInvalidSessionState = errors.New("operation not allowed in current session state")
	ErrUnauthorized        = errors.New("caller is not the session authority")
)

// Store errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
)

// Roster and economy errors.
var (
	ErrTeamFull               = errors.New("team is full")
	ErrPlayerAlreadyInSession = errors.New("player already joined this session")
	ErrPlayerNotFound         = errors.New("player not found on the declared side")
	ErrPlayerEliminated       = errors.New("player has been eliminated")
	ErrSelfKill               = errors.New("killer and victim are the same player")
	ErrSameTeamKill           = errors.New("killer and victim are on the same side")
	ErrSpawnLimitReached      = errors.New("spawn limit reached")
	ErrSpawnsNotPurchasable   = errors.New("game mode does not allow spawn purchases")
	ErrInvalidWinner          = errors.New("invalid winner side")
)

// InvalidSessionStateError names the attempted action and the session
// status it was rejected in. It unwraps to ErrInvalidSessionState.
type InvalidSessionStateError struct {
	Action string
	Status GameStatus
}

func (e *InvalidSessionStateError) Error() string {
	return fmt.Sprintf("%s not allowed: session is %s", e.Action, e.Status)
}

func (e *InvalidSessionStateError) Unwrap() error {
	return ErrInvalidSessionState
}

// NewStateError builds the rejection for an action attempted outside its
// legal set of states.
func NewStateError(action string, status GameStatus) error {
	return &InvalidSessionStateError{Action: action, Status: status}
}
