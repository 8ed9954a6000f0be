// Package service implements the session state machine: the single entry
// point for every external action on a wagered game session. Each
// operation validates state and caller authority, delegates to the roster,
// economy, and vault subsystems, then advances the session, all inside one
// per-session critical section, so a precondition can never be separated
// from its mutation by a concurrent call.
package service

import (
	"context"
	"errors"
	"fmt"

	"game-wager-service/internal/config"
	"game-wager-service/internal/model"
	"game-wager-service/internal/pkg/lock"
	"game-wager-service/internal/vault"
)

// ErrCancelDepositsExceeded is returned when a cancel is attempted on a
// session holding more net deposits than the configured cancel threshold;
// the authority must use refund instead.
var ErrCancelDepositsExceeded = errors.New("session deposits exceed cancel threshold, refund instead")

// SessionStore persists sessions together with their vault ledgers. The
// two are a single aggregate: a session is never saved without its ledger.
type SessionStore interface {
	// Create persists a new session, failing with model.ErrSessionExists
	// if the id is taken.
	Create(ctx context.Context, s *model.GameSession, l *vault.Ledger) error
	// Get loads a session and its ledger, failing with
	// model.ErrSessionNotFound.
	Get(ctx context.Context, sessionID string) (*model.GameSession, *vault.Ledger, error)
	// Save persists the current state of an existing session.
	Save(ctx context.Context, s *model.GameSession, l *vault.Ledger) error
}

// SessionService orchestrates the session lifecycle over a store, a
// transfer engine, and per-session locks.
type SessionService struct {
	store  SessionStore
	engine vault.TransferEngine
	locks  *lock.SessionLock
	cfg    *config.Config
}

// NewSessionService creates a new SessionService instance.
func NewSessionService(store SessionStore, engine vault.TransferEngine, locks *lock.SessionLock, cfg *config.Config) *SessionService {
	return &SessionService{
		store:  store,
		engine: engine,
		locks:  locks,
		cfg:    cfg,
	}
}

// withSession runs fn on the loaded session under its lock, then persists
// the session and ledger. The save happens even when fn fails: transfers
// already issued must never be lost from the ledger's totals.
func (s *SessionService) withSession(ctx context.Context, sessionID string, fn func(*model.GameSession, *vault.Ledger) error) error {
	return s.locks.WithLockContext(ctx, sessionID, s.cfg.Wager.LockTimeout, func() error {
		sess, led, err := s.store.Get(ctx, sessionID)
		if err != nil {
			return err
		}
		opErr := fn(sess, led)
		if saveErr := s.store.Save(ctx, sess, led); saveErr != nil && opErr == nil {
			opErr = saveErr
		}
		return opErr
	})
}

// requireStatus gates an action on the session's current state, returning
// a rejection that names both.
func requireStatus(action string, sess *model.GameSession, allowed ...model.GameStatus) error {
	for _, st := range allowed {
		if sess.Status == st {
			return nil
		}
	}
	return model.NewStateError(action, sess.Status)
}

// requireAuthority checks that the caller is the session's reporting
// authority. Result reporting is trusted by assumption; this check is the
// boundary of that trust.
func requireAuthority(sess *model.GameSession, caller string) error {
	if caller != sess.Authority {
		return fmt.Errorf("%w: %q", model.ErrUnauthorized, caller)
	}
	return nil
}
