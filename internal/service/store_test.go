package service

import (
	"context"
	"maps"
	"sync"
	"time"

	"game-wager-service/internal/config"
	"game-wager-service/internal/model"
	"game-wager-service/internal/pkg/lock"
	"game-wager-service/internal/vault"
)

// memStore is an in-memory SessionStore for unit tests. Get and Save deep
// copy, matching a real store: mutations are only visible once saved.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]*storedState
}

type storedState struct {
	sess *model.GameSession
	led  *vault.Ledger
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*storedState)}
}

func (m *memStore) Create(ctx context.Context, s *model.GameSession, l *vault.Ledger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.SessionID]; ok {
		return model.ErrSessionExists
	}
	m.sessions[s.SessionID] = &storedState{sess: cloneSession(s), led: cloneLedger(l)}
	return nil
}

func (m *memStore) Get(ctx context.Context, sessionID string) (*model.GameSession, *vault.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil, model.ErrSessionNotFound
	}
	return cloneSession(st.sess), cloneLedger(st.led), nil
}

func (m *memStore) Save(ctx context.Context, s *model.GameSession, l *vault.Ledger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.SessionID]; !ok {
		return model.ErrSessionNotFound
	}
	m.sessions[s.SessionID] = &storedState{sess: cloneSession(s), led: cloneLedger(l)}
	return nil
}

func cloneSession(s *model.GameSession) *model.GameSession {
	c := *s
	c.TeamA.Slots = append([]model.PlayerSlot(nil), s.TeamA.Slots...)
	c.TeamB.Slots = append([]model.PlayerSlot(nil), s.TeamB.Slots...)
	return &c
}

func cloneLedger(l *vault.Ledger) *vault.Ledger {
	c := *l
	c.RefundedPlayers = maps.Clone(l.RefundedPlayers)
	if c.RefundedPlayers == nil {
		c.RefundedPlayers = make(map[string]bool)
	}
	return &c
}

func testConfig() *config.Config {
	return &config.Config{
		Wager: config.WagerConfig{
			MinBet:                 100,
			MaxBet:                 1_000_000,
			SessionIDMaxLen:        10,
			InitialSpawns:          10,
			SpawnPurchaseCount:     10,
			SpawnCostDivisor:       4,
			MaxSpawnsPerPlayer:     250,
			AutoResolveElimination: true,
			LockTimeout:            5 * time.Second,
		},
		Payout: config.PayoutConfig{KillWeight: 1},
	}
}

func newTestService(cfg *config.Config) (*SessionService, *vault.MemoryEngine, *memStore) {
	if cfg == nil {
		cfg = testConfig()
	}
	engine := vault.NewMemoryEngine()
	store := newMemStore()
	svc := NewSessionService(store, engine, lock.NewSessionLock(), cfg)
	return svc, engine, store
}
