package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-wager-service/internal/config"
	"game-wager-service/internal/model"
	"game-wager-service/internal/pkg/lock"
	"game-wager-service/internal/service"
)

// Full session lifecycle through the real storage layer: create, join,
// buy spawns, record kills, settle, and verify every account balance.
func TestServiceLifecycleOverPostgres(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	cfg := &config.Config{
		Wager: config.WagerConfig{
			MinBet:                 100,
			MaxBet:                 1_000_000,
			SessionIDMaxLen:        10,
			InitialSpawns:          10,
			SpawnPurchaseCount:     10,
			SpawnCostDivisor:       1,
			MaxSpawnsPerPlayer:     250,
			AutoResolveElimination: true,
			LockTimeout:            5 * time.Second,
		},
		Payout: config.PayoutConfig{KillWeight: 1},
	}

	accounts := NewAccountRepository(pool)
	svc := service.NewSessionService(NewSessionRepository(pool), accounts, lock.NewSessionLock(), cfg)
	ctx := context.Background()

	require.NoError(t, accounts.Credit(ctx, "alice", 1000))
	require.NoError(t, accounts.Credit(ctx, "bob", 1000))

	sess, err := svc.CreateSession(ctx, "match1", "server-1", model.ModePayToSpawn1v1, 100)
	require.NoError(t, err)
	require.NoError(t, svc.Join(ctx, "match1", "alice", model.SideA))
	require.NoError(t, svc.Join(ctx, "match1", "bob", model.SideB))

	got, err := svc.GetSession(ctx, "match1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)

	// alice buys twice and bob once at full bet price, pot becomes 500.
	require.NoError(t, svc.PayToSpawn(ctx, "match1", "alice", model.SideA))
	require.NoError(t, svc.PayToSpawn(ctx, "match1", "alice", model.SideA))
	require.NoError(t, svc.PayToSpawn(ctx, "match1", "bob", model.SideB))

	for range 3 {
		require.NoError(t, svc.RecordKill(ctx, "match1", "server-1", model.SideA, "alice", model.SideB, "bob"))
	}
	require.NoError(t, svc.RecordKill(ctx, "match1", "server-1", model.SideB, "bob", model.SideA, "alice"))

	receipt, err := svc.Settle(ctx, "match1", "server-1", model.SideA)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), receipt.Total)

	aliceBal, err := accounts.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1075), aliceBal)
	bobBal, err := accounts.Balance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, uint64(925), bobBal)
	vaultBal, err := accounts.Balance(ctx, sess.VaultKey)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), vaultBal)

	got, err = svc.GetSession(ctx, "match1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, uint32(3), got.TeamA.Slots[0].Kills)
}

// Refunds survive a process restart: the refunded set loaded from storage
// keeps a second pass from paying anyone twice.
func TestRefundResumesOverPostgres(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	cfg := &config.Config{
		Wager: config.WagerConfig{
			MinBet:             100,
			MaxBet:             1_000_000,
			SessionIDMaxLen:    10,
			InitialSpawns:      10,
			SpawnPurchaseCount: 10,
			SpawnCostDivisor:   4,
			MaxSpawnsPerPlayer: 250,
			LockTimeout:        5 * time.Second,
		},
		Payout: config.PayoutConfig{KillWeight: 1},
	}

	accounts := NewAccountRepository(pool)
	newService := func() *service.SessionService {
		return service.NewSessionService(NewSessionRepository(pool), accounts, lock.NewSessionLock(), cfg)
	}
	svc := newService()
	ctx := context.Background()

	require.NoError(t, accounts.Credit(ctx, "alice", 1000))
	require.NoError(t, accounts.Credit(ctx, "bob", 1000))

	_, err := svc.CreateSession(ctx, "match1", "server-1", model.ModeWinnerTakesAll1v1, 100)
	require.NoError(t, err)
	require.NoError(t, svc.Join(ctx, "match1", "alice", model.SideA))
	require.NoError(t, svc.Join(ctx, "match1", "bob", model.SideB))

	receipt, err := svc.Refund(ctx, "match1", "server-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(200), receipt.Total)

	// A fresh service instance sees the refunded state and pays nothing.
	again, err := newService().Refund(ctx, "match1", "server-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), again.Total)

	aliceBal, err := accounts.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), aliceBal)
	bobBal, err := accounts.Balance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), bobBal)
}
