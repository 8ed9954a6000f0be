// Package main is the entry point for the wager settlement daemon.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"game-wager-service/internal/config"
	"game-wager-service/internal/model"
	"game-wager-service/internal/pkg/db"
	"game-wager-service/internal/pkg/lock"
	"game-wager-service/internal/repository"
	"game-wager-service/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := repository.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	sessionRepo := repository.NewSessionRepository(dbPool.Pool)
	accountRepo := repository.NewAccountRepository(dbPool.Pool)

	// Initialize session lock and service
	sessionLock := lock.NewSessionLock()
	sessions := service.NewSessionService(sessionRepo, accountRepo, sessionLock, cfg)

	log.Info().
		Uint64("min_bet", cfg.Wager.MinBet).
		Uint64("max_bet", cfg.Wager.MaxBet).
		Uint64("kill_weight", cfg.Payout.KillWeight).
		Uint64("spawn_weight", cfg.Payout.SpawnWeight).
		Msg("Settlement service ready")

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Sweep open sessions so a vault that diverged from its ledger is
	// flagged long before anyone tries to settle it.
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigChan:
			log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			log.Info().Msg("Daemon stopped gracefully")
			return
		case <-ticker.C:
			if err := dbPool.HealthCheck(ctx); err != nil {
				log.Error().Err(err).Msg("Database health check failed")
				continue
			}
			reconcileOpenSessions(ctx, sessionRepo, sessions)
		}
	}
}

// reconcileOpenSessions checks every non-terminal session's custody
// invariant. Divergences are logged, never auto-corrected.
func reconcileOpenSessions(ctx context.Context, repo *repository.SessionRepository, sessions *service.SessionService) {
	ids, err := repo.ListIDsByStatus(ctx, model.StatusWaitingForPlayers, model.StatusInProgress)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list open sessions")
		return
	}

	for _, id := range ids {
		if err := sessions.Reconcile(ctx, id); err != nil {
			log.Error().Err(err).Str("session_id", id).Msg("Vault reconciliation failed")
		}
	}
	if len(ids) > 0 {
		log.Debug().Int("sessions", len(ids)).Msg("Reconciliation sweep completed")
	}
}
