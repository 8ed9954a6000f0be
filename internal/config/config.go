// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
//
// All economic constants of the settlement protocol live here rather than
// in the handlers: spawn pricing, spawn grants, payout weights, and the
// protocol fee can be tuned without touching settlement logic.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Wager    WagerConfig    `mapstructure:"wager"`
	Payout   PayoutConfig   `mapstructure:"payout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// WagerConfig holds session creation and spawn economy parameters.
type WagerConfig struct {
	// MinBet rejects dust games; must be > 0.
	MinBet uint64 `mapstructure:"min_bet"`
	// MaxBet rejects pathologically large games.
	MaxBet uint64 `mapstructure:"max_bet"`
	// SessionIDMaxLen bounds identifier length at creation.
	SessionIDMaxLen int `mapstructure:"session_id_max_len"`
	// InitialSpawns is granted to each player at join.
	InitialSpawns uint32 `mapstructure:"initial_spawns"`
	// SpawnPurchaseCount is credited per pay-to-spawn purchase.
	SpawnPurchaseCount uint32 `mapstructure:"spawn_purchase_count"`
	// SpawnCostDivisor prices a purchase at bet/divisor. Zero means the
	// full entry bet.
	SpawnCostDivisor uint64 `mapstructure:"spawn_cost_divisor"`
	// MaxSpawnsPerPlayer caps total spawns; purchases past it are rejected
	// so the counter can never be pushed toward overflow.
	MaxSpawnsPerPlayer uint32 `mapstructure:"max_spawns_per_player"`
	// AutoResolveElimination settles a session as soon as one side has no
	// players left.
	AutoResolveElimination bool `mapstructure:"auto_resolve_elimination"`
	// CancelDepositThreshold is the largest net deposit total a session may
	// still be cancelled with; beyond it the authority must refund instead.
	CancelDepositThreshold uint64 `mapstructure:"cancel_deposit_threshold"`
	// LockTimeout bounds how long an operation waits on the session lock.
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// PayoutConfig holds settlement weights and fee parameters.
//
// KillWeight and SpawnWeight are independent: pay-to-spawn earnings score a
// player as kills*KillWeight + remainingSpawns*SpawnWeight. A spawn weight
// of zero (the default) makes payouts purely skill-based.
type PayoutConfig struct {
	KillWeight  uint64 `mapstructure:"kill_weight"`
	SpawnWeight uint64 `mapstructure:"spawn_weight"`
	// ProtocolFeeBps is taken off the vault balance before distribution
	// (100 = 1%). Requires TreasuryAccount when non-zero.
	ProtocolFeeBps uint64 `mapstructure:"protocol_fee_bps"`
	// TreasuryAccount receives the fee and any integer-division remainder.
	// When empty, the remainder goes to the first winner slot instead.
	TreasuryAccount string `mapstructure:"treasury_account"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the given directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. DATABASE_HOST, WAGER_MIN_BET, PAYOUT_KILL_WEIGHT.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; env vars can provide everything.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the settlement engine cannot run under.
func (c *Config) Validate() error {
	if c.Wager.MinBet == 0 {
		return fmt.Errorf("wager.min_bet must be greater than zero")
	}
	if c.Wager.MaxBet < c.Wager.MinBet {
		return fmt.Errorf("wager.max_bet (%d) below wager.min_bet (%d)", c.Wager.MaxBet, c.Wager.MinBet)
	}
	if c.Wager.SpawnPurchaseCount == 0 {
		return fmt.Errorf("wager.spawn_purchase_count must be greater than zero")
	}
	if c.Wager.MaxSpawnsPerPlayer < c.Wager.InitialSpawns {
		return fmt.Errorf("wager.max_spawns_per_player (%d) below wager.initial_spawns (%d)",
			c.Wager.MaxSpawnsPerPlayer, c.Wager.InitialSpawns)
	}
	if c.Payout.ProtocolFeeBps > 10000 {
		return fmt.Errorf("payout.protocol_fee_bps (%d) exceeds 10000", c.Payout.ProtocolFeeBps)
	}
	if c.Payout.ProtocolFeeBps > 0 && c.Payout.TreasuryAccount == "" {
		return fmt.Errorf("payout.treasury_account required when payout.protocol_fee_bps is set")
	}
	return nil
}

// setDefaults sets default configuration values. The economic defaults
// mirror the legacy protocol constants.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "wagerd")
	v.SetDefault("database.name", "wagerd")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Wager defaults
	v.SetDefault("wager.min_bet", 100)
	v.SetDefault("wager.max_bet", 100_000_000)
	v.SetDefault("wager.session_id_max_len", 10)
	v.SetDefault("wager.initial_spawns", 10)
	v.SetDefault("wager.spawn_purchase_count", 10)
	v.SetDefault("wager.spawn_cost_divisor", 4)
	v.SetDefault("wager.max_spawns_per_player", 250)
	v.SetDefault("wager.auto_resolve_elimination", true)
	v.SetDefault("wager.cancel_deposit_threshold", 0)
	v.SetDefault("wager.lock_timeout", "5s")

	// Payout defaults: pure skill-based earnings, no fee.
	v.SetDefault("payout.kill_weight", 1)
	v.SetDefault("payout.spawn_weight", 0)
	v.SetDefault("payout.protocol_fee_bps", 0)
	v.SetDefault("payout.treasury_account", "")
}
