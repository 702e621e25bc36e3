// ./internal/state/db.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS strategies (
			position_key TEXT PRIMARY KEY,
			platform TEXT NOT NULL,
			protocol TEXT NOT NULL,
			pair TEXT NOT NULL,
			reward_denom TEXT NOT NULL DEFAULT '',
			pool_id TEXT NOT NULL DEFAULT '',
			gauge_id TEXT NOT NULL DEFAULT '',
			variant INT NOT NULL DEFAULT 0,
			created BOOLEAN NOT NULL DEFAULT FALSE,
			active BOOLEAN NOT NULL DEFAULT FALSE,
			allocation_bps INT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS vault_events (
			event_id BIGSERIAL PRIMARY KEY,
			event_type TEXT NOT NULL,
			operation_id TEXT NOT NULL,
			event_timestamp TIMESTAMPTZ NOT NULL,
			actor TEXT NOT NULL DEFAULT '',
			recipient TEXT NOT NULL DEFAULT '',
			position_key TEXT NOT NULL DEFAULT '',
			amount TEXT NOT NULL DEFAULT '',
			shares TEXT NOT NULL DEFAULT '',
			fee TEXT NOT NULL DEFAULT '',
			bps INT NOT NULL DEFAULT 0,
			note TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_vault_events_type ON vault_events (event_type);
		CREATE INDEX IF NOT EXISTS idx_vault_events_timestamp ON vault_events (event_timestamp DESC);

		CREATE TABLE IF NOT EXISTS vault_snapshots (
			snapshot_id BIGSERIAL PRIMARY KEY,
			operation_id TEXT NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL,
			cash_on_hand TEXT NOT NULL,
			total_pool_value TEXT NOT NULL,
			total_shares TEXT NOT NULL,
			active_count INT NOT NULL,
			allocation_bps INT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_vault_snapshots_timestamp ON vault_snapshots (snapshot_timestamp DESC);
	`

	if _, err := DB.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply database schema: %w", err)
	}

	log.Info().Msg("Database schema is up to date.")
	return nil
}
