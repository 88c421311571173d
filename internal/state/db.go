// ./internal/state/db.go
package state

import (
	"context"
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
		CREATE TABLE IF NOT EXISTS pool_snapshots (
			snapshot_id SERIAL PRIMARY KEY,
			pool_name VARCHAR(255) NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			failed BOOLEAN NOT NULL,
			total_supply TEXT NOT NULL,
			surplus TEXT NOT NULL,
			gov_surplus TEXT NOT NULL,
			snapshot JSONB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_pool_snapshots_pool_timestamp ON pool_snapshots(pool_name, snapshot_timestamp DESC);

		CREATE TABLE IF NOT EXISTS operation_receipts (
			receipt_id SERIAL PRIMARY KEY,
			op_id VARCHAR(64) NOT NULL,
			op_type VARCHAR(32) NOT NULL,
			pool_name VARCHAR(255) NOT NULL,
			op_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			receipt JSONB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_operation_receipts_timestamp ON operation_receipts(op_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_operation_receipts_op_type ON operation_receipts(op_type);

		CREATE TABLE IF NOT EXISTS fee_collections (
			collection_id SERIAL PRIMARY KEY,
			pool_name VARCHAR(255) NOT NULL,
			collection_number INTEGER NOT NULL,
			collected_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			surplus_minted TEXT NOT NULL,
			gov_surplus_minted TEXT NOT NULL,
			interest_minted TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_fee_collections_pool_timestamp ON fee_collections(pool_name, collected_at DESC);

		CREATE TABLE IF NOT EXISTS config_changes (
			change_id SERIAL PRIMARY KEY,
			pool_name VARCHAR(255) NOT NULL,
			changed_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			field VARCHAR(64) NOT NULL,
			old_value TEXT NOT NULL,
			new_value TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_config_changes_pool_timestamp ON config_changes(pool_name, changed_at DESC);

		-- Collection counter table for persistent global collection tracking
		CREATE TABLE IF NOT EXISTS collection_counter (
			id INTEGER PRIMARY KEY DEFAULT 1,
			current_collection INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);

		-- Insert initial row if it doesn't exist
		INSERT INTO collection_counter (id, current_collection)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING;
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
