package db

import "fmt"

// migrations are applied in order on startup. Statements must be idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		user_id        TEXT PRIMARY KEY,
		api_key        TEXT NOT NULL,
		access_token   TEXT NOT NULL,
		token_time     TIMESTAMP,
		fund_available REAL NOT NULL DEFAULT 0,
		is_active      INTEGER NOT NULL DEFAULT 1,
		created_at     TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at     TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS instruments (
		token      INTEGER PRIMARY KEY,
		symbol     TEXT NOT NULL UNIQUE,
		margin     REAL NOT NULL DEFAULT 1,
		is_active  INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS controls (
		id                       INTEGER PRIMARY KEY CHECK (id = 1),
		entry_trigger_pct        REAL NOT NULL,
		max_risk_pct_per_trade   REAL NOT NULL,
		max_position_investment  REAL NOT NULL,
		min_position_investment  REAL NOT NULL,
		position_stoploss_pct    REAL NOT NULL,
		position_target_pct      REAL NOT NULL,
		account_stoploss_pct     REAL NOT NULL,
		account_target_sl_pct    REAL NOT NULL,
		account_target_pct       REAL NOT NULL,
		entry_time_start         TEXT NOT NULL,
		entry_time_end           TEXT NOT NULL,
		exit_time                TEXT NOT NULL,
		updated_at               TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS live_monitor (
		user_id            TEXT PRIMARY KEY,
		initial_value      REAL NOT NULL DEFAULT 0,
		current_value      REAL NOT NULL DEFAULT 0,
		stoploss           REAL NOT NULL DEFAULT 0,
		net_profit_percent REAL NOT NULL DEFAULT 0,
		value_at_risk      REAL NOT NULL DEFAULT 0,
		commission         REAL NOT NULL DEFAULT 0,
		profit             REAL NOT NULL DEFAULT 0,
		updated_at         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
}

// ApplyMigrations creates missing tables.
func ApplyMigrations(d *Database) error {
	for i, stmt := range migrations {
		if _, err := d.DB.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
