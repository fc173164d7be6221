package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Run creates the schema. Statements are written in the dialect subset shared
// by SQLite and Postgres: TEXT keys, TEXT timestamps in RFC 3339 UTC (which
// sort chronologically), and no database-side defaults.
func Run(conn *sqlx.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id            TEXT PRIMARY KEY,
			kind          TEXT NOT NULL,
			name          TEXT NOT NULL,
			manufacturer  TEXT NOT NULL,
			batch         TEXT NOT NULL,
			expiry_date   TEXT,
			minimum_stock INTEGER NOT NULL,
			storage_class TEXT NOT NULL,
			category      TEXT NOT NULL,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS locations (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			kind TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS stock_levels (
			item_id     TEXT NOT NULL,
			location_id TEXT NOT NULL,
			quantity    INTEGER NOT NULL,
			updated_at  TEXT NOT NULL,
			PRIMARY KEY (item_id, location_id)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id                      TEXT PRIMARY KEY,
			type                    TEXT NOT NULL,
			item_id                 TEXT NOT NULL,
			item_kind               TEXT NOT NULL,
			quantity                INTEGER NOT NULL,
			source_location_id      TEXT,
			destination_location_id TEXT,
			reason                  TEXT NOT NULL,
			patient_ref             TEXT,
			patient_name            TEXT,
			status                  TEXT NOT NULL,
			effect_applied          BOOLEAN NOT NULL,
			requested_by            TEXT NOT NULL,
			processed_by            TEXT,
			requested_at            TEXT NOT NULL,
			processed_at            TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_item
			ON transactions (item_id, requested_at)`,
		`CREATE TABLE IF NOT EXISTS damage_reports (
			id             TEXT PRIMARY KEY,
			transaction_id TEXT NOT NULL,
			item_id        TEXT NOT NULL,
			item_kind      TEXT NOT NULL,
			location_id    TEXT NOT NULL,
			quantity       INTEGER NOT NULL,
			batch          TEXT NOT NULL,
			reason         TEXT NOT NULL,
			reported_by    TEXT NOT NULL,
			reported_at    TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id         TEXT PRIMARY KEY,
			type       TEXT NOT NULL,
			title      TEXT NOT NULL,
			message    TEXT NOT NULL,
			read       BOOLEAN NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id               TEXT PRIMARY KEY,
			name             TEXT NOT NULL,
			email            TEXT NOT NULL UNIQUE,
			password_hash    TEXT NOT NULL,
			role             TEXT NOT NULL,
			home_location_id TEXT,
			created_at       TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cases (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			number      TEXT NOT NULL,
			description TEXT NOT NULL,
			file_name   TEXT,
			file_type   TEXT,
			file_data   TEXT,
			created_at  TEXT NOT NULL
		)`,
	}

	for i, stmt := range schema {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("migration statement %d failed: %w", i+1, err)
		}
	}
	return nil
}
