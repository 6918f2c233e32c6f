package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS accounts (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				institution TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS categories (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT UNIQUE NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				is_active BOOLEAN NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS transactions (
				id TEXT PRIMARY KEY,
				hash TEXT UNIQUE NOT NULL,
				account_id TEXT NOT NULL,
				date DATETIME NOT NULL,
				description TEXT NOT NULL,
				normalized_merchant TEXT,
				amount REAL NOT NULL,
				category_id INTEGER REFERENCES categories(id),
				confidence_score REAL,
				categorization_source TEXT NOT NULL DEFAULT 'none',
				created_at DATETIME NOT NULL,
				CHECK ((category_id IS NULL) = (categorization_source = 'none')),
				CHECK (confidence_score IS NULL OR categorization_source = 'ai')
			)`,
			`CREATE INDEX idx_transactions_account ON transactions(account_id)`,
			`CREATE INDEX idx_transactions_date ON transactions(date)`,
			`CREATE INDEX idx_transactions_category ON transactions(category_id)`,
			`CREATE INDEX idx_transactions_merchant ON transactions(normalized_merchant)`,
		),
	},
	{
		Version:     2,
		Description: "Add merchant and description rules",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS merchant_rules (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				merchant_pattern TEXT UNIQUE NOT NULL,
				category_id INTEGER NOT NULL REFERENCES categories(id),
				source TEXT NOT NULL CHECK (source IN ('manual', 'ai')),
				created_at DATETIME NOT NULL
			)`,
			`CREATE INDEX idx_merchant_rules_created ON merchant_rules(created_at)`,
			`CREATE TABLE IF NOT EXISTS description_rules (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				account_id TEXT NOT NULL REFERENCES accounts(id),
				description_pattern TEXT NOT NULL,
				category_id INTEGER NOT NULL REFERENCES categories(id),
				source TEXT NOT NULL CHECK (source IN ('manual', 'ai')),
				created_at DATETIME NOT NULL,
				UNIQUE (account_id, description_pattern)
			)`,
			`CREATE INDEX idx_description_rules_account_created ON description_rules(account_id, created_at)`,
		),
	},
	{
		Version:     3,
		Description: "Add categorization batch history",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS categorization_batches (
				id TEXT PRIMARY KEY,
				transaction_count INTEGER NOT NULL DEFAULT 0,
				success_count INTEGER NOT NULL DEFAULT 0,
				failure_count INTEGER NOT NULL DEFAULT 0,
				skipped_count INTEGER NOT NULL DEFAULT 0,
				rule_match_count INTEGER NOT NULL DEFAULT 0,
				desc_rule_match_count INTEGER NOT NULL DEFAULT 0,
				ai_match_count INTEGER NOT NULL DEFAULT 0,
				auto_rules_created INTEGER NOT NULL DEFAULT 0,
				duration_ms INTEGER NOT NULL DEFAULT 0,
				started_at DATETIME NOT NULL,
				completed_at DATETIME,
				error_message TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX idx_categorization_batches_started ON categorization_batches(started_at)`,
		),
	},
}

func execAll(queries ...string) func(*sql.Tx) error {
	return func(tx *sql.Tx) error {
		for _, query := range queries {
			if _, err := tx.Exec(query); err != nil {
				return fmt.Errorf("failed to execute query '%s': %w", query, err)
			}
		}
		return nil
	}
}

// Migrate runs all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the applied schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
