package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					hash TEXT PRIMARY KEY,
					invoice_id TEXT NOT NULL,
					stock_code TEXT,
					description TEXT NOT NULL,
					quantity INTEGER NOT NULL,
					unit_price REAL NOT NULL,
					customer_id TEXT NOT NULL,
					country TEXT,
					invoice_date DATETIME NOT NULL,
					imported_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS training_runs (
					id TEXT PRIMARY KEY,
					created_at DATETIME NOT NULL,
					snapshot_date DATETIME NOT NULL,
					transaction_count INTEGER NOT NULL,
					customer_count INTEGER NOT NULL,
					product_count INTEGER NOT NULL,
					scaler_mean TEXT NOT NULL,
					scaler_std TEXT NOT NULL,
					scaler_samples INTEGER NOT NULL,
					k INTEGER NOT NULL,
					seed INTEGER NOT NULL,
					inertia REAL NOT NULL,
					iterations INTEGER NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS segment_centroids (
					run_id TEXT NOT NULL,
					cluster_id INTEGER NOT NULL,
					coordinates TEXT NOT NULL,
					label TEXT NOT NULL,
					PRIMARY KEY (run_id, cluster_id),
					FOREIGN KEY (run_id) REFERENCES training_runs(id)
				)`,

				`CREATE TABLE IF NOT EXISTS products (
					run_id TEXT NOT NULL,
					idx INTEGER NOT NULL,
					name TEXT NOT NULL,
					PRIMARY KEY (run_id, idx),
					FOREIGN KEY (run_id) REFERENCES training_runs(id)
				)`,

				`CREATE TABLE IF NOT EXISTS product_similarity (
					run_id TEXT NOT NULL,
					a INTEGER NOT NULL,
					b INTEGER NOT NULL,
					score REAL NOT NULL,
					PRIMARY KEY (run_id, a, b),
					FOREIGN KEY (run_id) REFERENCES training_runs(id)
				)`,

				`CREATE TABLE IF NOT EXISTS customer_segments (
					run_id TEXT NOT NULL,
					customer_id TEXT NOT NULL,
					recency INTEGER NOT NULL,
					frequency INTEGER NOT NULL,
					monetary REAL NOT NULL,
					cluster_id INTEGER NOT NULL,
					label TEXT NOT NULL,
					PRIMARY KEY (run_id, customer_id),
					FOREIGN KEY (run_id) REFERENCES training_runs(id)
				)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Add lookup indexes",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE INDEX IF NOT EXISTS idx_transactions_customer ON transactions(customer_id)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(invoice_date)`,
				`CREATE INDEX IF NOT EXISTS idx_training_runs_created_at ON training_runs(created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_customer_segments_cluster ON customer_segments(run_id, cluster_id)`,
			})
		},
	},
}

// SchemaVersion returns the schema version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
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
