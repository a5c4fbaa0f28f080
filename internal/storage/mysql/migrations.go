package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

type Migration struct {
	Version     int
	Description string
	Up          string
	Down        string
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Whitelist records and swap journal",
		Up: `
		CREATE TABLE IF NOT EXISTS records (
			` + "`key`" + ` VARCHAR(64) PRIMARY KEY,
			data BLOB NOT NULL,
			version BIGINT NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			created_at DATETIME(6) NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;

		CREATE TABLE IF NOT EXISTS swaps (
			id VARCHAR(36) PRIMARY KEY,
			signature VARCHAR(128) NULL,
			caller VARCHAR(64) NOT NULL,
			pool VARCHAR(32) NOT NULL,
			program_id VARCHAR(64) NOT NULL,
			amount_in BIGINT UNSIGNED NOT NULL,
			minimum_amount_out BIGINT UNSIGNED NOT NULL,
			success BOOLEAN NOT NULL,
			error TEXT NULL,
			created_at DATETIME(6) NOT NULL,
			INDEX idx_swaps_caller (caller),
			INDEX idx_swaps_created_at (created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
		`,
		Down: `
		DROP TABLE IF EXISTS swaps;
		DROP TABLE IF EXISTS records;
		`,
	},
}

type Migrator struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db, logger: slog.Default()}
}

func (m *Migrator) Up(ctx context.Context) error {
	if err := m.ensureMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to ensure migrations table: %w", err)
	}

	for _, migration := range migrations {
		applied, err := m.isMigrationApplied(ctx, migration.Version)
		if err != nil {
			return fmt.Errorf("failed to check if migration %d is applied: %w", migration.Version, err)
		}
		if applied {
			continue
		}

		if err := m.exec(ctx, migration.Up,
			`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
			migration.Version, migration.Description,
		); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}

		m.logger.Info("applied migration", "version", migration.Version, "backend", "mysql")
	}

	return nil
}

// Down reverts every applied migration newer than targetVersion.
func (m *Migrator) Down(ctx context.Context, targetVersion int) error {
	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if migration.Version <= targetVersion {
			break
		}

		applied, err := m.isMigrationApplied(ctx, migration.Version)
		if err != nil {
			return fmt.Errorf("failed to check if migration %d is applied: %w", migration.Version, err)
		}
		if !applied {
			continue
		}

		if err := m.exec(ctx, migration.Down,
			`DELETE FROM schema_migrations WHERE version = ?`, migration.Version,
		); err != nil {
			return fmt.Errorf("failed to revert migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

func (m *Migrator) ensureMigrationsTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INT PRIMARY KEY,
		description VARCHAR(255) NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`)
	return err
}

func (m *Migrator) isMigrationApplied(ctx context.Context, version int) (bool, error) {
	var count int
	err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// exec runs a schema change and its bookkeeping statement in one transaction.
func (m *Migrator) exec(ctx context.Context, schema, bookkeeping string, args ...any) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, bookkeeping, args...); err != nil {
		return err
	}
	return tx.Commit()
}
