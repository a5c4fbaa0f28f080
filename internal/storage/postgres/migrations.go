package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
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
			key TEXT PRIMARY KEY,
			data BYTEA NOT NULL,
			version BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS swaps (
			id TEXT PRIMARY KEY,
			signature TEXT,
			caller TEXT NOT NULL,
			pool TEXT NOT NULL,
			program_id TEXT NOT NULL,
			amount_in BIGINT NOT NULL,
			minimum_amount_out BIGINT NOT NULL,
			success BOOLEAN NOT NULL,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_swaps_caller ON swaps(caller);
		CREATE INDEX IF NOT EXISTS idx_swaps_created_at ON swaps(created_at DESC);
		`,
		Down: `
		DROP TABLE IF EXISTS swaps;
		DROP TABLE IF EXISTS records;
		`,
	},
	{
		Version:     2,
		Description: "Unsigned 64-bit swap amounts",
		Up: `
		ALTER TABLE swaps
			ALTER COLUMN amount_in TYPE NUMERIC(20,0),
			ALTER COLUMN minimum_amount_out TYPE NUMERIC(20,0);
		`,
		Down: `
		ALTER TABLE swaps
			ALTER COLUMN amount_in TYPE BIGINT,
			ALTER COLUMN minimum_amount_out TYPE BIGINT;
		`,
	},
}

type Migrator struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewMigrator(pool *pgxpool.Pool) *Migrator {
	return &Migrator{pool: pool, logger: slog.Default()}
}

func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INT PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	_, err := m.pool.Exec(ctx, query)
	return err
}

func (m *Migrator) currentVersion(ctx context.Context) (int, error) {
	var version int
	err := m.pool.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

// Up applies every pending migration in one transaction.
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	current, err := m.currentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	applied := 0
	for _, migration := range migrations {
		if migration.Version <= current {
			continue
		}
		if _, err := tx.Exec(ctx, migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
		if _, err := tx.Exec(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
		applied++
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}

	if applied > 0 {
		m.logger.Info("applied migrations", "count", applied, "backend", "postgres")
	}
	return nil
}

// Down rolls back the newest steps migrations.
func (m *Migrator) Down(ctx context.Context, steps int) error {
	current, err := m.currentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if current == 0 {
		return fmt.Errorf("no migrations to rollback")
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rolledBack := 0
	for i := len(migrations) - 1; i >= 0 && rolledBack < steps; i-- {
		migration := migrations[i]
		if migration.Version > current {
			continue
		}
		if _, err := tx.Exec(ctx, migration.Down); err != nil {
			return fmt.Errorf("failed to rollback migration %d: %w", migration.Version, err)
		}
		if _, err := tx.Exec(ctx, "DELETE FROM schema_migrations WHERE version = $1", migration.Version); err != nil {
			return fmt.Errorf("failed to remove migration record %d: %w", migration.Version, err)
		}
		rolledBack++
	}

	return tx.Commit(ctx)
}
