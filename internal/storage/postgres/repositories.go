package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lugondev/go-cpiswap/internal/storage"
)

const uniqueViolation = "23505"

type postgresRecordRepository struct {
	pool *pgxpool.Pool
}

func (r *postgresRecordRepository) Create(ctx context.Context, key string, data []byte) error {
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO records (key, data, version, updated_at, created_at)
		VALUES ($1, $2, 1, $3, $3)
	`, key, data, now)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return storage.ErrRecordExists
	}
	return err
}

func (r *postgresRecordRepository) Get(ctx context.Context, key string) (*storage.RecordModel, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT key, data, version, updated_at, created_at FROM records WHERE key = $1
	`, key)
	return scanRecord(row)
}

// Update locks the row for the duration of fn so concurrent writers serialize.
func (r *postgresRecordRepository) Update(ctx context.Context, key string, fn storage.UpdateFunc) (*storage.RecordModel, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := scanRecord(tx.QueryRow(ctx, `
		SELECT key, data, version, updated_at, created_at FROM records WHERE key = $1 FOR UPDATE
	`, key))
	if err != nil {
		return nil, err
	}

	next, err := fn(rec.Data)
	if err != nil {
		return nil, err
	}

	rec.Data = next
	rec.Version++
	rec.UpdatedAt = time.Now().UTC()
	if _, err := tx.Exec(ctx, `
		UPDATE records SET data = $2, version = $3, updated_at = $4 WHERE key = $1
	`, key, rec.Data, rec.Version, rec.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}
	return rec, nil
}

func scanRecord(row pgx.Row) (*storage.RecordModel, error) {
	var rec storage.RecordModel
	err := row.Scan(&rec.Key, &rec.Data, &rec.Version, &rec.UpdatedAt, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

type postgresSwapRepository struct {
	pool *pgxpool.Pool
}

const swapColumns = `id, COALESCE(signature, ''), caller, pool, program_id, amount_in::text, minimum_amount_out::text,
	success, COALESCE(error, ''), created_at`

func (r *postgresSwapRepository) Save(ctx context.Context, swap *storage.SwapModel) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO swaps (id, signature, caller, pool, program_id, amount_in, minimum_amount_out, success, error, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6::text::numeric, $7::text::numeric, $8, NULLIF($9, ''), $10)
	`,
		swap.ID, swap.Signature, swap.Caller, swap.Pool, swap.ProgramID,
		strconv.FormatUint(swap.AmountIn, 10), strconv.FormatUint(swap.MinimumAmountOut, 10), swap.Success, swap.Error, swap.CreatedAt,
	)
	return err
}

func (r *postgresSwapRepository) FindByID(ctx context.Context, id string) (*storage.SwapModel, error) {
	rows, err := queryMany(ctx, r.pool, `SELECT `+swapColumns+` FROM swaps WHERE id = $1`, scanSwap, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, storage.ErrRecordNotFound
	}
	return rows[0], nil
}

func (r *postgresSwapRepository) FindRecent(ctx context.Context, limit int, offset int) ([]*storage.SwapModel, error) {
	return queryMany(ctx, r.pool,
		`SELECT `+swapColumns+` FROM swaps ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		scanSwap, limitOrAll(limit), offset,
	)
}

func (r *postgresSwapRepository) FindByCaller(ctx context.Context, caller string, limit int, offset int) ([]*storage.SwapModel, error) {
	return queryMany(ctx, r.pool,
		`SELECT `+swapColumns+` FROM swaps WHERE caller = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		scanSwap, caller, limitOrAll(limit), offset,
	)
}

// Amounts travel as text: NUMERIC(20,0) holds every uint64, which BIGINT and
// pgx's integer codecs do not.
func scanSwap(rows pgx.Rows) (*storage.SwapModel, error) {
	var s storage.SwapModel
	var amountIn, minOut string
	err := rows.Scan(&s.ID, &s.Signature, &s.Caller, &s.Pool, &s.ProgramID,
		&amountIn, &minOut, &s.Success, &s.Error, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if s.AmountIn, err = strconv.ParseUint(amountIn, 10, 64); err != nil {
		return nil, fmt.Errorf("swap %s amount_in: %w", s.ID, err)
	}
	if s.MinimumAmountOut, err = strconv.ParseUint(minOut, 10, 64); err != nil {
		return nil, fmt.Errorf("swap %s minimum_amount_out: %w", s.ID, err)
	}
	return &s, nil
}

// limitOrAll maps a non-positive limit to NULL, which Postgres reads as no limit.
func limitOrAll(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}

func queryMany[T any](ctx context.Context, pool *pgxpool.Pool, query string, scan func(pgx.Rows) (*T, error), args ...any) ([]*T, error) {
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}
