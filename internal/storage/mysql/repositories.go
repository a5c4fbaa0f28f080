package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/lugondev/go-cpiswap/internal/storage"
)

const errDuplicateEntry = 1062

type mysqlRecordRepository struct {
	db *sql.DB
}

func (r *mysqlRecordRepository) Create(ctx context.Context, key string, data []byte) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO records (`key`, data, version, updated_at, created_at) VALUES (?, ?, 1, ?, ?)",
		key, data, now, now,
	)

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == errDuplicateEntry {
		return storage.ErrRecordExists
	}
	return err
}

func (r *mysqlRecordRepository) Get(ctx context.Context, key string) (*storage.RecordModel, error) {
	return scanRecord(r.db.QueryRowContext(ctx,
		"SELECT `key`, data, version, updated_at, created_at FROM records WHERE `key` = ?", key,
	))
}

func (r *mysqlRecordRepository) Update(ctx context.Context, key string, fn storage.UpdateFunc) (*storage.RecordModel, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	rec, err := scanRecord(tx.QueryRowContext(ctx,
		"SELECT `key`, data, version, updated_at, created_at FROM records WHERE `key` = ? FOR UPDATE", key,
	))
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
	if _, err := tx.ExecContext(ctx,
		"UPDATE records SET data = ?, version = ?, updated_at = ? WHERE `key` = ?",
		rec.Data, rec.Version, rec.UpdatedAt, key,
	); err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}
	return rec, nil
}

func scanRecord(row *sql.Row) (*storage.RecordModel, error) {
	var rec storage.RecordModel
	err := row.Scan(&rec.Key, &rec.Data, &rec.Version, &rec.UpdatedAt, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

type mysqlSwapRepository struct {
	db *sql.DB
}

const swapColumns = `id, COALESCE(signature, ''), caller, pool, program_id, amount_in, minimum_amount_out,
	success, COALESCE(error, ''), created_at`

func (r *mysqlSwapRepository) Save(ctx context.Context, swap *storage.SwapModel) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO swaps (id, signature, caller, pool, program_id, amount_in, minimum_amount_out, success, error, created_at)
		VALUES (?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?)
	`,
		swap.ID, swap.Signature, swap.Caller, swap.Pool, swap.ProgramID,
		swap.AmountIn, swap.MinimumAmountOut, swap.Success, swap.Error, swap.CreatedAt,
	)
	return err
}

func (r *mysqlSwapRepository) FindByID(ctx context.Context, id string) (*storage.SwapModel, error) {
	swaps, err := r.query(ctx, `SELECT `+swapColumns+` FROM swaps WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(swaps) == 0 {
		return nil, storage.ErrRecordNotFound
	}
	return swaps[0], nil
}

func (r *mysqlSwapRepository) FindRecent(ctx context.Context, limit int, offset int) ([]*storage.SwapModel, error) {
	return r.query(ctx,
		`SELECT `+swapColumns+` FROM swaps ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		mysqlLimit(limit), offset,
	)
}

func (r *mysqlSwapRepository) FindByCaller(ctx context.Context, caller string, limit int, offset int) ([]*storage.SwapModel, error) {
	return r.query(ctx,
		`SELECT `+swapColumns+` FROM swaps WHERE caller = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		caller, mysqlLimit(limit), offset,
	)
}

func (r *mysqlSwapRepository) query(ctx context.Context, query string, args ...any) ([]*storage.SwapModel, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var swaps []*storage.SwapModel
	for rows.Next() {
		var s storage.SwapModel
		if err := rows.Scan(&s.ID, &s.Signature, &s.Caller, &s.Pool, &s.ProgramID,
			&s.AmountIn, &s.MinimumAmountOut, &s.Success, &s.Error, &s.CreatedAt); err != nil {
			return nil, err
		}
		swaps = append(swaps, &s)
	}
	return swaps, rows.Err()
}

// mysqlLimit maps a non-positive limit to the largest LIMIT MySQL accepts,
// since MySQL has no LIMIT ALL.
func mysqlLimit(limit int) int64 {
	if limit <= 0 {
		return math.MaxInt64
	}
	return int64(limit)
}
