package storage

import (
	"context"
	"errors"
)

var (
	// ErrRecordNotFound is returned when no record exists at a key.
	ErrRecordNotFound = errors.New("record not found")

	// ErrRecordExists is returned by Create when the key is already taken.
	ErrRecordExists = errors.New("record already exists")

	// ErrConflict is returned by Update when another writer changed the record
	// between read and write.
	ErrConflict = errors.New("record modified concurrently")
)

// UpdateFunc receives the current record data and returns its replacement.
// Returning an error aborts the update and leaves the record untouched.
type UpdateFunc func(current []byte) ([]byte, error)

// RecordRepository stores opaque account-shaped records by key. Update is an
// atomic read-modify-write of a single record.
type RecordRepository interface {
	Create(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) (*RecordModel, error)
	Update(ctx context.Context, key string, fn UpdateFunc) (*RecordModel, error)
}

// SwapRepository is the append-only journal of routed swaps.
type SwapRepository interface {
	Save(ctx context.Context, swap *SwapModel) error
	FindByID(ctx context.Context, id string) (*SwapModel, error)
	FindRecent(ctx context.Context, limit int, offset int) ([]*SwapModel, error)
	FindByCaller(ctx context.Context, caller string, limit int, offset int) ([]*SwapModel, error)
}

type Repository interface {
	Records() RecordRepository
	Swaps() SwapRepository
	Close() error
	Ping(ctx context.Context) error
}
