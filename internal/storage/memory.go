package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps records and the swap journal in process memory.
// A single mutex serializes every operation, which gives Update the same
// atomicity the database backends get from transactions.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]*RecordModel
	swaps   []*SwapModel
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]*RecordModel),
	}
}

func (r *MemoryRepository) Records() RecordRepository { return (*memoryRecords)(r) }
func (r *MemoryRepository) Swaps() SwapRepository     { return (*memorySwaps)(r) }
func (r *MemoryRepository) Close() error              { return nil }
func (r *MemoryRepository) Ping(context.Context) error {
	return nil
}

type memoryRecords MemoryRepository

func (r *memoryRecords) Create(ctx context.Context, key string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[key]; exists {
		return ErrRecordExists
	}
	now := time.Now().UTC()
	r.records[key] = &RecordModel{
		Key:       key,
		Data:      cloneBytes(data),
		Version:   1,
		UpdatedAt: now,
		CreatedAt: now,
	}
	return nil
}

func (r *memoryRecords) Get(ctx context.Context, key string) (*RecordModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[key]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return cloneRecord(rec), nil
}

func (r *memoryRecords) Update(ctx context.Context, key string, fn UpdateFunc) (*RecordModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[key]
	if !ok {
		return nil, ErrRecordNotFound
	}

	next, err := fn(cloneBytes(rec.Data))
	if err != nil {
		return nil, err
	}

	updated := cloneRecord(rec)
	updated.Data = cloneBytes(next)
	updated.Version++
	updated.UpdatedAt = time.Now().UTC()
	r.records[key] = updated
	return cloneRecord(updated), nil
}

type memorySwaps MemoryRepository

func (r *memorySwaps) Save(ctx context.Context, swap *SwapModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *swap
	r.swaps = append(r.swaps, &cp)
	return nil
}

func (r *memorySwaps) FindByID(ctx context.Context, id string) (*SwapModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.swaps {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (r *memorySwaps) FindRecent(ctx context.Context, limit int, offset int) ([]*SwapModel, error) {
	return r.find(func(*SwapModel) bool { return true }, limit, offset), nil
}

func (r *memorySwaps) FindByCaller(ctx context.Context, caller string, limit int, offset int) ([]*SwapModel, error) {
	return r.find(func(s *SwapModel) bool { return s.Caller == caller }, limit, offset), nil
}

func (r *memorySwaps) find(match func(*SwapModel) bool, limit, offset int) []*SwapModel {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*SwapModel
	for i := len(r.swaps) - 1; i >= 0; i-- {
		if s := r.swaps[i]; match(s) {
			cp := *s
			matched = append(matched, &cp)
		}
	}
	// newest first; equal timestamps keep reverse insertion order
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, limit, offset)
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func cloneRecord(rec *RecordModel) *RecordModel {
	cp := *rec
	cp.Data = cloneBytes(rec.Data)
	return &cp
}
