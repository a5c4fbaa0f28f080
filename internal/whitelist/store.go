package whitelist

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpiswap/internal/common"
	"github.com/lugondev/go-cpiswap/internal/errors"
	"github.com/lugondev/go-cpiswap/internal/metrics"
	"github.com/lugondev/go-cpiswap/internal/storage"
)

// Store loads and mutates whitelist records through a key-addressed record
// repository. Every mutation is a single read-modify-write, so a failed check
// leaves the stored record untouched.
type Store struct {
	common.LoggerMixin
	records  storage.RecordRepository
	capacity int
	metrics  metrics.Metrics
}

// NewStore returns a store over records. capacity bounds the number of users
// a record may hold; zero or less means unbounded.
func NewStore(records storage.RecordRepository, capacity int) *Store {
	return &Store{
		LoggerMixin: common.NewLoggerMixin(),
		records:     records,
		capacity:    capacity,
		metrics:     metrics.NewNoopMetrics(),
	}
}

func (s *Store) WithMetrics(m metrics.Metrics) *Store {
	if m != nil {
		s.metrics = m
	}
	return s
}

func (s *Store) Capacity() int {
	return s.capacity
}

// Initialize creates the whitelist at key with authority and no users.
func (s *Store) Initialize(ctx context.Context, key, authority solana.PublicKey) (*Whitelist, error) {
	if authority.IsZero() {
		return nil, errors.InvalidAccounts("authority must not be empty")
	}

	w := New(authority)
	data, err := w.MarshalBinary()
	if err != nil {
		return nil, err
	}

	if err := s.records.Create(ctx, key.String(), data); err != nil {
		if errors.Is(err, storage.ErrRecordExists) {
			return nil, errors.AlreadyInitialized(key.String())
		}
		return nil, fmt.Errorf("failed to create whitelist: %w", err)
	}

	s.GetLogger().Info("whitelist initialized", "whitelist", key, "authority", authority)
	return w, nil
}

// Load reads the whitelist at key.
func (s *Store) Load(ctx context.Context, key solana.PublicKey) (*Whitelist, error) {
	rec, err := s.records.Get(ctx, key.String())
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, errors.NotInitialized(key.String())
		}
		return nil, fmt.Errorf("failed to load whitelist: %w", err)
	}
	return Decode(rec.Data)
}

// Contains reports whether user is on the whitelist at key.
func (s *Store) Contains(ctx context.Context, key, user solana.PublicKey) (bool, error) {
	w, err := s.Load(ctx, key)
	if err != nil {
		return false, err
	}
	return w.Contains(user), nil
}

// Manage adds or removes target on behalf of signer.
func (s *Store) Manage(ctx context.Context, key, signer, target solana.PublicKey, add bool) (*Whitelist, error) {
	action := "remove"
	if add {
		action = "add"
	}

	w, err := s.mutate(ctx, key, func(w *Whitelist) error {
		if add {
			return w.Add(signer, target, s.capacity)
		}
		return w.Remove(signer, target)
	})
	if err != nil {
		s.GetLogger().Warn("whitelist mutation rejected",
			"whitelist", key, "action", action, "target", target, "error", err)
		return nil, err
	}

	s.metrics.IncrementCounter(ctx, metrics.MetricWhitelistMutations, 1)
	s.metrics.UpdateGauge(ctx, metrics.MetricWhitelistSize, float64(len(w.Users)))
	s.GetLogger().Info("whitelist updated",
		"whitelist", key, "action", action, "target", target, "users", len(w.Users))
	return w, nil
}

// SetPaused toggles the pause switch on behalf of signer.
func (s *Store) SetPaused(ctx context.Context, key, signer solana.PublicKey, paused bool) (*Whitelist, error) {
	w, err := s.mutate(ctx, key, func(w *Whitelist) error {
		return w.SetPaused(signer, paused)
	})
	if err != nil {
		return nil, err
	}
	s.GetLogger().Info("whitelist pause changed", "whitelist", key, "paused", paused)
	return w, nil
}

func (s *Store) mutate(ctx context.Context, key solana.PublicKey, fn func(*Whitelist) error) (*Whitelist, error) {
	var result *Whitelist
	_, err := s.records.Update(ctx, key.String(), func(current []byte) ([]byte, error) {
		w, err := Decode(current)
		if err != nil {
			return nil, err
		}
		if err := fn(w); err != nil {
			return nil, err
		}
		result = w
		return w.MarshalBinary()
	})
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, errors.NotInitialized(key.String())
		}
		return nil, err
	}
	return result, nil
}
