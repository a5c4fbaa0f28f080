package pool

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpiswap/internal/errors"
)

// Registry maps external program IDs to adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[solana.PublicKey]Adapter
}

func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[solana.PublicKey]Adapter)}
	for _, a := range adapters {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register binds a to its program ID. Each program ID takes one adapter.
func (r *Registry) Register(a Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := a.ProgramID()
	if existing, ok := r.adapters[id]; ok {
		return fmt.Errorf("program %s already registered to %s", id, existing.Name())
	}
	r.adapters[id] = a
	return nil
}

// Lookup returns the adapter bound to programID, or UnknownPool.
func (r *Registry) Lookup(programID solana.PublicKey) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[programID]
	if !ok {
		return nil, errors.UnknownPool(programID.String())
	}
	return a, nil
}

// Adapters lists registered adapters ordered by name.
func (r *Registry) Adapters() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
