// Package cpitest provides an in-memory Invoker for tests.
package cpitest

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpiswap/internal/cpi"
	"github.com/lugondev/go-cpiswap/pkg/types"
)

// Invoker records every instruction it receives. A primed error is returned
// for every call until cleared; otherwise each call succeeds with a fresh
// signature.
type Invoker struct {
	mu    sync.Mutex
	calls []*types.Instruction
	err   error
	slot  uint64
	logs  []string
}

func NewInvoker() *Invoker {
	return &Invoker{}
}

// FailWith makes subsequent calls fail with err. Pass nil to clear.
func (m *Invoker) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// RespondWithLogs sets the logs returned on success.
func (m *Invoker) RespondWithLogs(logs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = logs
}

func (m *Invoker) Invoke(ctx context.Context, ix *types.Instruction) (*cpi.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *ix
	cp.Accounts = append([]types.AccountMeta(nil), ix.Accounts...)
	cp.Data = append([]byte(nil), ix.Data...)
	m.calls = append(m.calls, &cp)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}

	m.slot++
	var sig solana.Signature
	copy(sig[:], solana.NewWallet().PublicKey().Bytes())
	return &cpi.Result{Signature: sig, Slot: m.slot, Logs: m.logs}, nil
}

// Calls returns the recorded instructions in order.
func (m *Invoker) Calls() []*types.Instruction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*types.Instruction(nil), m.calls...)
}

// CallCount returns how many times Invoke ran.
func (m *Invoker) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
