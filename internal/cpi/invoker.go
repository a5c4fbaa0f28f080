// Package cpi is the boundary where a built instruction leaves the process.
//
// An Invoker takes one instruction and runs it against the chain: RPCInvoker
// lands it in a transaction, SimulateInvoker only simulates it. Failures come
// back as *TransactionError with the failing program and its log line, so the
// router can report an external pool's error verbatim.
package cpi

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/pkg/errors"

	"github.com/lugondev/go-cpiswap/internal/common"
	csolana "github.com/lugondev/go-cpiswap/internal/solana"
	"github.com/lugondev/go-cpiswap/pkg/types"
)

// Invoker runs one instruction. Implementations must not retry.
type Invoker interface {
	Invoke(ctx context.Context, ix *types.Instruction) (*Result, error)
}

// Result is the outcome of a successful invocation.
type Result struct {
	Signature     solana.Signature
	Slot          uint64
	Logs          []string
	UnitsConsumed *uint64
	Simulated     bool
}

// chain is the part of solana.Client the invokers use.
type chain interface {
	BuildTransaction(ctx context.Context, instructions []solana.Instruction, payer solana.PublicKey, signers ...solana.PrivateKey) (*solana.Transaction, error)
	SendAndConfirm(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	Simulate(ctx context.Context, tx *solana.Transaction) (*rpc.SimulateTransactionResponse, error)
	GetTransaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error)
}

var _ chain = (*csolana.Client)(nil)

// RPCInvoker signs an instruction with the payer and lands it.
type RPCInvoker struct {
	common.LoggerMixin
	client  chain
	payer   solana.PrivateKey
	signers []solana.PrivateKey
}

// NewRPCInvoker returns an invoker paying with payer. Extra signers cover
// instruction signers other than the payer.
func NewRPCInvoker(client *csolana.Client, payer solana.PrivateKey, signers ...solana.PrivateKey) *RPCInvoker {
	return newRPCInvoker(client, payer, signers...)
}

func newRPCInvoker(client chain, payer solana.PrivateKey, signers ...solana.PrivateKey) *RPCInvoker {
	return &RPCInvoker{
		LoggerMixin: common.NewLoggerMixin(),
		client:      client,
		payer:       payer,
		signers:     append([]solana.PrivateKey{payer}, signers...),
	}
}

func (r *RPCInvoker) Invoke(ctx context.Context, ix *types.Instruction) (*Result, error) {
	tx, err := buildTransaction(ctx, r.client, ix, r.payer, r.signers)
	if err != nil {
		return nil, err
	}

	sig, err := r.client.SendAndConfirm(ctx, tx)
	if err != nil {
		return nil, r.classify(ctx, sig, err)
	}

	result := &Result{Signature: sig}
	if landed, err := r.client.GetTransaction(ctx, sig); err != nil {
		r.GetLogger().Warn("failed to fetch landed transaction", "signature", sig, "error", err)
	} else {
		result.Slot = landed.Slot
		if landed.Meta != nil {
			result.Logs = landed.Meta.LogMessages
			result.UnitsConsumed = landed.Meta.ComputeUnitsConsumed
		}
	}

	r.GetLogger().Debug("instruction landed", "program", ix.ProgramID, "signature", sig, "slot", result.Slot)
	return result, nil
}

// classify turns a send failure into a *TransactionError when the chain
// reported one, fetching the landed transaction's logs where needed.
func (r *RPCInvoker) classify(ctx context.Context, sig solana.Signature, err error) error {
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		if txErr := fromRPCError(rpcErr); txErr != nil {
			return txErr
		}
		return errors.Wrap(err, "failed to send transaction")
	}

	var failed *csolana.TransactionFailedError
	if errors.As(err, &failed) {
		sig = failed.Signature
	}
	if sig.IsZero() {
		return errors.Wrap(err, "failed to send transaction")
	}

	landed, getErr := r.client.GetTransaction(ctx, sig)
	if getErr != nil || landed.Meta == nil || landed.Meta.Err == nil {
		return errors.Wrapf(err, "transaction %s", sig)
	}

	txErr, parseErr := ParseTransactionError(landed.Meta.Err)
	if parseErr != nil {
		r.GetLogger().Warn("unparsed transaction error", "signature", sig, "error", parseErr)
	}
	txErr.Signature = sig
	return txErr.withLogs(landed.Meta.LogMessages)
}

func fromRPCError(rpcErr *jsonrpc.RPCError) *TransactionError {
	data, ok := rpcErr.Data.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := data["err"]
	if !ok || raw == nil {
		return nil
	}
	txErr, _ := ParseTransactionError(raw)
	if txErr == nil {
		return nil
	}
	return txErr.withLogs(parseLogs(data["logs"]))
}

// SimulateInvoker runs simulateTransaction and never lands anything.
type SimulateInvoker struct {
	client  chain
	payer   solana.PrivateKey
	signers []solana.PrivateKey
}

func NewSimulateInvoker(client *csolana.Client, payer solana.PrivateKey, signers ...solana.PrivateKey) *SimulateInvoker {
	return &SimulateInvoker{
		client:  client,
		payer:   payer,
		signers: append([]solana.PrivateKey{payer}, signers...),
	}
}

func (s *SimulateInvoker) Invoke(ctx context.Context, ix *types.Instruction) (*Result, error) {
	tx, err := buildTransaction(ctx, s.client, ix, s.payer, s.signers)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Simulate(ctx, tx)
	if err != nil {
		var rpcErr *jsonrpc.RPCError
		if errors.As(err, &rpcErr) {
			if txErr := fromRPCError(rpcErr); txErr != nil {
				return nil, txErr
			}
		}
		return nil, err
	}
	if resp.Value == nil {
		return nil, errors.New("empty simulation result")
	}

	if resp.Value.Err != nil {
		txErr, _ := ParseTransactionError(resp.Value.Err)
		return nil, txErr.withLogs(resp.Value.Logs)
	}

	return &Result{
		Slot:          resp.Context.Slot,
		Logs:          resp.Value.Logs,
		UnitsConsumed: resp.Value.UnitsConsumed,
		Simulated:     true,
	}, nil
}

func buildTransaction(ctx context.Context, client chain, ix *types.Instruction, payer solana.PrivateKey, signers []solana.PrivateKey) (*solana.Transaction, error) {
	for _, required := range ix.Signers() {
		if !hasSigner(signers, required) {
			return nil, fmt.Errorf("no key for required signer %s", required)
		}
	}
	return client.BuildTransaction(ctx, []solana.Instruction{ix.ToSolana()}, payer.PublicKey(), signers...)
}

func hasSigner(signers []solana.PrivateKey, pk solana.PublicKey) bool {
	for _, s := range signers {
		if s.PublicKey().Equals(pk) {
			return true
		}
	}
	return false
}
