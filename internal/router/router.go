// Package router authorizes a swap request, picks the pool adapter for the
// target program and performs exactly one external invocation.
package router

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpiswap/internal/common"
	"github.com/lugondev/go-cpiswap/internal/cpi"
	"github.com/lugondev/go-cpiswap/internal/errors"
	"github.com/lugondev/go-cpiswap/internal/metrics"
	"github.com/lugondev/go-cpiswap/internal/pool"
	"github.com/lugondev/go-cpiswap/internal/storage"
)

// Authorizer is the access gate consulted before anything else.
type Authorizer interface {
	Authorize(ctx context.Context, caller, whitelist solana.PublicKey) error
}

// Result is the outcome of a routed swap. The realized output amount is not
// known here; it shows up only in the destination account's balance.
type Result struct {
	Signature solana.Signature
	Slot      uint64
	Logs      []string
	Adapter   string
	Simulated bool
	JournalID string
}

// Router dispatches swaps to pool adapters.
type Router struct {
	common.LoggerMixin
	gate      Authorizer
	registry  *pool.Registry
	invoker   cpi.Invoker
	whitelist solana.PublicKey
	journal   storage.SwapRepository
	metrics   metrics.Metrics
}

// Option configures a Router.
type Option func(*Router)

// WithJournal records every authorized swap attempt.
func WithJournal(journal storage.SwapRepository) Option {
	return func(r *Router) { r.journal = journal }
}

func WithMetrics(m metrics.Metrics) Option {
	return func(r *Router) {
		if m != nil {
			r.metrics = m
		}
	}
}

// New returns a router that authorizes callers against the whitelist at key.
func New(gate Authorizer, registry *pool.Registry, invoker cpi.Invoker, whitelist solana.PublicKey, opts ...Option) *Router {
	r := &Router{
		LoggerMixin: common.NewLoggerMixin(),
		gate:        gate,
		registry:    registry,
		invoker:     invoker,
		whitelist:   whitelist,
		metrics:     metrics.NewNoopMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Whitelist is the key of the whitelist callers are checked against.
func (r *Router) Whitelist() solana.PublicKey {
	return r.whitelist
}

// Registry returns the adapters the router dispatches to.
func (r *Router) Registry() *pool.Registry {
	return r.registry
}

// RouteSwap authorizes req.Caller, then builds and invokes the swap on target.
//
// Authorization runs first so an unauthorized caller can never reach an
// adapter or the invoker. A failing invocation is not retried; its error is
// returned as ExternalCallFailed naming the adapter, with the original error
// as the cause.
func (r *Router) RouteSwap(ctx context.Context, req *pool.SwapRequest, target solana.PublicKey) (*Result, error) {
	start := time.Now()
	logger := r.GetLogger().With("caller", req.Caller, "pool", target, "amount_in", req.AmountIn)

	if err := r.gate.Authorize(ctx, req.Caller, r.whitelist); err != nil {
		r.metrics.IncrementCounter(ctx, metrics.MetricSwapsUnauthorized, 1)
		logger.Warn("swap rejected", "error", err)
		return nil, err
	}

	entry := storage.NewSwapModel()
	entry.Caller = req.Caller.String()
	entry.ProgramID = target.String()
	entry.AmountIn = req.AmountIn
	entry.MinimumAmountOut = req.MinimumAmountOut

	adapter, res, err := r.route(ctx, req, target)
	if adapter != nil {
		entry.Pool = adapter.Name()
	}

	r.metrics.RecordHistogram(ctx, metrics.MetricSwapDurationMillis, float64(time.Since(start).Milliseconds()))

	if err != nil {
		entry.Error = err.Error()
		r.record(ctx, entry)
		r.metrics.IncrementCounter(ctx, metrics.MetricSwapsFailed, 1)
		logger.Error("swap failed", "error", err)
		return nil, err
	}

	entry.Success = true
	entry.Signature = res.Signature.String()
	r.record(ctx, entry)
	r.metrics.IncrementCounter(ctx, metrics.MetricSwapsRouted, 1)
	logger.Info("swap routed", "adapter", res.Adapter, "signature", res.Signature, "simulated", res.Simulated)

	res.JournalID = entry.ID
	return res, nil
}

func (r *Router) route(ctx context.Context, req *pool.SwapRequest, target solana.PublicKey) (pool.Adapter, *Result, error) {
	adapter, err := r.registry.Lookup(target)
	if err != nil {
		return nil, nil, err
	}
	if req.Kind != "" && req.Kind != adapter.Kind() {
		return adapter, nil, errors.NewError(errors.ErrCodeUnknownPool,
			fmt.Sprintf("%s request cannot be routed to %s program %s", req.Kind, adapter.Name(), target))
	}

	if req.AmountIn == 0 {
		return adapter, nil, errors.InvalidAmount("amount_in must be greater than zero")
	}
	if err := adapter.Validate(req); err != nil {
		return adapter, nil, err
	}

	ix, err := adapter.BuildSwap(req)
	if err != nil {
		return adapter, nil, err
	}

	out, err := r.invoker.Invoke(ctx, ix)
	if err != nil {
		return adapter, nil, errors.ExternalCallFailed(adapter.Name(), err)
	}

	return adapter, &Result{
		Signature: out.Signature,
		Slot:      out.Slot,
		Logs:      out.Logs,
		Adapter:   adapter.Name(),
		Simulated: out.Simulated,
	}, nil
}

func (r *Router) record(ctx context.Context, entry *storage.SwapModel) {
	if r.journal == nil {
		return
	}
	if err := r.journal.Save(ctx, entry); err != nil {
		r.GetLogger().Warn("failed to journal swap", "id", entry.ID, "error", err)
	}
}
