package router

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpiswap/internal/access"
	"github.com/lugondev/go-cpiswap/internal/cpi/cpitest"
	"github.com/lugondev/go-cpiswap/internal/errors"
	"github.com/lugondev/go-cpiswap/internal/metrics"
	"github.com/lugondev/go-cpiswap/internal/pool"
	"github.com/lugondev/go-cpiswap/internal/pool/raydium"
	"github.com/lugondev/go-cpiswap/internal/pool/whirlpools"
	"github.com/lugondev/go-cpiswap/internal/storage"
	"github.com/lugondev/go-cpiswap/internal/whitelist"
)

type fixture struct {
	router    *Router
	store     *whitelist.Store
	invoker   *cpitest.Invoker
	repo      *storage.MemoryRepository
	metrics   *metrics.LogMetrics
	key       solana.PublicKey
	authority solana.PublicKey
	user      solana.PublicKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		repo:      storage.NewMemoryRepository(),
		invoker:   cpitest.NewInvoker(),
		metrics:   metrics.NewLogMetrics(slog.New(slog.NewTextHandler(io.Discard, nil))),
		key:       solana.NewWallet().PublicKey(),
		authority: solana.NewWallet().PublicKey(),
		user:      solana.NewWallet().PublicKey(),
	}
	f.store = whitelist.NewStore(f.repo.Records(), 10)

	if _, err := f.store.Initialize(ctx, f.key, f.authority); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if _, err := f.store.Manage(ctx, f.key, f.authority, f.user, true); err != nil {
		t.Fatalf("Manage failed: %v", err)
	}

	registry, err := pool.NewRegistry(raydium.New(raydium.ProgramID), whirlpools.New(whirlpools.ProgramID))
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	f.router = New(access.NewGate(f.store), registry, f.invoker, f.key,
		WithJournal(f.repo.Swaps()),
		WithMetrics(f.metrics),
	)
	return f
}

func keys(n int) []solana.PublicKey {
	out := make([]solana.PublicKey, n)
	for i := range out {
		out[i] = solana.NewWallet().PublicKey()
	}
	return out
}

func raydiumRequest(caller solana.PublicKey) *pool.SwapRequest {
	return &pool.SwapRequest{
		Caller:           caller,
		Kind:             pool.KindRaydium,
		Source:           solana.NewWallet().PublicKey(),
		Destination:      solana.NewWallet().PublicKey(),
		AmountIn:         1_000_000,
		MinimumAmountOut: 500_000,
		Accounts:         keys(len(raydium.New(raydium.ProgramID).AccountNames())),
	}
}

func whirlpoolsRequest(caller solana.PublicKey) *pool.SwapRequest {
	return &pool.SwapRequest{
		Caller:                 caller,
		Kind:                   pool.KindWhirlpools,
		Source:                 solana.NewWallet().PublicKey(),
		Destination:            solana.NewWallet().PublicKey(),
		AmountIn:               1_000_000,
		AmountSpecifiedIsInput: true,
		AToB:                   true,
		Accounts:               keys(len(whirlpools.New(whirlpools.ProgramID).AccountNames())),
	}
}

func TestRouteSwapRaydium(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.router.RouteSwap(ctx, raydiumRequest(f.user), raydium.ProgramID)
	if err != nil {
		t.Fatalf("RouteSwap failed: %v", err)
	}
	if res.Adapter != "raydium" {
		t.Errorf("expected raydium adapter, got %s", res.Adapter)
	}

	calls := f.invoker.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one invocation, got %d", len(calls))
	}
	if !calls[0].ProgramID.Equals(raydium.ProgramID) {
		t.Errorf("expected raydium program, got %s", calls[0].ProgramID)
	}
	if calls[0].Data[0] != raydium.InstructionSwapBaseIn || len(calls[0].Accounts) != 18 {
		t.Errorf("expected raydium swap layout, got %d accounts and tag %d", len(calls[0].Accounts), calls[0].Data[0])
	}

	entry, err := f.repo.Swaps().FindByID(ctx, res.JournalID)
	if err != nil {
		t.Fatalf("journal lookup failed: %v", err)
	}
	if !entry.Success || entry.Pool != "raydium" || entry.Signature != res.Signature.String() {
		t.Errorf("unexpected journal entry %+v", entry)
	}
	if got := f.metrics.Counter(metrics.MetricSwapsRouted); got != 1 {
		t.Errorf("expected 1 routed swap, got %d", got)
	}
}

func TestRouteSwapWhirlpools(t *testing.T) {
	f := newFixture(t)

	if _, err := f.router.RouteSwap(context.Background(), whirlpoolsRequest(f.user), whirlpools.ProgramID); err != nil {
		t.Fatalf("RouteSwap failed: %v", err)
	}

	calls := f.invoker.Calls()
	if len(calls) != 1 || !calls[0].ProgramID.Equals(whirlpools.ProgramID) {
		t.Fatalf("expected one whirlpools invocation, got %v", calls)
	}
	if _, err := whirlpools.DecodeSwap(calls[0].Data); err != nil {
		t.Errorf("expected whirlpools swap data: %v", err)
	}
}

func TestRouteSwapRejectsBeforeInvoking(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*fixture)
		request  func(*fixture) *pool.SwapRequest
		target   solana.PublicKey
		want     *errors.ProgramError
		journals bool
	}{
		{
			name:    "caller not whitelisted",
			request: func(f *fixture) *pool.SwapRequest { return raydiumRequest(solana.NewWallet().PublicKey()) },
			target:  raydium.ProgramID,
			want:    errors.ErrUnauthorized,
		},
		{
			name: "caller removed",
			setup: func(f *fixture) {
				f.store.Manage(context.Background(), f.key, f.authority, f.user, false)
			},
			request: func(f *fixture) *pool.SwapRequest { return raydiumRequest(f.user) },
			target:  raydium.ProgramID,
			want:    errors.ErrUnauthorized,
		},
		{
			name: "paused",
			setup: func(f *fixture) {
				f.store.SetPaused(context.Background(), f.key, f.authority, true)
			},
			request: func(f *fixture) *pool.SwapRequest { return raydiumRequest(f.user) },
			target:  raydium.ProgramID,
			want:    errors.ErrPaused,
		},
		{
			name:     "unknown program",
			request:  func(f *fixture) *pool.SwapRequest { return raydiumRequest(f.user) },
			target:   solana.NewWallet().PublicKey(),
			want:     errors.ErrUnknownPool,
			journals: true,
		},
		{
			name:     "raydium bundle sent to whirlpools",
			request:  func(f *fixture) *pool.SwapRequest { return raydiumRequest(f.user) },
			target:   whirlpools.ProgramID,
			want:     errors.ErrUnknownPool,
			journals: true,
		},
		{
			name: "zero amount",
			request: func(f *fixture) *pool.SwapRequest {
				req := raydiumRequest(f.user)
				req.AmountIn = 0
				return req
			},
			target:   raydium.ProgramID,
			want:     errors.ErrInvalidAmount,
			journals: true,
		},
		{
			name: "missing pool account",
			request: func(f *fixture) *pool.SwapRequest {
				req := raydiumRequest(f.user)
				req.Accounts[0] = solana.PublicKey{}
				return req
			},
			target:   raydium.ProgramID,
			want:     errors.ErrInvalidAccounts,
			journals: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}

			_, err := f.router.RouteSwap(context.Background(), tt.request(f), tt.target)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %s, got %v", tt.want.Code, err)
			}
			if n := f.invoker.CallCount(); n != 0 {
				t.Errorf("expected no invocation, got %d", n)
			}

			entries, _ := f.repo.Swaps().FindRecent(context.Background(), 10, 0)
			if tt.journals != (len(entries) == 1) {
				t.Errorf("expected journaled=%v, got %d entries", tt.journals, len(entries))
			}
			if tt.journals && entries[0].Success {
				t.Error("expected failed journal entry")
			}
		})
	}
}

func TestRouteSwapUnauthorizedMetrics(t *testing.T) {
	f := newFixture(t)
	f.router.RouteSwap(context.Background(), raydiumRequest(solana.NewWallet().PublicKey()), raydium.ProgramID)

	if got := f.metrics.Counter(metrics.MetricSwapsUnauthorized); got != 1 {
		t.Errorf("expected 1 unauthorized swap, got %d", got)
	}
	if got := f.metrics.Counter(metrics.MetricSwapsFailed); got != 0 {
		t.Errorf("expected unauthorized swaps not to count as failed, got %d", got)
	}
}

func TestRouteSwapExternalFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cause := fmt.Errorf("custom program error: 0x1e")
	f.invoker.FailWith(cause)

	before, err := f.store.Load(ctx, f.key)
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.router.RouteSwap(ctx, raydiumRequest(f.user), raydium.ProgramID)
	if !errors.Is(err, errors.ErrExternalCallFailed) {
		t.Fatalf("expected ExternalCallFailed, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected original failure to stay reachable, got %v", err)
	}
	var pe *errors.ProgramError
	if errors.As(err, &pe) && pe.Message != "raydium swap failed" {
		t.Errorf("expected adapter name in message, got %q", pe.Message)
	}
	if n := f.invoker.CallCount(); n != 1 {
		t.Errorf("expected a single attempt without retry, got %d", n)
	}

	after, err := f.store.Load(ctx, f.key)
	if err != nil {
		t.Fatal(err)
	}
	if len(after.Users) != len(before.Users) || after.Paused != before.Paused {
		t.Errorf("whitelist changed by failed swap: %+v -> %+v", before, after)
	}

	entries, _ := f.repo.Swaps().FindByCaller(ctx, f.user.String(), 10, 0)
	if len(entries) != 1 || entries[0].Success || entries[0].Error == "" {
		t.Errorf("expected one failed journal entry, got %+v", entries)
	}
	if got := f.metrics.Counter(metrics.MetricSwapsFailed); got != 1 {
		t.Errorf("expected 1 failed swap, got %d", got)
	}
}
