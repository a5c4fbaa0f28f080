package program

import (
	"context"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpiswap/internal/access"
	"github.com/lugondev/go-cpiswap/internal/cpi"
	"github.com/lugondev/go-cpiswap/internal/cpi/cpitest"
	"github.com/lugondev/go-cpiswap/internal/errors"
	"github.com/lugondev/go-cpiswap/internal/pool"
	"github.com/lugondev/go-cpiswap/internal/pool/raydium"
	"github.com/lugondev/go-cpiswap/internal/pool/whirlpools"
	"github.com/lugondev/go-cpiswap/internal/router"
	"github.com/lugondev/go-cpiswap/internal/storage"
	"github.com/lugondev/go-cpiswap/internal/whitelist"
	"github.com/lugondev/go-cpiswap/pkg/log"
	"github.com/lugondev/go-cpiswap/pkg/types"
)

var programID = solana.NewWallet().PublicKey()

type harness struct {
	processor *Processor
	invoker   *cpitest.Invoker
	key       solana.PublicKey
	authority solana.PublicKey
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	repo := storage.NewMemoryRepository()
	store := whitelist.NewStore(repo.Records(), 4)
	registry, err := pool.NewRegistry(raydium.New(raydium.ProgramID), whirlpools.New(whirlpools.ProgramID))
	if err != nil {
		t.Fatal(err)
	}

	h := &harness{
		invoker:   cpitest.NewInvoker(),
		key:       solana.NewWallet().PublicKey(),
		authority: solana.NewWallet().PublicKey(),
	}
	r := router.New(access.NewGate(store), registry, h.invoker, h.key, router.WithJournal(repo.Swaps()))
	h.processor = NewProcessor(programID, store, r)
	return h
}

// built unwraps an instruction builder's result.
func built(t *testing.T) func(*types.Instruction, error) *types.Instruction {
	return func(ix *types.Instruction, err error) *types.Instruction {
		t.Helper()
		if err != nil {
			t.Fatalf("failed to build instruction: %v", err)
		}
		return ix
	}
}

func (h *harness) mustProcess(t *testing.T, ix *types.Instruction) *Outcome {
	t.Helper()
	out, err := h.processor.Process(context.Background(), ix)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	return out
}

func randomKeys(n int) []solana.PublicKey {
	out := make([]solana.PublicKey, n)
	for i := range out {
		out[i] = solana.NewWallet().PublicKey()
	}
	return out
}

func raydiumSwap(caller solana.PublicKey) *pool.SwapRequest {
	return &pool.SwapRequest{
		Caller:           caller,
		Kind:             pool.KindRaydium,
		Source:           solana.NewWallet().PublicKey(),
		Destination:      solana.NewWallet().PublicKey(),
		AmountIn:         1_000_000,
		MinimumAmountOut: 500_000,
		Accounts:         randomKeys(14),
	}
}

func TestWhitelistLifecycle(t *testing.T) {
	h := newHarness(t)
	user := solana.NewWallet().PublicKey()

	out := h.mustProcess(t, built(t)(NewInitializeInstruction(programID, h.key, h.authority)))
	if len(out.Whitelist.Users) != 0 || !out.Whitelist.Authority.Equals(h.authority) {
		t.Fatalf("unexpected initial whitelist %+v", out.Whitelist)
	}
	if out.Logs[0] != "Instruction: Initialize" {
		t.Errorf("expected entry log, got %v", out.Logs)
	}

	out = h.mustProcess(t, built(t)(NewManageWhitelistInstruction(programID, h.key, h.authority, user, true)))
	if len(out.Whitelist.Users) != 1 || !out.Whitelist.Users[0].Equals(user) {
		t.Fatalf("expected [%s], got %v", user, out.Whitelist.Users)
	}

	out = h.mustProcess(t, built(t)(NewManageWhitelistInstruction(programID, h.key, h.authority, user, false)))
	if len(out.Whitelist.Users) != 0 {
		t.Fatalf("expected empty users, got %v", out.Whitelist.Users)
	}

	ix, _ := NewInitializeInstruction(programID, h.key, h.authority)
	if _, err := h.processor.Process(context.Background(), ix); !errors.Is(err, errors.ErrAlreadyInitialized) {
		t.Errorf("expected AlreadyInitialized, got %v", err)
	}
}

func TestAuthorizedAndUnauthorizedSwap(t *testing.T) {
	h := newHarness(t)
	user := solana.NewWallet().PublicKey()
	h.mustProcess(t, built(t)(NewInitializeInstruction(programID, h.key, h.authority)))
	h.mustProcess(t, built(t)(NewManageWhitelistInstruction(programID, h.key, h.authority, user, true)))

	req := raydiumSwap(user)
	out := h.mustProcess(t, built(t)(NewSwapOnRaydiumInstruction(programID, h.key, raydium.ProgramID, req)))
	if out.Swap == nil || out.Swap.Adapter != "raydium" {
		t.Fatalf("expected raydium swap result, got %+v", out.Swap)
	}

	calls := h.invoker.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one invocation, got %d", len(calls))
	}
	in, minOut, err := raydium.DecodeSwapBaseIn(calls[0].Data)
	if err != nil || in != 1_000_000 || minOut != 500_000 {
		t.Errorf("expected forwarded amounts, got %d %d %v", in, minOut, err)
	}
	if !calls[0].Accounts[1].Pubkey.Equals(req.Accounts[0]) {
		t.Errorf("expected amm id %s at position 1, got %s", req.Accounts[0], calls[0].Accounts[1].Pubkey)
	}

	outsider := solana.NewWallet().PublicKey()
	ix, _ := NewSwapOnRaydiumInstruction(programID, h.key, raydium.ProgramID, raydiumSwap(outsider))
	if _, err := h.processor.Process(context.Background(), ix); !errors.Is(err, errors.ErrUnauthorized) {
		t.Errorf("expected Unauthorized, got %v", err)
	}
	if h.invoker.CallCount() != 1 {
		t.Errorf("expected no invocation for unauthorized caller, got %d total", h.invoker.CallCount())
	}
}

func TestSwapOnWhirlpoolsForwardsArgs(t *testing.T) {
	h := newHarness(t)
	user := solana.NewWallet().PublicKey()
	h.mustProcess(t, built(t)(NewInitializeInstruction(programID, h.key, h.authority)))
	h.mustProcess(t, built(t)(NewManageWhitelistInstruction(programID, h.key, h.authority, user, true)))

	accounts := randomKeys(7)
	accounts[5] = solana.PublicKey{}
	req := &pool.SwapRequest{
		Caller:                 user,
		Kind:                   pool.KindWhirlpools,
		Source:                 solana.NewWallet().PublicKey(),
		Destination:            solana.NewWallet().PublicKey(),
		AmountIn:               5_000,
		MinimumAmountOut:       7_000,
		AmountSpecifiedIsInput: false,
		AToB:                   false,
		Accounts:               accounts,
	}
	h.mustProcess(t, built(t)(NewSwapOnWhirlpoolsInstruction(programID, h.key, whirlpools.ProgramID, req)))

	calls := h.invoker.Calls()
	if len(calls) != 1 || !calls[0].ProgramID.Equals(whirlpools.ProgramID) {
		t.Fatalf("expected one whirlpools invocation, got %v", calls)
	}
	args, err := whirlpools.DecodeSwap(calls[0].Data)
	if err != nil {
		t.Fatal(err)
	}
	if args.Amount != 5_000 || args.OtherAmountThreshold != 7_000 || args.AmountSpecifiedIsInput || args.AToB {
		t.Errorf("unexpected forwarded args %+v", args)
	}
	if args.SqrtPriceLimit != whirlpools.MaxSqrtPrice {
		t.Errorf("expected b-to-a swap without limit to use MAX, got %s", args.SqrtPriceLimit)
	}
	if !calls[0].Accounts[2].Pubkey.Equals(accounts[0]) {
		t.Errorf("expected whirlpool at position 2, got %s", calls[0].Accounts[2].Pubkey)
	}
	if !calls[0].Accounts[9].Pubkey.Equals(accounts[4]) {
		t.Errorf("expected missing tick array 2 padded with tick array 1")
	}
}

func TestProcessAccountChecks(t *testing.T) {
	h := newHarness(t)
	h.mustProcess(t, built(t)(NewInitializeInstruction(programID, h.key, h.authority)))

	unsigned, _ := NewManageWhitelistInstruction(programID, h.key, h.authority, solana.NewWallet().PublicKey(), true)
	unsigned.Accounts[1].IsSigner = false

	readonly, _ := NewSetPauseInstruction(programID, h.key, h.authority, true)
	readonly.Accounts[0].IsWritable = false

	short, _ := NewSetPauseInstruction(programID, h.key, h.authority, true)
	short.Accounts = short.Accounts[:1]

	foreign, _ := NewSwapOnRaydiumInstruction(programID, solana.NewWallet().PublicKey(), raydium.ProgramID, raydiumSwap(h.authority))

	wrongProgram, _ := NewSetPauseInstruction(solana.NewWallet().PublicKey(), h.key, h.authority, true)

	noSystem, _ := NewInitializeInstruction(programID, solana.NewWallet().PublicKey(), h.authority)
	noSystem.Accounts[2].Pubkey = solana.NewWallet().PublicKey()

	tests := []struct {
		name string
		ix   *types.Instruction
	}{
		{name: "authority not signing", ix: unsigned},
		{name: "whitelist not writable", ix: readonly},
		{name: "missing accounts", ix: short},
		{name: "foreign whitelist", ix: foreign},
		{name: "other program", ix: wrongProgram},
		{name: "initialize without system program", ix: noSystem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.processor.Process(context.Background(), tt.ix)
			if !errors.Is(err, errors.ErrInvalidAccounts) {
				t.Errorf("expected InvalidAccounts, got %v", err)
			}
		})
	}
	if h.invoker.CallCount() != 0 {
		t.Errorf("expected no invocation, got %d", h.invoker.CallCount())
	}
}

func TestPauseBlocksSwaps(t *testing.T) {
	h := newHarness(t)
	user := solana.NewWallet().PublicKey()
	h.mustProcess(t, built(t)(NewInitializeInstruction(programID, h.key, h.authority)))
	h.mustProcess(t, built(t)(NewManageWhitelistInstruction(programID, h.key, h.authority, user, true)))
	h.mustProcess(t, built(t)(NewSetPauseInstruction(programID, h.key, h.authority, true)))

	ix, _ := NewSwapOnRaydiumInstruction(programID, h.key, raydium.ProgramID, raydiumSwap(user))
	if _, err := h.processor.Process(context.Background(), ix); !errors.Is(err, errors.ErrPaused) {
		t.Errorf("expected Paused, got %v", err)
	}

	h.mustProcess(t, built(t)(NewSetPauseInstruction(programID, h.key, h.authority, false)))
	h.mustProcess(t, built(t)(NewSwapOnRaydiumInstruction(programID, h.key, raydium.ProgramID, raydiumSwap(user))))
}

func TestClientMapsProgramErrors(t *testing.T) {
	key := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()
	inv := cpitest.NewInvoker()
	client := NewClient(inv, programID, key)
	ctx := context.Background()

	inv.FailWith(&cpi.TransactionError{
		Err:         fmt.Errorf("InstructionError"),
		Instruction: &cpi.InstructionError{Index: 0, Err: cpi.CustomError(6002)},
		Failure:     &log.Failure{ProgramID: programID.String(), Reason: "custom program error: 0x1772"},
	})
	_, err := client.ManageWhitelist(ctx, authority, solana.NewWallet().PublicKey(), true)
	if !errors.Is(err, errors.ErrDuplicateEntry) {
		t.Errorf("expected DuplicateEntry, got %v", err)
	}

	inv.FailWith(&cpi.TransactionError{
		Err:         fmt.Errorf("InstructionError"),
		Instruction: &cpi.InstructionError{Index: 0, Err: cpi.CustomError(30)},
		Failure:     &log.Failure{ProgramID: raydium.ProgramID.String(), Reason: "custom program error: 0x1e"},
	})
	_, err = client.Swap(ctx, raydiumSwap(authority), raydium.ProgramID)
	if !errors.Is(err, errors.ErrExternalCallFailed) {
		t.Errorf("expected ExternalCallFailed, got %v", err)
	}

	inv.FailWith(nil)
	if _, err := client.SetPause(ctx, authority, true); err != nil {
		t.Errorf("SetPause failed: %v", err)
	}
	calls := inv.Calls()
	last := calls[len(calls)-1]
	decoded, err := Decode(last.Data)
	if err != nil {
		t.Fatal(err)
	}
	if p, ok := decoded.(*SetPause); !ok || !p.Paused {
		t.Errorf("expected set_pause(true), got %#v", decoded)
	}

	bad := raydiumSwap(authority)
	bad.Kind = "serum"
	if _, err := client.Swap(ctx, bad, raydium.ProgramID); !errors.Is(err, errors.ErrUnknownPool) {
		t.Errorf("expected UnknownPool, got %v", err)
	}
}
