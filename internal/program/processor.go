package program

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpiswap/internal/common"
	"github.com/lugondev/go-cpiswap/internal/errors"
	"github.com/lugondev/go-cpiswap/internal/pool"
	"github.com/lugondev/go-cpiswap/internal/router"
	"github.com/lugondev/go-cpiswap/internal/whitelist"
	"github.com/lugondev/go-cpiswap/pkg/types"
)

// Account counts per instruction.
const (
	initializeAccounts       = 3
	manageWhitelistAccounts  = 3
	setPauseAccounts         = 2
	swapOnRaydiumAccounts    = 6 + 14
	swapOnWhirlpoolsAccounts = 13
)

// Outcome is what processing one instruction produced.
type Outcome struct {
	Instruction Instruction
	Whitelist   *whitelist.Whitelist
	Swap        *router.Result
	Logs        []string
}

// Processor executes router instructions in process.
type Processor struct {
	common.LoggerMixin
	programID solana.PublicKey
	store     *whitelist.Store
	router    *router.Router
}

func NewProcessor(programID solana.PublicKey, store *whitelist.Store, r *router.Router) *Processor {
	return &Processor{
		LoggerMixin: common.NewLoggerMixin(),
		programID:   programID,
		store:       store,
		router:      r,
	}
}

// Process decodes ix, checks its accounts and runs it. Each instruction is
// one read-modify-write or one routed swap; nothing is applied on error.
func (p *Processor) Process(ctx context.Context, ix *types.Instruction) (*Outcome, error) {
	if !p.programID.IsZero() && !ix.ProgramID.Equals(p.programID) {
		return nil, errors.InvalidAccounts(fmt.Sprintf("instruction targets %s, not %s", ix.ProgramID, p.programID))
	}

	decoded, err := Decode(ix.Data)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Instruction: decoded,
		Logs:        []string{"Instruction: " + LogName(decoded)},
	}
	p.GetLogger().Debug("processing instruction", "instruction", LogName(decoded), "accounts", len(ix.Accounts))

	switch args := decoded.(type) {
	case *Initialize:
		err = p.initialize(ctx, ix.Accounts, out)
	case *ManageWhitelist:
		err = p.manageWhitelist(ctx, ix.Accounts, args, out)
	case *SetPause:
		err = p.setPause(ctx, ix.Accounts, args, out)
	case *SwapOnRaydium:
		err = p.swapOnRaydium(ctx, ix.Accounts, args, out)
	case *SwapOnWhirlpools:
		err = p.swapOnWhirlpools(ctx, ix.Accounts, args, out)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Processor) initialize(ctx context.Context, accounts []types.AccountMeta, out *Outcome) error {
	if err := expect(accounts, initializeAccounts,
		role{index: 0, writable: true, name: "whitelist"},
		role{index: 1, signer: true, writable: true, name: "authority"},
	); err != nil {
		return err
	}
	if !accounts[2].Pubkey.Equals(solana.SystemProgramID) {
		return errors.InvalidAccounts("third account must be the system program")
	}

	w, err := p.store.Initialize(ctx, accounts[0].Pubkey, accounts[1].Pubkey)
	if err != nil {
		return err
	}
	out.Whitelist = w
	return nil
}

func (p *Processor) manageWhitelist(ctx context.Context, accounts []types.AccountMeta, args *ManageWhitelist, out *Outcome) error {
	if err := expect(accounts, manageWhitelistAccounts,
		role{index: 0, writable: true, name: "whitelist"},
		role{index: 1, signer: true, name: "authority"},
	); err != nil {
		return err
	}

	w, err := p.store.Manage(ctx, accounts[0].Pubkey, accounts[1].Pubkey, accounts[2].Pubkey, args.Add)
	if err != nil {
		return err
	}
	out.Whitelist = w
	return nil
}

func (p *Processor) setPause(ctx context.Context, accounts []types.AccountMeta, args *SetPause, out *Outcome) error {
	if err := expect(accounts, setPauseAccounts,
		role{index: 0, writable: true, name: "whitelist"},
		role{index: 1, signer: true, name: "authority"},
	); err != nil {
		return err
	}

	w, err := p.store.SetPaused(ctx, accounts[0].Pubkey, accounts[1].Pubkey, args.Paused)
	if err != nil {
		return err
	}
	out.Whitelist = w
	return nil
}

func (p *Processor) swapOnRaydium(ctx context.Context, accounts []types.AccountMeta, args *SwapOnRaydium, out *Outcome) error {
	if err := expect(accounts, swapOnRaydiumAccounts,
		role{index: 0, signer: true, name: "user"},
		role{index: 2, writable: true, name: "source"},
		role{index: 3, writable: true, name: "destination"},
	); err != nil {
		return err
	}
	if err := p.checkWhitelist(accounts[1].Pubkey); err != nil {
		return err
	}

	req := &pool.SwapRequest{
		Caller:           accounts[0].Pubkey,
		Kind:             pool.KindRaydium,
		Source:           accounts[2].Pubkey,
		Destination:      accounts[3].Pubkey,
		TokenProgram:     accounts[4].Pubkey,
		AmountIn:         args.AmountIn,
		MinimumAmountOut: args.MinimumAmountOut,
		Accounts:         pubkeys(accounts[6:swapOnRaydiumAccounts]),
	}
	return p.route(ctx, req, accounts[5].Pubkey, out)
}

func (p *Processor) swapOnWhirlpools(ctx context.Context, accounts []types.AccountMeta, args *SwapOnWhirlpools, out *Outcome) error {
	roles := []role{{index: 0, signer: true, name: "user"}}
	for i, name := range []string{"token_owner_account_a", "token_owner_account_b", "token_vault_a", "token_vault_b",
		"tick_array_0", "tick_array_1", "tick_array_2", "oracle", "whirlpool"} {
		roles = append(roles, role{index: 2 + i, writable: true, name: name})
	}
	if err := expect(accounts, swapOnWhirlpoolsAccounts, roles...); err != nil {
		return err
	}
	if err := p.checkWhitelist(accounts[1].Pubkey); err != nil {
		return err
	}

	req := &pool.SwapRequest{
		Caller:                 accounts[0].Pubkey,
		Kind:                   pool.KindWhirlpools,
		Source:                 accounts[2].Pubkey,
		Destination:            accounts[3].Pubkey,
		TokenProgram:           accounts[12].Pubkey,
		AmountIn:               args.Amount,
		MinimumAmountOut:       args.OtherAmountThreshold,
		SqrtPriceLimit:         args.SqrtPriceLimit,
		AmountSpecifiedIsInput: args.AmountSpecifiedIsInput,
		AToB:                   args.AToB,
		Accounts: []solana.PublicKey{
			accounts[10].Pubkey, // whirlpool
			accounts[4].Pubkey,
			accounts[5].Pubkey,
			accounts[6].Pubkey,
			accounts[7].Pubkey,
			accounts[8].Pubkey,
			accounts[9].Pubkey,
		},
	}
	return p.route(ctx, req, accounts[11].Pubkey, out)
}

func (p *Processor) route(ctx context.Context, req *pool.SwapRequest, target solana.PublicKey, out *Outcome) error {
	res, err := p.router.RouteSwap(ctx, req, target)
	if err != nil {
		return err
	}
	out.Swap = res
	out.Logs = append(out.Logs, res.Logs...)
	return nil
}

// checkWhitelist rejects a swap naming a whitelist other than the one the
// router authorizes against.
func (p *Processor) checkWhitelist(key solana.PublicKey) error {
	if !key.Equals(p.router.Whitelist()) {
		return errors.InvalidAccounts(fmt.Sprintf("whitelist %s is not this router's whitelist", key))
	}
	return nil
}

type role struct {
	index    int
	signer   bool
	writable bool
	name     string
}

func expect(accounts []types.AccountMeta, count int, roles ...role) error {
	if len(accounts) < count {
		return errors.InvalidAccounts(fmt.Sprintf("expected %d accounts, got %d", count, len(accounts)))
	}
	for _, r := range roles {
		meta := accounts[r.index]
		if r.signer && !meta.IsSigner {
			return errors.InvalidAccounts(fmt.Sprintf("%s must sign", r.name))
		}
		if r.writable && !meta.IsWritable {
			return errors.InvalidAccounts(fmt.Sprintf("%s must be writable", r.name))
		}
	}
	return nil
}

func pubkeys(metas []types.AccountMeta) []solana.PublicKey {
	out := make([]solana.PublicKey, len(metas))
	for i, m := range metas {
		out[i] = m.Pubkey
	}
	return out
}
