package program

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpiswap/internal/cpi"
	"github.com/lugondev/go-cpiswap/internal/errors"
	"github.com/lugondev/go-cpiswap/internal/pool"
	"github.com/lugondev/go-cpiswap/internal/pool/raydium"
	"github.com/lugondev/go-cpiswap/internal/pool/whirlpools"
	"github.com/lugondev/go-cpiswap/pkg/types"
)

func newInstruction(programID solana.PublicKey, args Instruction, accounts ...types.AccountMeta) (*types.Instruction, error) {
	data, err := Encode(args)
	if err != nil {
		return nil, err
	}
	return &types.Instruction{ProgramID: programID, Accounts: accounts, Data: data}, nil
}

func NewInitializeInstruction(programID, whitelist, authority solana.PublicKey) (*types.Instruction, error) {
	return newInstruction(programID, &Initialize{},
		types.Writable(whitelist),
		types.WritableSigner(authority),
		types.Readonly(solana.SystemProgramID),
	)
}

func NewManageWhitelistInstruction(programID, whitelist, authority, target solana.PublicKey, add bool) (*types.Instruction, error) {
	return newInstruction(programID, &ManageWhitelist{Add: add},
		types.Writable(whitelist),
		types.Signer(authority),
		types.Readonly(target),
	)
}

func NewSetPauseInstruction(programID, whitelist, authority solana.PublicKey, paused bool) (*types.Instruction, error) {
	return newInstruction(programID, &SetPause{Paused: paused},
		types.Writable(whitelist),
		types.Signer(authority),
	)
}

// NewSwapOnRaydiumInstruction wraps req for a deployed router. req.Accounts
// is the Raydium pool bundle in raydium adapter order.
func NewSwapOnRaydiumInstruction(programID, whitelist, raydiumProgram solana.PublicKey, req *pool.SwapRequest) (*types.Instruction, error) {
	keys, err := raydium.PoolKeysFromAccounts(req.Accounts)
	if err != nil {
		return nil, err
	}
	if err := keys.Validate(); err != nil {
		return nil, err
	}

	accounts := []types.AccountMeta{
		types.Signer(req.Caller),
		types.Readonly(whitelist),
		types.Writable(req.Source),
		types.Writable(req.Destination),
		types.Readonly(req.TokenProgramOrDefault()),
		types.Readonly(raydiumProgram),
	}
	for _, pk := range keys.Accounts() {
		accounts = append(accounts, types.Writable(pk))
	}

	return newInstruction(programID, &SwapOnRaydium{
		AmountIn:         req.AmountIn,
		MinimumAmountOut: req.MinimumAmountOut,
	}, accounts...)
}

// NewSwapOnWhirlpoolsInstruction wraps req for a deployed router. req.Accounts
// is the Whirlpools bundle in whirlpools adapter order; optional tick arrays
// and the oracle are filled in as the adapter would.
func NewSwapOnWhirlpoolsInstruction(programID, whitelist, whirlpoolsProgram solana.PublicKey, req *pool.SwapRequest) (*types.Instruction, error) {
	accts, err := whirlpools.ResolvePoolAccounts(whirlpoolsProgram, req.Accounts)
	if err != nil {
		return nil, err
	}

	return newInstruction(programID, &SwapOnWhirlpools{SwapArgs: whirlpools.SwapArgs{
		Amount:                 req.AmountIn,
		OtherAmountThreshold:   req.MinimumAmountOut,
		SqrtPriceLimit:         req.SqrtPriceLimit,
		AmountSpecifiedIsInput: req.AmountSpecifiedIsInput,
		AToB:                   req.AToB,
	}},
		types.Signer(req.Caller),
		types.Readonly(whitelist),
		types.Writable(req.Source),
		types.Writable(req.Destination),
		types.Writable(accts.VaultA),
		types.Writable(accts.VaultB),
		types.Writable(accts.TickArrays[0]),
		types.Writable(accts.TickArrays[1]),
		types.Writable(accts.TickArrays[2]),
		types.Writable(accts.Oracle),
		types.Writable(accts.Whirlpool),
		types.Readonly(whirlpoolsProgram),
		types.Readonly(req.TokenProgramOrDefault()),
	)
}

// Client sends router instructions to a deployed program and maps its custom
// errors back to typed errors.
type Client struct {
	invoker   cpi.Invoker
	programID solana.PublicKey
	whitelist solana.PublicKey
}

func NewClient(invoker cpi.Invoker, programID, whitelist solana.PublicKey) *Client {
	return &Client{invoker: invoker, programID: programID, whitelist: whitelist}
}

func (c *Client) Initialize(ctx context.Context, authority solana.PublicKey) (*cpi.Result, error) {
	ix, err := NewInitializeInstruction(c.programID, c.whitelist, authority)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, ix, "")
}

func (c *Client) ManageWhitelist(ctx context.Context, authority, target solana.PublicKey, add bool) (*cpi.Result, error) {
	ix, err := NewManageWhitelistInstruction(c.programID, c.whitelist, authority, target, add)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, ix, "")
}

func (c *Client) SetPause(ctx context.Context, authority solana.PublicKey, paused bool) (*cpi.Result, error) {
	ix, err := NewSetPauseInstruction(c.programID, c.whitelist, authority, paused)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, ix, "")
}

// Swap builds the swap instruction matching req.Kind and sends it.
func (c *Client) Swap(ctx context.Context, req *pool.SwapRequest, poolProgram solana.PublicKey) (*cpi.Result, error) {
	var (
		ix  *types.Instruction
		err error
	)
	switch req.Kind {
	case pool.KindRaydium:
		ix, err = NewSwapOnRaydiumInstruction(c.programID, c.whitelist, poolProgram, req)
	case pool.KindWhirlpools:
		ix, err = NewSwapOnWhirlpoolsInstruction(c.programID, c.whitelist, poolProgram, req)
	default:
		return nil, errors.UnknownPool(fmt.Sprintf("%s (kind %q)", poolProgram, req.Kind))
	}
	if err != nil {
		return nil, err
	}
	return c.send(ctx, ix, string(req.Kind))
}

// send maps a failure raised by the router program to its typed error. Any
// other failure of a swap is attributed to the named adapter.
func (c *Client) send(ctx context.Context, ix *types.Instruction, adapter string) (*cpi.Result, error) {
	res, err := c.invoker.Invoke(ctx, ix)
	if err == nil {
		return res, nil
	}
	if pe, ok := cpi.ProgramError(err, c.programID); ok {
		return nil, pe.WithCause(err)
	}
	if adapter != "" {
		if failed, ok := cpi.FailingProgram(err); ok && failed != c.programID.String() {
			return nil, errors.ExternalCallFailed(adapter, err)
		}
	}
	return nil, err
}
