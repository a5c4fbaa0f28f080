// Package pool defines the adapter contract the router dispatches swaps
// through, and the registry that binds adapters to external program IDs.
package pool

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/lugondev/go-cpiswap/internal/errors"
	"github.com/lugondev/go-cpiswap/pkg/types"
)

// Kind names an adapter family. It is carried on a request so the router can
// refuse to hand, say, a Whirlpools account bundle to the Raydium adapter.
type Kind string

const (
	KindRaydium    Kind = "raydium"
	KindWhirlpools Kind = "whirlpools"
)

// SwapRequest is one swap, built per call and never persisted.
//
// For Raydium, AmountIn and MinimumAmountOut are swap_base_in's arguments and
// the swap always moves Source to Destination. For Whirlpools, AmountIn is
// `amount`, MinimumAmountOut is `other_amount_threshold`, and Source and
// Destination are the caller's token accounts for mint A and mint B.
type SwapRequest struct {
	Caller       solana.PublicKey
	Kind         Kind
	Source       solana.PublicKey
	Destination  solana.PublicKey
	TokenProgram solana.PublicKey

	AmountIn               uint64
	MinimumAmountOut       uint64
	SqrtPriceLimit         uint128.Uint128
	AmountSpecifiedIsInput bool
	AToB                   bool

	// Accounts is the pool's own account bundle, in the adapter's
	// AccountNames order. Adapters forward it without reading account data.
	Accounts []solana.PublicKey
}

// TokenProgramOrDefault returns the request's token program, or the SPL
// token program when none was given.
func (r *SwapRequest) TokenProgramOrDefault() solana.PublicKey {
	if r.TokenProgram.IsZero() {
		return solana.TokenProgramID
	}
	return r.TokenProgram
}

// Adapter translates a SwapRequest into one external program's swap instruction.
type Adapter interface {
	Name() string
	Kind() Kind
	ProgramID() solana.PublicKey

	// AccountNames labels the positions of SwapRequest.Accounts.
	AccountNames() []string

	// Validate checks the request shape without building anything.
	Validate(req *SwapRequest) error

	// BuildSwap returns the instruction to invoke on ProgramID.
	BuildSwap(req *SwapRequest) (*types.Instruction, error)
}

// RequireAccounts checks that accounts has exactly len(names) entries and that
// the first `required` of them are set.
func RequireAccounts(adapter string, names []string, accounts []solana.PublicKey, required int) error {
	if len(accounts) != len(names) {
		return errors.InvalidAccounts(fmt.Sprintf("%s expects %d pool accounts, got %d", adapter, len(names), len(accounts)))
	}
	for i := 0; i < required; i++ {
		if accounts[i].IsZero() {
			return errors.InvalidAccounts(fmt.Sprintf("%s pool account %s is missing", adapter, names[i]))
		}
	}
	return nil
}
