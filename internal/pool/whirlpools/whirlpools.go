// Package whirlpools builds swap instructions for the Orca Whirlpools program.
package whirlpools

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/lugondev/go-cpiswap/internal/errors"
	"github.com/lugondev/go-cpiswap/internal/pool"
	"github.com/lugondev/go-cpiswap/pkg/anchor"
	"github.com/lugondev/go-cpiswap/pkg/types"
)

var ProgramID = solana.MustPublicKeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")

// SwapDiscriminator prefixes the swap instruction data.
var SwapDiscriminator = anchor.InstructionDiscriminator("swap")

// Price bounds accepted by the program, as Q64.64 square roots.
var (
	MinSqrtPrice = uint128.From64(4295048016)
	MaxSqrtPrice = uint128.New(3871828160200520623, 4294886577) // 79226673515401279992447579055
)

// Pool account names. Tick arrays 1 and 2 and the oracle are optional.
const (
	AccountWhirlpool  = "whirlpool"
	AccountVaultA     = "token_vault_a"
	AccountVaultB     = "token_vault_b"
	AccountTickArray0 = "tick_array_0"
	AccountTickArray1 = "tick_array_1"
	AccountTickArray2 = "tick_array_2"
	AccountOracle     = "oracle"
)

var accountNames = []string{
	AccountWhirlpool,
	AccountVaultA,
	AccountVaultB,
	AccountTickArray0,
	AccountTickArray1,
	AccountTickArray2,
	AccountOracle,
}

// required covers whirlpool, both vaults and the first tick array.
const required = 4

// SwapArgs are the arguments of the swap instruction.
type SwapArgs struct {
	Amount                 uint64
	OtherAmountThreshold   uint64
	SqrtPriceLimit         uint128.Uint128
	AmountSpecifiedIsInput bool
	AToB                   bool
}

func (a SwapArgs) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteUint64(a.Amount, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteUint64(a.OtherAmountThreshold, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteUint64(a.SqrtPriceLimit.Lo, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteUint64(a.SqrtPriceLimit.Hi, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteBool(a.AmountSpecifiedIsInput); err != nil {
		return err
	}
	return enc.WriteBool(a.AToB)
}

func (a *SwapArgs) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if a.Amount, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	if a.OtherAmountThreshold, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	if a.SqrtPriceLimit.Lo, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	if a.SqrtPriceLimit.Hi, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	if a.AmountSpecifiedIsInput, err = dec.ReadBool(); err != nil {
		return err
	}
	a.AToB, err = dec.ReadBool()
	return err
}

// ResolveSqrtPriceLimit maps a zero limit to the bound on the side the price
// moves toward: MIN when selling A for B, MAX otherwise.
func ResolveSqrtPriceLimit(limit uint128.Uint128, aToB bool) uint128.Uint128 {
	if !limit.IsZero() {
		return limit
	}
	if aToB {
		return MinSqrtPrice
	}
	return MaxSqrtPrice
}

// EncodeSwap returns the discriminator followed by the borsh-encoded args.
func EncodeSwap(args SwapArgs) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(SwapDiscriminator.Bytes(), false); err != nil {
		return nil, err
	}
	if err := args.MarshalWithEncoder(enc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeSwap reverses EncodeSwap.
func DecodeSwap(data []byte) (*SwapArgs, error) {
	if len(data) < anchor.Size || !bytes.Equal(data[:anchor.Size], SwapDiscriminator.Bytes()) {
		return nil, fmt.Errorf("not a whirlpool swap payload")
	}
	var args SwapArgs
	dec := bin.NewBorshDecoder(data[anchor.Size:])
	if err := args.UnmarshalWithDecoder(dec); err != nil {
		return nil, err
	}
	if dec.Remaining() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after swap args", dec.Remaining())
	}
	return &args, nil
}

// OracleAddress derives the oracle PDA of a whirlpool.
func OracleAddress(programID, whirlpool solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("oracle"), whirlpool.Bytes()}, programID)
	return addr, err
}

// Adapter implements pool.Adapter for Whirlpools.
type Adapter struct {
	programID solana.PublicKey
}

// New returns an adapter bound to programID, or the mainnet program when zero.
func New(programID solana.PublicKey) *Adapter {
	if programID.IsZero() {
		programID = ProgramID
	}
	return &Adapter{programID: programID}
}

func (a *Adapter) Name() string                { return "whirlpools" }
func (a *Adapter) Kind() pool.Kind             { return pool.KindWhirlpools }
func (a *Adapter) ProgramID() solana.PublicKey { return a.programID }
func (a *Adapter) AccountNames() []string      { return append([]string(nil), accountNames...) }

func (a *Adapter) Validate(req *pool.SwapRequest) error {
	if req.Source.IsZero() || req.Destination.IsZero() {
		return errors.InvalidAccounts("whirlpools swap needs token owner accounts for A and B")
	}
	if err := pool.RequireAccounts(a.Name(), accountNames, req.Accounts, required); err != nil {
		return err
	}
	if !req.AmountSpecifiedIsInput && req.MinimumAmountOut == 0 {
		return errors.InvalidAmount("exact-output swap needs a maximum input in other_amount_threshold")
	}
	limit := req.SqrtPriceLimit
	if !limit.IsZero() && (limit.Cmp(MinSqrtPrice) < 0 || limit.Cmp(MaxSqrtPrice) > 0) {
		return errors.InvalidAmount(fmt.Sprintf("sqrt_price_limit %s outside [%s, %s]", limit, MinSqrtPrice, MaxSqrtPrice))
	}
	return nil
}

func (a *Adapter) BuildSwap(req *pool.SwapRequest) (*types.Instruction, error) {
	if err := a.Validate(req); err != nil {
		return nil, err
	}

	accts, err := ResolvePoolAccounts(a.programID, req.Accounts)
	if err != nil {
		return nil, err
	}

	data, err := EncodeSwap(SwapArgs{
		Amount:                 req.AmountIn,
		OtherAmountThreshold:   req.MinimumAmountOut,
		SqrtPriceLimit:         ResolveSqrtPriceLimit(req.SqrtPriceLimit, req.AToB),
		AmountSpecifiedIsInput: req.AmountSpecifiedIsInput,
		AToB:                   req.AToB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode swap: %w", err)
	}

	return &types.Instruction{
		ProgramID: a.programID,
		Accounts: []types.AccountMeta{
			types.Readonly(req.TokenProgramOrDefault()),
			types.Signer(req.Caller),
			types.Writable(accts.Whirlpool),
			types.Writable(req.Source),
			types.Writable(accts.VaultA),
			types.Writable(req.Destination),
			types.Writable(accts.VaultB),
			types.Writable(accts.TickArrays[0]),
			types.Writable(accts.TickArrays[1]),
			types.Writable(accts.TickArrays[2]),
			types.Writable(accts.Oracle),
		},
		Data: data,
	}, nil
}

// PoolAccounts is a pool bundle with optional accounts filled in.
type PoolAccounts struct {
	Whirlpool  solana.PublicKey
	VaultA     solana.PublicKey
	VaultB     solana.PublicKey
	TickArrays [3]solana.PublicKey
	Oracle     solana.PublicKey
}

// ResolvePoolAccounts reads a bundle in AccountNames order. Missing tick
// arrays repeat the last one given and a missing oracle is derived.
func ResolvePoolAccounts(programID solana.PublicKey, accounts []solana.PublicKey) (*PoolAccounts, error) {
	if err := pool.RequireAccounts("whirlpools", accountNames, accounts, required); err != nil {
		return nil, err
	}

	out := &PoolAccounts{
		Whirlpool:  accounts[0],
		VaultA:     accounts[1],
		VaultB:     accounts[2],
		TickArrays: padTickArrays(accounts[3:6]),
		Oracle:     accounts[6],
	}
	if out.Oracle.IsZero() {
		oracle, err := OracleAddress(programID, out.Whirlpool)
		if err != nil {
			return nil, errors.InvalidAccounts("cannot derive whirlpool oracle").WithCause(err)
		}
		out.Oracle = oracle
	}
	return out, nil
}

// padTickArrays fills unset trailing tick arrays with the last one supplied.
// A swap that stays inside one array may pass it three times.
func padTickArrays(in []solana.PublicKey) [3]solana.PublicKey {
	var out [3]solana.PublicKey
	copy(out[:], in)
	for i := 1; i < len(out); i++ {
		if out[i].IsZero() {
			out[i] = out[i-1]
		}
	}
	return out
}
