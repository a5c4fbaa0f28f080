// Package raydium builds swap_base_in instructions for the Raydium AMM v4
// program.
package raydium

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpiswap/internal/errors"
	"github.com/lugondev/go-cpiswap/internal/pool"
	"github.com/lugondev/go-cpiswap/pkg/types"
)

var (
	ProgramID      = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	SerumProgramID = solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
)

// InstructionSwapBaseIn is the AMM v4 tag for swap_base_in.
const InstructionSwapBaseIn uint8 = 9

// Pool account names, in the order Raydium expects them after the token program.
const (
	AccountAmm              = "amm"
	AccountAmmAuthority     = "amm_authority"
	AccountAmmOpenOrders    = "amm_open_orders"
	AccountAmmTargetOrders  = "amm_target_orders"
	AccountPoolCoinVault    = "pool_coin_vault"
	AccountPoolPcVault      = "pool_pc_vault"
	AccountSerumProgram     = "serum_program"
	AccountSerumMarket      = "serum_market"
	AccountSerumBids        = "serum_bids"
	AccountSerumAsks        = "serum_asks"
	AccountSerumEventQueue  = "serum_event_queue"
	AccountSerumCoinVault   = "serum_coin_vault"
	AccountSerumPcVault     = "serum_pc_vault"
	AccountSerumVaultSigner = "serum_vault_signer"
)

var accountNames = []string{
	AccountAmm,
	AccountAmmAuthority,
	AccountAmmOpenOrders,
	AccountAmmTargetOrders,
	AccountPoolCoinVault,
	AccountPoolPcVault,
	AccountSerumProgram,
	AccountSerumMarket,
	AccountSerumBids,
	AccountSerumAsks,
	AccountSerumEventQueue,
	AccountSerumCoinVault,
	AccountSerumPcVault,
	AccountSerumVaultSigner,
}

// PoolKeys is the Raydium and Serum account bundle of one AMM.
type PoolKeys struct {
	Amm              solana.PublicKey
	AmmAuthority     solana.PublicKey
	AmmOpenOrders    solana.PublicKey
	AmmTargetOrders  solana.PublicKey
	PoolCoinVault    solana.PublicKey
	PoolPcVault      solana.PublicKey
	SerumProgram     solana.PublicKey
	SerumMarket      solana.PublicKey
	SerumBids        solana.PublicKey
	SerumAsks        solana.PublicKey
	SerumEventQueue  solana.PublicKey
	SerumCoinVault   solana.PublicKey
	SerumPcVault     solana.PublicKey
	SerumVaultSigner solana.PublicKey
}

// Accounts returns the keys in AccountNames order.
func (k *PoolKeys) Accounts() []solana.PublicKey {
	return []solana.PublicKey{
		k.Amm,
		k.AmmAuthority,
		k.AmmOpenOrders,
		k.AmmTargetOrders,
		k.PoolCoinVault,
		k.PoolPcVault,
		k.SerumProgram,
		k.SerumMarket,
		k.SerumBids,
		k.SerumAsks,
		k.SerumEventQueue,
		k.SerumCoinVault,
		k.SerumPcVault,
		k.SerumVaultSigner,
	}
}

// Validate reports the first unset key.
func (k *PoolKeys) Validate() error {
	return pool.RequireAccounts("raydium", accountNames, k.Accounts(), len(accountNames))
}

// PoolKeysFromAccounts is the inverse of Accounts.
func PoolKeysFromAccounts(accounts []solana.PublicKey) (*PoolKeys, error) {
	if len(accounts) != len(accountNames) {
		return nil, errors.InvalidAccounts(fmt.Sprintf("raydium expects %d pool accounts, got %d", len(accountNames), len(accounts)))
	}
	return &PoolKeys{
		Amm:              accounts[0],
		AmmAuthority:     accounts[1],
		AmmOpenOrders:    accounts[2],
		AmmTargetOrders:  accounts[3],
		PoolCoinVault:    accounts[4],
		PoolPcVault:      accounts[5],
		SerumProgram:     accounts[6],
		SerumMarket:      accounts[7],
		SerumBids:        accounts[8],
		SerumAsks:        accounts[9],
		SerumEventQueue:  accounts[10],
		SerumCoinVault:   accounts[11],
		SerumPcVault:     accounts[12],
		SerumVaultSigner: accounts[13],
	}, nil
}

// Adapter implements pool.Adapter for Raydium AMM v4.
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

func (a *Adapter) Name() string                { return "raydium" }
func (a *Adapter) Kind() pool.Kind             { return pool.KindRaydium }
func (a *Adapter) ProgramID() solana.PublicKey { return a.programID }
func (a *Adapter) AccountNames() []string      { return append([]string(nil), accountNames...) }

func (a *Adapter) Validate(req *pool.SwapRequest) error {
	if req.Source.IsZero() || req.Destination.IsZero() {
		return errors.InvalidAccounts("raydium swap needs source and destination token accounts")
	}
	if req.Source.Equals(req.Destination) {
		return errors.InvalidAccounts("raydium source and destination must differ")
	}
	return pool.RequireAccounts(a.Name(), accountNames, req.Accounts, len(accountNames))
}

func (a *Adapter) BuildSwap(req *pool.SwapRequest) (*types.Instruction, error) {
	if err := a.Validate(req); err != nil {
		return nil, err
	}
	keys, err := PoolKeysFromAccounts(req.Accounts)
	if err != nil {
		return nil, err
	}

	return &types.Instruction{
		ProgramID: a.programID,
		Accounts: []types.AccountMeta{
			types.Readonly(req.TokenProgramOrDefault()),
			types.Writable(keys.Amm),
			types.Readonly(keys.AmmAuthority),
			types.Writable(keys.AmmOpenOrders),
			types.Writable(keys.AmmTargetOrders),
			types.Writable(keys.PoolCoinVault),
			types.Writable(keys.PoolPcVault),
			types.Readonly(keys.SerumProgram),
			types.Writable(keys.SerumMarket),
			types.Writable(keys.SerumBids),
			types.Writable(keys.SerumAsks),
			types.Writable(keys.SerumEventQueue),
			types.Writable(keys.SerumCoinVault),
			types.Writable(keys.SerumPcVault),
			types.Readonly(keys.SerumVaultSigner),
			types.Writable(req.Source),
			types.Writable(req.Destination),
			types.Signer(req.Caller),
		},
		Data: EncodeSwapBaseIn(req.AmountIn, req.MinimumAmountOut),
	}, nil
}

// EncodeSwapBaseIn returns the 17-byte swap_base_in payload.
func EncodeSwapBaseIn(amountIn, minimumAmountOut uint64) []byte {
	data := make([]byte, 17)
	data[0] = InstructionSwapBaseIn
	binary.LittleEndian.PutUint64(data[1:9], amountIn)
	binary.LittleEndian.PutUint64(data[9:17], minimumAmountOut)
	return data
}

// DecodeSwapBaseIn reverses EncodeSwapBaseIn.
func DecodeSwapBaseIn(data []byte) (amountIn, minimumAmountOut uint64, err error) {
	if len(data) != 17 || data[0] != InstructionSwapBaseIn {
		return 0, 0, fmt.Errorf("not a swap_base_in payload")
	}
	return binary.LittleEndian.Uint64(data[1:9]), binary.LittleEndian.Uint64(data[9:17]), nil
}
