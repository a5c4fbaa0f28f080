package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"lukechampine.com/uint128"

	"github.com/lugondev/go-cpiswap/internal/cpi"
	"github.com/lugondev/go-cpiswap/internal/pool"
	"github.com/lugondev/go-cpiswap/internal/pool/raydium"
	"github.com/lugondev/go-cpiswap/internal/program"
	"github.com/lugondev/go-cpiswap/internal/token"
)

type swapOptions struct {
	pool         string
	source       string
	destination  string
	tokenProgram string
	amount       string
	minOut       string
	inDecimals   uint8
	outDecimals  uint8

	poolKeys string
	amm      string

	exactOut       bool
	bToA           bool
	sqrtPriceLimit string
}

var swapFlags swapOptions

var swapCmd = &cobra.Command{
	Use:   "swap",
	Short: "Swap through a whitelisted router",
	Long: `Route a swap to a Raydium or Whirlpools pool as the configured wallet.

Pool accounts come from a named preset (--pool, see pools.presets_file) or, for
Raydium, from a liquidity JSON file (--pool-keys with --amm). The whitelist is
program.whitelist, or the one derived from program.authority.`,
}

var swapRaydiumCmd = &cobra.Command{
	Use:   "raydium",
	Short: "Swap on a Raydium AMM v4 pool (swap_base_in)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSwap(cmd, pool.KindRaydium)
	},
}

var swapWhirlpoolsCmd = &cobra.Command{
	Use:   "whirlpools",
	Short: "Swap on an Orca Whirlpool",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSwap(cmd, pool.KindWhirlpools)
	},
}

func runSwap(cmd *cobra.Command, kind pool.Kind) error {
	a := newApp()
	ctx, cancel := commandContext(cmd.Context())
	defer cancel()
	defer a.Close(ctx)

	w, err := a.Wallet()
	if err != nil {
		return err
	}
	req, poolProgram, err := buildSwapRequest(a, kind, w.PublicKey())
	if err != nil {
		return err
	}

	key, err := a.SwapWhitelistKey()
	if err != nil {
		return err
	}

	var observer *token.Observer
	if !simulate {
		observer = token.NewObserver(a.Client(), req.Source, req.Destination)
		if err := observer.Snapshot(ctx); err != nil {
			slog.Warn("balances unavailable, skipping observation", "error", err)
			observer = nil
		}
	}

	if remote {
		client, err := a.RemoteClient(key, simulate)
		if err != nil {
			return err
		}
		res, err := client.Swap(ctx, req, poolProgram)
		if err != nil {
			return err
		}
		printResult(res)
	} else {
		if err := swapLocally(ctx, a, key, req, poolProgram); err != nil {
			return err
		}
	}

	if observer != nil {
		printChanges(ctx, observer)
	}
	return nil
}

func swapLocally(ctx context.Context, a *app, key solana.PublicKey, req *pool.SwapRequest, poolProgram solana.PublicKey) error {
	processor, r, err := a.Processor(ctx, key, simulate)
	if err != nil {
		return err
	}

	build := program.NewSwapOnRaydiumInstruction
	if req.Kind == pool.KindWhirlpools {
		build = program.NewSwapOnWhirlpoolsInstruction
	}
	ix, err := build(a.ProgramID(), r.Whitelist(), poolProgram, req)
	if err != nil {
		return err
	}

	out, err := processor.Process(ctx, ix)
	if err != nil {
		return err
	}
	printResult(&cpi.Result{
		Signature: out.Swap.Signature,
		Slot:      out.Swap.Slot,
		Logs:      out.Logs,
		Simulated: out.Swap.Simulated,
	})
	if out.Swap.JournalID != "" {
		fmt.Printf("  Journal: %s\n", out.Swap.JournalID)
	}
	return nil
}

func buildSwapRequest(a *app, kind pool.Kind, caller solana.PublicKey) (*pool.SwapRequest, solana.PublicKey, error) {
	f := swapFlags
	req := &pool.SwapRequest{
		Caller:                 caller,
		Kind:                   kind,
		AmountSpecifiedIsInput: !f.exactOut,
		AToB:                   !f.bToA,
	}

	var err error
	if req.Source, err = solana.PublicKeyFromBase58(f.source); err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("invalid --source: %w", err)
	}
	if req.Destination, err = solana.PublicKeyFromBase58(f.destination); err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("invalid --destination: %w", err)
	}
	if f.tokenProgram != "" {
		if req.TokenProgram, err = solana.PublicKeyFromBase58(f.tokenProgram); err != nil {
			return nil, solana.PublicKey{}, fmt.Errorf("invalid --token-program: %w", err)
		}
	}
	if req.AmountIn, err = token.ParseAmount(f.amount, f.inDecimals); err != nil {
		return nil, solana.PublicKey{}, err
	}
	if f.minOut != "" {
		if req.MinimumAmountOut, err = token.ParseAmount(f.minOut, f.outDecimals); err != nil {
			return nil, solana.PublicKey{}, err
		}
	}
	if f.sqrtPriceLimit != "" {
		if req.SqrtPriceLimit, err = uint128.FromString(f.sqrtPriceLimit); err != nil {
			return nil, solana.PublicKey{}, fmt.Errorf("invalid --sqrt-price-limit: %w", err)
		}
	}

	registry, err := a.Registry()
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	var adapter pool.Adapter
	for _, candidate := range registry.Adapters() {
		if candidate.Kind() == kind {
			adapter = candidate
		}
	}
	poolProgram := adapter.ProgramID()

	switch {
	case f.pool != "":
		if cfg.Pools.PresetsFile == "" {
			return nil, solana.PublicKey{}, fmt.Errorf("--pool needs pools.presets_file in the config")
		}
		presets, err := pool.LoadPresets(cfg.Pools.PresetsFile)
		if err != nil {
			return nil, solana.PublicKey{}, err
		}
		preset, err := presets.Get(f.pool)
		if err != nil {
			return nil, solana.PublicKey{}, err
		}
		if preset.Kind != kind {
			return nil, solana.PublicKey{}, fmt.Errorf("preset %q is a %s pool", preset.Name, preset.Kind)
		}
		if preset.ProgramID != "" {
			if poolProgram, err = solana.PublicKeyFromBase58(preset.ProgramID); err != nil {
				return nil, solana.PublicKey{}, fmt.Errorf("preset %q program id: %w", preset.Name, err)
			}
		}
		if req.Accounts, err = preset.Resolve(adapter.AccountNames()); err != nil {
			return nil, solana.PublicKey{}, err
		}

	case f.poolKeys != "" && kind == pool.KindRaydium:
		amm, err := solana.PublicKeyFromBase58(f.amm)
		if err != nil {
			return nil, solana.PublicKey{}, fmt.Errorf("invalid --amm: %w", err)
		}
		data, err := os.ReadFile(f.poolKeys)
		if err != nil {
			return nil, solana.PublicKey{}, fmt.Errorf("failed to read pool keys: %w", err)
		}
		keys, err := raydium.FindPoolKeysJSON(data, amm)
		if err != nil {
			return nil, solana.PublicKey{}, err
		}
		req.Accounts = keys.Accounts()

	default:
		return nil, solana.PublicKey{}, fmt.Errorf("pass --pool, or --pool-keys with --amm for raydium")
	}

	return req, poolProgram, nil
}

func printChanges(ctx context.Context, observer *token.Observer) {
	changes, err := observer.Changes(ctx)
	if err != nil {
		fmt.Printf("  Balances unavailable: %v\n", err)
		return
	}
	for _, c := range changes {
		fmt.Printf("  %s: %s -> %s (%s)\n", c.After.Account, c.Before, c.After, c.Delta().String())
	}
}

func init() {
	rootCmd.AddCommand(swapCmd)
	swapCmd.AddCommand(swapRaydiumCmd)
	swapCmd.AddCommand(swapWhirlpoolsCmd)

	flags := swapCmd.PersistentFlags()
	flags.BoolVar(&remote, "remote", false, "send the swap through the deployed router program")
	flags.BoolVar(&simulate, "simulate", false, "simulate instead of sending")
	flags.StringVar(&swapFlags.pool, "pool", "", "pool preset name")
	flags.StringVar(&swapFlags.source, "source", "", "source token account")
	flags.StringVar(&swapFlags.destination, "destination", "", "destination token account")
	flags.StringVar(&swapFlags.tokenProgram, "token-program", "", "token program (default SPL Token)")
	flags.StringVar(&swapFlags.amount, "amount", "", "amount in (or out, with --exact-out)")
	flags.StringVar(&swapFlags.minOut, "min-out", "0", "minimum amount out (or maximum in, with --exact-out)")
	flags.Uint8Var(&swapFlags.inDecimals, "in-decimals", 0, "decimals of --amount; 0 reads it as base units")
	flags.Uint8Var(&swapFlags.outDecimals, "out-decimals", 0, "decimals of --min-out; 0 reads it as base units")
	for _, name := range []string{"source", "destination", "amount"} {
		_ = swapCmd.MarkPersistentFlagRequired(name)
	}

	swapRaydiumCmd.Flags().StringVar(&swapFlags.poolKeys, "pool-keys", "", "Raydium liquidity JSON file")
	swapRaydiumCmd.Flags().StringVar(&swapFlags.amm, "amm", "", "AMM id to look up in --pool-keys")

	swapWhirlpoolsCmd.Flags().BoolVar(&swapFlags.exactOut, "exact-out", false, "--amount is the desired output")
	swapWhirlpoolsCmd.Flags().BoolVar(&swapFlags.bToA, "b-to-a", false, "swap token B for token A")
	swapWhirlpoolsCmd.Flags().StringVar(&swapFlags.sqrtPriceLimit, "sqrt-price-limit", "", "Q64.64 sqrt price limit; empty means no limit")
}
