package cmd

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/lugondev/go-cpiswap/internal/cpi"
	"github.com/lugondev/go-cpiswap/internal/program"
	"github.com/lugondev/go-cpiswap/internal/whitelist"
	"github.com/lugondev/go-cpiswap/pkg/types"
)

var (
	remote   bool
	simulate bool
)

var whitelistCmd = &cobra.Command{
	Use:   "whitelist",
	Short: "Manage the router whitelist",
	Long: `Create the whitelist, add or remove callers, and pause swaps.

The authority is the configured wallet. Without --remote the whitelist lives in
the configured database; with --remote instructions go to the deployed program.`,
}

// buildFunc builds a router instruction for the given whitelist and authority.
type buildFunc func(programID, key, authority solana.PublicKey) (*types.Instruction, error)

// remoteFunc performs the same operation through the program client.
type remoteFunc func(ctx context.Context, c *program.Client, authority solana.PublicKey) (*cpi.Result, error)

func runWhitelistOp(cmd *cobra.Command, build buildFunc, send remoteFunc) error {
	a := newApp()
	ctx, cancel := commandContext(cmd.Context())
	defer cancel()
	defer a.Close(ctx)

	w, err := a.Wallet()
	if err != nil {
		return err
	}

	key, err := a.WhitelistKey()
	if err != nil {
		return err
	}

	if remote {
		client, err := a.RemoteClient(key, simulate)
		if err != nil {
			return err
		}
		res, err := send(ctx, client, w.PublicKey())
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	}

	processor, _, err := a.Processor(ctx, key, simulate)
	if err != nil {
		return err
	}
	ix, err := build(a.ProgramID(), key, w.PublicKey())
	if err != nil {
		return err
	}
	out, err := processor.Process(ctx, ix)
	if err != nil {
		return err
	}
	printWhitelist(key, out.Whitelist)
	return nil
}

var whitelistInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an empty whitelist owned by the configured wallet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWhitelistOp(cmd,
			program.NewInitializeInstruction,
			func(ctx context.Context, c *program.Client, authority solana.PublicKey) (*cpi.Result, error) {
				return c.Initialize(ctx, authority)
			})
	},
}

func manageCommand(use, short string, add bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <address>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return fmt.Errorf("invalid address: %w", err)
			}
			return runWhitelistOp(cmd,
				func(programID, key, authority solana.PublicKey) (*types.Instruction, error) {
					return program.NewManageWhitelistInstruction(programID, key, authority, target, add)
				},
				func(ctx context.Context, c *program.Client, authority solana.PublicKey) (*cpi.Result, error) {
					return c.ManageWhitelist(ctx, authority, target, add)
				})
		},
	}
}

func pauseCommand(use, short string, paused bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhitelistOp(cmd,
				func(programID, key, authority solana.PublicKey) (*types.Instruction, error) {
					return program.NewSetPauseInstruction(programID, key, authority, paused)
				},
				func(ctx context.Context, c *program.Client, authority solana.PublicKey) (*cpi.Result, error) {
					return c.SetPause(ctx, authority, paused)
				})
		},
	}
}

var whitelistListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the whitelist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp()
		ctx, cancel := commandContext(cmd.Context())
		defer cancel()
		defer a.Close(ctx)

		key, err := a.WhitelistKey()
		if err != nil {
			return err
		}

		if remote {
			data, err := a.Client().GetAccountData(ctx, key)
			if err != nil {
				return err
			}
			if data == nil {
				return fmt.Errorf("whitelist account %s does not exist", key)
			}
			w, err := whitelist.Decode(data)
			if err != nil {
				return err
			}
			printWhitelist(key, w)
			return nil
		}

		if _, err := a.LocalRepository(ctx); err != nil {
			return err
		}
		store, err := a.Store(ctx)
		if err != nil {
			return err
		}
		w, err := store.Load(ctx, key)
		if err != nil {
			return err
		}
		printWhitelist(key, w)
		return nil
	},
}

func printWhitelist(key solana.PublicKey, w *whitelist.Whitelist) {
	fmt.Printf("Whitelist: %s\n", key)
	fmt.Printf("  Authority: %s\n", w.Authority)
	fmt.Printf("  Paused:    %t\n", w.Paused)
	fmt.Printf("  Users:     %d\n", len(w.Users))
	for _, u := range w.Users {
		fmt.Printf("    %s\n", u)
	}
}

func printResult(res *cpi.Result) {
	if res.Simulated {
		fmt.Printf("Simulated at slot %d\n", res.Slot)
	} else {
		fmt.Printf("Signature: %s\n", res.Signature)
		fmt.Printf("  Slot: %d\n", res.Slot)
	}
	if res.UnitsConsumed != nil {
		fmt.Printf("  Compute units: %d\n", *res.UnitsConsumed)
	}
	for _, l := range res.Logs {
		fmt.Printf("  %s\n", l)
	}
}

func init() {
	rootCmd.AddCommand(whitelistCmd)
	whitelistCmd.PersistentFlags().BoolVar(&remote, "remote", false, "send instructions to the deployed router program")
	whitelistCmd.PersistentFlags().BoolVar(&simulate, "simulate", false, "simulate instead of sending (with --remote)")

	whitelistCmd.AddCommand(whitelistInitCmd)
	whitelistCmd.AddCommand(manageCommand("add", "Add a caller to the whitelist", true))
	whitelistCmd.AddCommand(manageCommand("remove", "Remove a caller from the whitelist", false))
	whitelistCmd.AddCommand(pauseCommand("pause", "Reject every swap until unpaused", true))
	whitelistCmd.AddCommand(pauseCommand("unpause", "Allow swaps again", false))
	whitelistCmd.AddCommand(whitelistListCmd)
}
