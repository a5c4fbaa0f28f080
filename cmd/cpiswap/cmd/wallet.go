package cmd

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	csolana "github.com/lugondev/go-cpiswap/internal/solana"
	"github.com/lugondev/go-cpiswap/internal/token"
	"github.com/lugondev/go-cpiswap/pkg/types"
)

var (
	walletOut   string
	walletToken bool
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Wallet management commands",
	Long:  `Commands for generating keypairs and checking SOL and token balances.`,
}

var walletNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate a new wallet",
	Long:  `Generate a new keypair and write it in Solana CLI format. Existing files are never overwritten.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := csolana.NewWallet()
		if err := w.SaveToFile(walletOut); err != nil {
			return err
		}

		fmt.Println("New wallet generated!")
		fmt.Printf("  Public Key: %s\n", w.PublicKey())
		fmt.Printf("  Keypair:    %s\n", csolana.ExpandHome(walletOut))
		return nil
	},
}

var walletBalanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Check wallet balance",
	Long: `Check the SOL balance of an address, or of the configured wallet when no
address is given. With --token the address is read as an SPL token account.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp()
		ctx, cancel := commandContext(cmd.Context())
		defer cancel()
		defer a.Close(ctx)

		var address solana.PublicKey
		if len(args) == 1 {
			pk, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return fmt.Errorf("invalid address: %w", err)
			}
			address = pk
		} else {
			w, err := a.Wallet()
			if err != nil {
				return err
			}
			address = w.PublicKey()
		}

		fmt.Printf("Address: %s\n", address)
		if walletToken {
			amount, decimals, err := a.Client().GetTokenBalance(ctx, address)
			if err != nil {
				return err
			}
			raw, err := token.ParseBaseUnits(amount)
			if err != nil {
				return err
			}
			fmt.Printf("Balance: %s (%s base units)\n", token.FormatAmount(raw, decimals), amount)
			return nil
		}

		lamports, err := a.Client().GetBalance(ctx, address)
		if err != nil {
			return err
		}
		fmt.Printf("Balance: %.9f SOL\n", types.LamportsToSOL(lamports))
		return nil
	},
}

var walletAirdropCmd = &cobra.Command{
	Use:   "airdrop <sol>",
	Short: "Request a devnet or localnet airdrop to the configured wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lamports, err := token.ParseAmount(args[0], 9)
		if err != nil {
			return err
		}

		a := newApp()
		ctx, cancel := commandContext(cmd.Context())
		defer cancel()
		defer a.Close(ctx)

		w, err := a.Wallet()
		if err != nil {
			return err
		}
		sig, err := a.Client().RequestAirdrop(ctx, w.PublicKey(), lamports)
		if err != nil {
			return err
		}
		fmt.Printf("Airdrop requested: %s\n", sig)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletNewCmd)
	walletCmd.AddCommand(walletBalanceCmd)
	walletCmd.AddCommand(walletAirdropCmd)

	walletNewCmd.Flags().StringVarP(&walletOut, "out", "o", "~/.config/solana/cpiswap.json", "where to write the keypair")
	walletBalanceCmd.Flags().BoolVar(&walletToken, "token", false, "read the address as an SPL token account")
}
