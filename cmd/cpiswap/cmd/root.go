package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lugondev/go-cpiswap/internal/common"
	"github.com/lugondev/go-cpiswap/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cpiswap",
	Short: "cpiswap - whitelist-gated swap router for Solana pools",
	Long: `cpiswap routes token swaps to Raydium and Orca Whirlpools pools on behalf
of whitelisted callers.

Commands run the router in process against the configured database, or with
--remote send instructions to a deployed router program.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.cpiswap.yaml or $HOME/.cpiswap.yaml)")
	rootCmd.PersistentFlags().String("rpc", "", "Solana RPC endpoint (overrides the network default)")
	rootCmd.PersistentFlags().String("network", "", "Solana network (mainnet, devnet, testnet, localnet)")
}

func initConfig(cmd *cobra.Command) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("network") {
		loaded.Solana.Network, _ = flags.GetString("network")
		loaded.Solana.RPC = ""
	}
	if flags.Changed("rpc") {
		loaded.Solana.RPC, _ = flags.GetString("rpc")
	}

	slog.SetDefault(common.NewLogger(os.Stderr, loaded.Log))
	cfg = loaded
	return nil
}
