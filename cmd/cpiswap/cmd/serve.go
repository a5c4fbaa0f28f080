package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lugondev/go-cpiswap/internal/api"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only HTTP API",
	Long: `Serve the whitelist, the swap journal and the registered pools over HTTP
until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a := newApp()
		defer a.Close(context.Background())

		server, err := newAPIServer(ctx, a)
		if err != nil {
			return err
		}

		listen := cfg.API.Listen
		if serveListen != "" {
			listen = serveListen
		}

		server.Start(listen)
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Stop(shutdownCtx)
	},
}

// newAPIServer serves what the configured database holds. Counters from other
// cpiswap processes never reach this one, so /v1/metrics is not mounted.
func newAPIServer(ctx context.Context, a *app) (*api.Server, error) {
	store, err := a.Store(ctx)
	if err != nil {
		return nil, err
	}
	repo, err := a.Repository(ctx)
	if err != nil {
		return nil, err
	}
	registry, err := a.Registry()
	if err != nil {
		return nil, err
	}
	key, err := a.WhitelistKey()
	if err != nil {
		return nil, err
	}
	return api.NewServer(store, key, repo.Swaps(), registry), nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (overrides api.listen)")
}
