package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpiswap/internal/access"
	"github.com/lugondev/go-cpiswap/internal/cpi"
	"github.com/lugondev/go-cpiswap/internal/metrics"
	"github.com/lugondev/go-cpiswap/internal/pool"
	"github.com/lugondev/go-cpiswap/internal/pool/raydium"
	"github.com/lugondev/go-cpiswap/internal/pool/whirlpools"
	"github.com/lugondev/go-cpiswap/internal/program"
	"github.com/lugondev/go-cpiswap/internal/router"
	csolana "github.com/lugondev/go-cpiswap/internal/solana"
	"github.com/lugondev/go-cpiswap/internal/storage"
	"github.com/lugondev/go-cpiswap/internal/whitelist"
	"github.com/lugondev/go-cpiswap/pkg/types"

	_ "github.com/lugondev/go-cpiswap/internal/storage/mongo"
	_ "github.com/lugondev/go-cpiswap/internal/storage/mysql"
	_ "github.com/lugondev/go-cpiswap/internal/storage/postgres"
)

// whitelistSeed is the PDA seed used when program.whitelist is not configured.
const whitelistSeed = "whitelist"

// app holds the components one command needs. Fields are filled lazily so a
// read-only command never dials the RPC node and a remote command never opens
// the database.
type app struct {
	conns   *storage.ConnectionManager
	repo    storage.Repository
	store   *whitelist.Store
	metrics *metrics.LogMetrics

	client  *csolana.Client
	wallet  *csolana.Wallet
	invoker cpi.Invoker
}

func newApp() *app {
	return &app{
		conns:   storage.NewConnectionManager(&cfg.Database),
		metrics: metrics.NewLogMetrics(nil),
	}
}

func (a *app) Close(ctx context.Context) {
	_ = a.metrics.Shutdown(ctx)
	_ = a.conns.Close()
}

func (a *app) Repository(ctx context.Context) (storage.Repository, error) {
	if a.repo != nil {
		return a.repo, nil
	}
	repo, err := a.conns.Connect(ctx)
	if err != nil {
		return nil, err
	}
	a.repo = repo
	return repo, nil
}

func (a *app) Store(ctx context.Context) (*whitelist.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	repo, err := a.Repository(ctx)
	if err != nil {
		return nil, err
	}
	a.store = whitelist.NewStore(repo.Records(), cfg.Program.MaxWhitelistSize).WithMetrics(a.metrics)
	return a.store, nil
}

func (a *app) Client() *csolana.Client {
	if a.client == nil {
		a.client = csolana.NewClient(cfg.Solana.GetRPCEndpoint(),
			csolana.WithWebsocket(cfg.Solana.GetWSEndpoint()),
			csolana.WithCommitment(cfg.Solana.Commitment),
		)
	}
	return a.client
}

func (a *app) Wallet() (*csolana.Wallet, error) {
	if a.wallet != nil {
		return a.wallet, nil
	}
	w, err := csolana.WalletFromFile(cfg.Wallet.KeypairPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet %s: %w", cfg.Wallet.KeypairPath, err)
	}
	a.wallet = w
	return w, nil
}

// Invoker signs with the configured wallet. With simulate set nothing lands.
func (a *app) Invoker(simulate bool) (cpi.Invoker, error) {
	if a.invoker != nil {
		return a.invoker, nil
	}
	w, err := a.Wallet()
	if err != nil {
		return nil, err
	}
	if simulate {
		inv := cpi.NewSimulateInvoker(a.Client(), w.PrivateKey())
		return inv, nil
	}
	return cpi.NewRPCInvoker(a.Client(), w.PrivateKey()), nil
}

func (a *app) Registry() (*pool.Registry, error) {
	raydiumID, err := solana.PublicKeyFromBase58(cfg.Program.RaydiumProgramID)
	if err != nil {
		return nil, fmt.Errorf("invalid raydium program id: %w", err)
	}
	whirlpoolsID, err := solana.PublicKeyFromBase58(cfg.Program.WhirlpoolsProgramID)
	if err != nil {
		return nil, fmt.Errorf("invalid whirlpools program id: %w", err)
	}
	return pool.NewRegistry(raydium.New(raydiumID), whirlpools.New(whirlpoolsID))
}

func (a *app) ProgramID() solana.PublicKey {
	if cfg.Program.ProgramID == "" {
		return solana.PublicKey{}
	}
	return solana.MustPublicKeyFromBase58(cfg.Program.ProgramID)
}

// WhitelistKey is program.whitelist, or the PDA ["whitelist", authority]
// under the router program. The authority is program.authority, falling back
// to the wallet for commands the authority itself runs.
func (a *app) WhitelistKey() (solana.PublicKey, error) {
	if cfg.Program.Whitelist != "" || cfg.Program.Authority != "" {
		return a.configuredWhitelistKey()
	}
	w, err := a.Wallet()
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("program.whitelist is not set and no wallet to derive it from: %w", err)
	}
	return a.deriveWhitelistKey(w.PublicKey())
}

// SwapWhitelistKey resolves the whitelist a swap is checked against. The
// caller is usually not the authority, so the wallet is never used to derive it.
func (a *app) SwapWhitelistKey() (solana.PublicKey, error) {
	if cfg.Program.Whitelist == "" && cfg.Program.Authority == "" {
		return solana.PublicKey{}, fmt.Errorf("swaps need program.whitelist or program.authority to locate the whitelist")
	}
	return a.configuredWhitelistKey()
}

func (a *app) configuredWhitelistKey() (solana.PublicKey, error) {
	if cfg.Program.Whitelist != "" {
		return solana.MustPublicKeyFromBase58(cfg.Program.Whitelist), nil
	}
	return a.deriveWhitelistKey(solana.MustPublicKeyFromBase58(cfg.Program.Authority))
}

func (a *app) deriveWhitelistKey(authority solana.PublicKey) (solana.PublicKey, error) {
	key, _, err := solana.FindProgramAddress([][]byte{[]byte(whitelistSeed), authority.Bytes()}, a.ProgramID())
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive whitelist address: %w", err)
	}
	return key, nil
}

// LocalRepository is Repository for commands that run the router in process.
// Their whitelist must survive between invocations, so the memory backend is
// refused.
func (a *app) LocalRepository(ctx context.Context) (storage.Repository, error) {
	if a.repo == nil && !storage.DatabaseType(cfg.Database.Type).Persistent() {
		return nil, fmt.Errorf("database.type %q does not outlive the command; "+
			"configure postgres, mysql or mongodb, or pass --remote", cfg.Database.Type)
	}
	return a.Repository(ctx)
}

// Processor runs router instructions in process against whitelist key: state
// lives in the configured database and swaps are sent straight to the pool
// program.
func (a *app) Processor(ctx context.Context, key solana.PublicKey, simulate bool) (*program.Processor, *router.Router, error) {
	repo, err := a.LocalRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	store, err := a.Store(ctx)
	if err != nil {
		return nil, nil, err
	}
	registry, err := a.Registry()
	if err != nil {
		return nil, nil, err
	}

	var inv cpi.Invoker = lazyInvoker{app: a, simulate: simulate}
	r := router.New(access.NewGate(store), registry, inv, key,
		router.WithJournal(repo.Swaps()),
		router.WithMetrics(a.metrics),
	)
	return program.NewProcessor(a.ProgramID(), store, r), r, nil
}

// RemoteClient sends instructions for whitelist key to the deployed router
// program.
func (a *app) RemoteClient(key solana.PublicKey, simulate bool) (*program.Client, error) {
	if cfg.Program.ProgramID == "" {
		return nil, fmt.Errorf("program.program_id must be set for --remote")
	}
	inv, err := a.Invoker(simulate)
	if err != nil {
		return nil, err
	}
	return program.NewClient(inv, a.ProgramID(), key), nil
}

// lazyInvoker builds the signing invoker on first use, so whitelist commands
// never create one.
type lazyInvoker struct {
	app      *app
	simulate bool
}

func (l lazyInvoker) Invoke(ctx context.Context, ix *types.Instruction) (*cpi.Result, error) {
	inv, err := l.app.Invoker(l.simulate)
	if err != nil {
		return nil, err
	}
	return inv.Invoke(ctx, ix)
}

func commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	if cfg.Solana.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, time.Duration(cfg.Solana.Timeout)*time.Second)
}
