package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpiswap/internal/config"
	"github.com/lugondev/go-cpiswap/internal/cpi/cpitest"
	cerrors "github.com/lugondev/go-cpiswap/internal/errors"
	"github.com/lugondev/go-cpiswap/internal/pool"
	"github.com/lugondev/go-cpiswap/internal/program"
	csolana "github.com/lugondev/go-cpiswap/internal/solana"
	"github.com/lugondev/go-cpiswap/internal/storage"
)

func useConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

// testApp shares repo between apps the way separate processes share a database.
func testApp(repo storage.Repository, wallet *csolana.Wallet, inv *cpitest.Invoker) *app {
	a := newApp()
	a.repo = repo
	a.wallet = wallet
	a.invoker = inv
	return a
}

func processWith(t *testing.T, key solana.PublicKey, build func() (*program.Outcome, error)) *program.Outcome {
	t.Helper()
	out, err := build()
	if err != nil {
		t.Fatalf("process with whitelist %s failed: %v", key, err)
	}
	return out
}

func TestWhitelistedUserSwapsLocally(t *testing.T) {
	authority := csolana.NewWallet()
	user := csolana.NewWallet()

	c := config.DefaultConfig()
	c.Program.ProgramID = solana.NewWallet().PublicKey().String()
	c.Program.Authority = authority.PublicKey().String()
	useConfig(t, c)

	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	inv := cpitest.NewInvoker()

	admin := testApp(repo, authority, inv)
	key, err := admin.WhitelistKey()
	if err != nil {
		t.Fatal(err)
	}
	processor, _, err := admin.Processor(ctx, key, false)
	if err != nil {
		t.Fatal(err)
	}
	processWith(t, key, func() (*program.Outcome, error) {
		ix, err := program.NewInitializeInstruction(admin.ProgramID(), key, authority.PublicKey())
		if err != nil {
			return nil, err
		}
		return processor.Process(ctx, ix)
	})
	processWith(t, key, func() (*program.Outcome, error) {
		ix, err := program.NewManageWhitelistInstruction(admin.ProgramID(), key, authority.PublicKey(), user.PublicKey(), true)
		if err != nil {
			return nil, err
		}
		return processor.Process(ctx, ix)
	})

	trader := testApp(repo, user, inv)
	swapKey, err := trader.SwapWhitelistKey()
	if err != nil {
		t.Fatal(err)
	}
	if !swapKey.Equals(key) {
		t.Fatalf("expected the authority's whitelist %s, got %s", key, swapKey)
	}

	processor, _, err = trader.Processor(ctx, swapKey, false)
	if err != nil {
		t.Fatal(err)
	}
	accounts := make([]solana.PublicKey, 14)
	for i := range accounts {
		accounts[i] = solana.NewWallet().PublicKey()
	}
	req := &pool.SwapRequest{
		Caller:           user.PublicKey(),
		Kind:             pool.KindRaydium,
		Source:           solana.NewWallet().PublicKey(),
		Destination:      solana.NewWallet().PublicKey(),
		AmountIn:         10_000,
		MinimumAmountOut: 1,
		Accounts:         accounts,
	}
	raydiumID := solana.MustPublicKeyFromBase58(config.RaydiumAMMProgramID)
	out := processWith(t, swapKey, func() (*program.Outcome, error) {
		ix, err := program.NewSwapOnRaydiumInstruction(trader.ProgramID(), swapKey, raydiumID, req)
		if err != nil {
			return nil, err
		}
		return processor.Process(ctx, ix)
	})
	if out.Swap == nil || inv.CallCount() != 1 {
		t.Fatalf("expected one routed swap, got %+v after %d calls", out.Swap, inv.CallCount())
	}

	outsider := testApp(repo, csolana.NewWallet(), inv)
	processor, _, err = outsider.Processor(ctx, swapKey, false)
	if err != nil {
		t.Fatal(err)
	}
	req.Caller = outsider.wallet.PublicKey()
	ix, err := program.NewSwapOnRaydiumInstruction(outsider.ProgramID(), swapKey, raydiumID, req)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := processor.Process(ctx, ix); !cerrors.Is(err, cerrors.ErrUnauthorized) {
		t.Errorf("expected Unauthorized for a caller not on the list, got %v", err)
	}
}

func TestSwapWhitelistKeyNeedsConfiguredOwner(t *testing.T) {
	useConfig(t, config.DefaultConfig())
	a := testApp(storage.NewMemoryRepository(), csolana.NewWallet(), cpitest.NewInvoker())

	if _, err := a.SwapWhitelistKey(); err == nil {
		t.Fatal("expected an error when neither program.whitelist nor program.authority is set")
	}
	if _, err := a.WhitelistKey(); err != nil {
		t.Errorf("authority commands should derive from the wallet, got %v", err)
	}

	explicit := solana.NewWallet().PublicKey()
	cfg.Program.Whitelist = explicit.String()
	got, err := a.SwapWhitelistKey()
	if err != nil || !got.Equals(explicit) {
		t.Errorf("expected %s, got %s (%v)", explicit, got, err)
	}
}

func TestLocalModeRefusesMemoryBackend(t *testing.T) {
	tests := []struct {
		name    string
		dbType  string
		wantErr bool
	}{
		{name: "default memory", dbType: "memory", wantErr: true},
		{name: "empty type", dbType: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.DefaultConfig()
			c.Database.Type = tt.dbType
			useConfig(t, c)

			a := newApp()
			defer a.Close(context.Background())
			_, _, err := a.Processor(context.Background(), solana.NewWallet().PublicKey(), false)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if err != nil && !strings.Contains(err.Error(), "postgres") {
				t.Errorf("expected the error to name a persistent backend, got %v", err)
			}
		})
	}
}

func TestServeOmitsProcessLocalMetrics(t *testing.T) {
	c := config.DefaultConfig()
	c.Program.Whitelist = solana.NewWallet().PublicKey().String()
	useConfig(t, c)

	a := newApp()
	defer a.Close(context.Background())
	server, err := newAPIServer(context.Background(), a)
	if err != nil {
		t.Fatal(err)
	}

	for path, want := range map[string]int{
		"/health":     http.StatusOK,
		"/v1/pools":   http.StatusOK,
		"/v1/metrics": http.StatusNotFound,
	} {
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != want {
			t.Errorf("GET %s: expected %d, got %d", path, want, rec.Code)
		}
	}
}
