package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpiswap/internal/config"
	"github.com/lugondev/go-cpiswap/internal/pool"
	"github.com/lugondev/go-cpiswap/internal/pool/whirlpools"
)

func TestBuildSwapRequestFromPreset(t *testing.T) {
	whirlpool := solana.NewWallet().PublicKey()
	vaultA := solana.NewWallet().PublicKey()
	vaultB := solana.NewWallet().PublicKey()
	tick := solana.NewWallet().PublicKey()

	path := filepath.Join(t.TempDir(), "pools.yaml")
	content := "pools:\n" +
		"  - name: sol-usdc\n" +
		"    kind: whirlpools\n" +
		"    accounts:\n" +
		"      whirlpool: " + whirlpool.String() + "\n" +
		"      token_vault_a: " + vaultA.String() + "\n" +
		"      token_vault_b: " + vaultB.String() + "\n" +
		"      tick_array_0: " + tick.String() + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg = config.DefaultConfig()
	cfg.Pools.PresetsFile = path
	swapFlags.pool = "sol-usdc"
	swapFlags.source = solana.NewWallet().PublicKey().String()
	swapFlags.destination = solana.NewWallet().PublicKey().String()
	swapFlags.amount = "1.5"
	swapFlags.inDecimals = 6
	swapFlags.minOut = "100"
	swapFlags.bToA = true
	t.Cleanup(func() { swapFlags = swapOptions{} })

	caller := solana.NewWallet().PublicKey()
	req, program, err := buildSwapRequest(newApp(), pool.KindWhirlpools, caller)
	if err != nil {
		t.Fatalf("buildSwapRequest failed: %v", err)
	}

	if !program.Equals(whirlpools.ProgramID) {
		t.Errorf("expected whirlpools program, got %s", program)
	}
	if req.AmountIn != 1_500_000 {
		t.Errorf("expected 1500000 base units, got %d", req.AmountIn)
	}
	if req.MinimumAmountOut != 100 {
		t.Errorf("expected min out 100, got %d", req.MinimumAmountOut)
	}
	if req.AToB {
		t.Error("expected --b-to-a to clear AToB")
	}
	if len(req.Accounts) != 7 || !req.Accounts[0].Equals(whirlpool) || !req.Accounts[3].Equals(tick) {
		t.Errorf("unexpected accounts %v", req.Accounts)
	}
	if !req.Accounts[6].IsZero() {
		t.Errorf("expected oracle left for the adapter to derive, got %s", req.Accounts[6])
	}
}
