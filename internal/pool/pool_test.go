package pool_test

import (
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpiswap/internal/errors"
	"github.com/lugondev/go-cpiswap/internal/pool"
	"github.com/lugondev/go-cpiswap/pkg/types"
)

type stubAdapter struct {
	name string
	id   solana.PublicKey
}

func (s *stubAdapter) Name() string                { return s.name }
func (s *stubAdapter) Kind() pool.Kind             { return pool.Kind(s.name) }
func (s *stubAdapter) ProgramID() solana.PublicKey { return s.id }
func (s *stubAdapter) AccountNames() []string      { return []string{"pool"} }
func (s *stubAdapter) Validate(*pool.SwapRequest) error {
	return nil
}
func (s *stubAdapter) BuildSwap(*pool.SwapRequest) (*types.Instruction, error) {
	return &types.Instruction{ProgramID: s.id}, nil
}

func TestRegistryLookup(t *testing.T) {
	a := &stubAdapter{name: "b", id: solana.NewWallet().PublicKey()}
	b := &stubAdapter{name: "a", id: solana.NewWallet().PublicKey()}

	reg, err := pool.NewRegistry(a, b)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	got, err := reg.Lookup(a.id)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got != a {
		t.Errorf("expected adapter %s, got %s", a.Name(), got.Name())
	}

	_, err = reg.Lookup(solana.NewWallet().PublicKey())
	if !errors.Is(err, errors.ErrUnknownPool) {
		t.Errorf("expected UnknownPool, got %v", err)
	}

	list := reg.Adapters()
	if len(list) != 2 || list[0].Name() != "a" || list[1].Name() != "b" {
		t.Errorf("expected adapters sorted by name, got %v", list)
	}
}

func TestRegistryRejectsDuplicateProgram(t *testing.T) {
	id := solana.NewWallet().PublicKey()
	_, err := pool.NewRegistry(&stubAdapter{name: "x", id: id}, &stubAdapter{name: "y", id: id})
	if err == nil {
		t.Fatal("expected error for duplicate program id")
	}
}

func TestRequireAccounts(t *testing.T) {
	names := []string{"one", "two", "three"}
	set := solana.NewWallet().PublicKey()

	tests := []struct {
		name     string
		accounts []solana.PublicKey
		required int
		wantErr  bool
	}{
		{name: "all set", accounts: []solana.PublicKey{set, set, set}, required: 3},
		{name: "optional tail unset", accounts: []solana.PublicKey{set, {}, {}}, required: 1},
		{name: "required unset", accounts: []solana.PublicKey{set, {}, set}, required: 2, wantErr: true},
		{name: "short", accounts: []solana.PublicKey{set, set}, required: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pool.RequireAccounts("test", names, tt.accounts, tt.required)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if err != nil && !errors.Is(err, errors.ErrInvalidAccounts) {
				t.Errorf("expected InvalidAccounts, got %v", err)
			}
		})
	}
}

func TestTokenProgramOrDefault(t *testing.T) {
	req := &pool.SwapRequest{}
	if !req.TokenProgramOrDefault().Equals(solana.TokenProgramID) {
		t.Errorf("expected SPL token program by default")
	}
	custom := solana.NewWallet().PublicKey()
	req.TokenProgram = custom
	if !req.TokenProgramOrDefault().Equals(custom) {
		t.Errorf("expected %s, got %s", custom, req.TokenProgramOrDefault())
	}
}
