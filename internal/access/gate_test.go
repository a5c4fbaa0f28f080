package access

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpiswap/internal/errors"
	"github.com/lugondev/go-cpiswap/internal/storage"
	"github.com/lugondev/go-cpiswap/internal/whitelist"
)

type failingReader struct{ err error }

func (f failingReader) Load(context.Context, solana.PublicKey) (*whitelist.Whitelist, error) {
	return nil, f.err
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	store := whitelist.NewStore(storage.NewMemoryRepository().Records(), 10)
	store.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	key := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()
	member := solana.NewWallet().PublicKey()
	outsider := solana.NewWallet().PublicKey()

	store.Initialize(ctx, key, authority)
	store.Manage(ctx, key, authority, member, true)

	gate := NewGate(store)
	gate.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	tests := []struct {
		name   string
		caller solana.PublicKey
		key    solana.PublicKey
		want   error
	}{
		{name: "member", caller: member, key: key},
		{name: "outsider", caller: outsider, key: key, want: errors.ErrUnauthorized},
		{name: "authority is not implicitly a user", caller: authority, key: key, want: errors.ErrUnauthorized},
		{name: "missing whitelist", caller: member, key: solana.NewWallet().PublicKey(), want: errors.ErrUnauthorized},
		{name: "zero signer", caller: solana.PublicKey{}, key: key, want: errors.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.Authorize(ctx, tt.caller, tt.key)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	store.SetPaused(ctx, key, authority, true)
	if err := gate.Authorize(ctx, member, key); !errors.Is(err, errors.ErrPaused) {
		t.Errorf("expected ErrPaused while paused, got %v", err)
	}
	if err := gate.Authorize(ctx, outsider, key); !errors.Is(err, errors.ErrUnauthorized) {
		t.Errorf("outsider must stay Unauthorized while paused, got %v", err)
	}
}

func TestAuthorizeFailsClosedOnReadError(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	gate := NewGate(failingReader{err: cause})
	gate.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := gate.Authorize(context.Background(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	if !errors.Is(err, errors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be attached")
	}
}
