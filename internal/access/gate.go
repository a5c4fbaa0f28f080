// Package access decides whether a signer may route a swap.
package access

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpiswap/internal/common"
	"github.com/lugondev/go-cpiswap/internal/errors"
	"github.com/lugondev/go-cpiswap/internal/whitelist"
)

// WhitelistReader loads a whitelist record by key.
type WhitelistReader interface {
	Load(ctx context.Context, key solana.PublicKey) (*whitelist.Whitelist, error)
}

// Gate fails closed: anything other than a readable, unpaused whitelist that
// lists the caller is a rejection.
type Gate struct {
	common.LoggerMixin
	reader WhitelistReader
}

func NewGate(reader WhitelistReader) *Gate {
	return &Gate{
		LoggerMixin: common.NewLoggerMixin(),
		reader:      reader,
	}
}

// Authorize returns nil only when caller is listed on the whitelist at key and
// swaps are not paused. Lookup failures surface as Unauthorized with the
// original error attached as the cause.
func (g *Gate) Authorize(ctx context.Context, caller, key solana.PublicKey) error {
	if caller.IsZero() {
		return errors.Unauthorized(caller.String(), "missing signer")
	}

	w, err := g.reader.Load(ctx, key)
	if err != nil {
		g.GetLogger().Warn("whitelist lookup failed", "whitelist", key, "caller", caller, "error", err)
		return errors.Unauthorized(caller.String(), "whitelist unavailable").WithCause(err)
	}

	if !w.Contains(caller) {
		return errors.Unauthorized(caller.String(), "not whitelisted")
	}
	if w.Paused {
		return errors.Paused(key.String())
	}
	return nil
}
