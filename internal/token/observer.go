package token

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// BalanceReader reads SPL token account balances. *solana.Client from
// internal/solana satisfies it.
type BalanceReader interface {
	GetTokenBalance(ctx context.Context, account solana.PublicKey) (amount string, decimals uint8, err error)
}

// Balance is one token account balance in base units.
type Balance struct {
	Account  solana.PublicKey
	Amount   uint64
	Decimals uint8
}

func (b Balance) String() string {
	return FormatAmount(b.Amount, b.Decimals)
}

// Change is the before and after balance of one account.
type Change struct {
	Before Balance
	After  Balance
}

// Delta is After minus Before in display units; negative when the account paid.
func (c Change) Delta() decimal.Decimal {
	before := decimal.NewFromBigInt(bigOf(c.Before.Amount), -int32(c.Before.Decimals))
	after := decimal.NewFromBigInt(bigOf(c.After.Amount), -int32(c.After.Decimals))
	return after.Sub(before)
}

// Observer snapshots a set of token accounts so their change across a swap
// can be reported. Balances move inside the pool program; the observer only
// reads them.
type Observer struct {
	reader   BalanceReader
	accounts []solana.PublicKey
	before   map[solana.PublicKey]Balance
}

func NewObserver(reader BalanceReader, accounts ...solana.PublicKey) *Observer {
	return &Observer{reader: reader, accounts: accounts}
}

// Snapshot records the current balances. It must be called before Changes.
func (o *Observer) Snapshot(ctx context.Context) error {
	before := make(map[solana.PublicKey]Balance, len(o.accounts))
	for _, account := range o.accounts {
		b, err := o.read(ctx, account)
		if err != nil {
			return err
		}
		before[account] = b
	}
	o.before = before
	return nil
}

// Changes reads the balances again and pairs them with the snapshot, in the
// order the accounts were given.
func (o *Observer) Changes(ctx context.Context) ([]Change, error) {
	if o.before == nil {
		return nil, fmt.Errorf("no snapshot taken")
	}
	changes := make([]Change, 0, len(o.accounts))
	for _, account := range o.accounts {
		after, err := o.read(ctx, account)
		if err != nil {
			return nil, err
		}
		changes = append(changes, Change{Before: o.before[account], After: after})
	}
	return changes, nil
}

func (o *Observer) read(ctx context.Context, account solana.PublicKey) (Balance, error) {
	raw, decimals, err := o.reader.GetTokenBalance(ctx, account)
	if err != nil {
		return Balance{}, err
	}
	amount, err := ParseBaseUnits(raw)
	if err != nil {
		return Balance{}, err
	}
	return Balance{Account: account, Amount: amount, Decimals: decimals}, nil
}
