// Package token converts SPL token amounts between base units and display
// values and observes token account balances around a swap.
package token

import (
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/lugondev/go-cpiswap/internal/errors"
)

// FormatAmount renders base units as a decimal string with the given number
// of decimals, e.g. 1500000 with 6 decimals is "1.5".
func FormatAmount(amount uint64, decimals uint8) string {
	return decimal.NewFromBigInt(bigOf(amount), -int32(decimals)).String()
}

// ParseAmount converts a display value such as "1.5" into base units. Values
// with more fractional digits than decimals, negatives and values above
// MaxUint64 are rejected with InvalidAmount.
func ParseAmount(s string, decimals uint8) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.InvalidAmount(fmt.Sprintf("cannot parse amount %q", s))
	}
	if d.IsNegative() {
		return 0, errors.InvalidAmount(fmt.Sprintf("amount %s is negative", s))
	}

	base := d.Shift(int32(decimals))
	if !base.Equal(base.Truncate(0)) {
		return 0, errors.InvalidAmount(fmt.Sprintf("amount %s has more than %d decimals", s, decimals))
	}
	if base.GreaterThan(decimal.NewFromBigInt(bigOf(math.MaxUint64), 0)) {
		return 0, errors.InvalidAmount(fmt.Sprintf("amount %s overflows u64", s))
	}
	return base.BigInt().Uint64(), nil
}

// ParseBaseUnits parses the raw amount string the RPC returns for a token account.
func ParseBaseUnits(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token amount %q: %w", s, err)
	}
	return v, nil
}

func bigOf(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}
