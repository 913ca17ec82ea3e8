package chain

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatUnits converts a base-unit integer into a human decimal string,
// scoped by the token's decimals.
func FormatUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

// ParseUnits converts a human decimal string into base units. Fractional
// digits beyond the token's precision are truncated.
func ParseUnits(amount string, decimals int) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", amount)
	}
	return d.Shift(int32(decimals)).Truncate(0).BigInt(), nil
}
