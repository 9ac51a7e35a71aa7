package domain

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"
)

var maxAmount = decimal.NewFromBigInt(new(big.Int).SetUint64(^uint64(0)), 0)

// AmountToDecimal converts base units to an exact decimal
func AmountToDecimal(amount uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), 0)
}

// DecimalToAmount converts an integral, non-negative decimal back to base units
func DecimalToAmount(d decimal.Decimal) (uint64, error) {
	if d.IsNegative() || !d.Equal(d.Truncate(0)) || d.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("%w: %s is not a valid base-unit amount", ErrAmountOverflow, d.String())
	}
	return d.BigInt().Uint64(), nil
}

// UIAmount scales base units by the mint decimals
func UIAmount(amount uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
}

// FormatUIAmount renders base units as a fixed-point string, e.g. 1500000 with 6 decimals is "1.500000"
func FormatUIAmount(amount uint64, decimals uint8) string {
	return UIAmount(amount, decimals).StringFixed(int32(decimals))
}

// ParseAmount parses a base-unit amount given as a decimal string
func ParseAmount(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

// FormatAmounts renders base-unit amounts as decimal strings
func FormatAmounts(amounts []uint64) []string {
	out := make([]string, len(amounts))
	for i, a := range amounts {
		out[i] = strconv.FormatUint(a, 10)
	}
	return out
}
