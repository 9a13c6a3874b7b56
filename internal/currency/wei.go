package currency

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals is the scale of the chain's native currency: 1 unit = 10^18 wei.
const Decimals = 18

var zero = new(big.Int)

// ToBaseUnits converts a display-unit decimal string ("1.5") to wei.
// The conversion is exact; amounts with more than 18 fractional digits
// are rejected rather than rounded.
func ToBaseUnits(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	scaled := d.Shift(Decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %q has more than %d decimal places", s, Decimals)
	}
	return scaled.BigInt(), nil
}

// ToPositiveBaseUnits is ToBaseUnits restricted to strictly positive amounts.
func ToPositiveBaseUnits(s string) (*big.Int, error) {
	wei, err := ToBaseUnits(s)
	if err != nil {
		return nil, err
	}
	if wei.Cmp(zero) <= 0 {
		return nil, fmt.Errorf("amount must be greater than 0")
	}
	return wei, nil
}

// FormatBaseUnits renders wei as a display-unit decimal string without
// going through floating point, so values beyond 2^53 stay exact.
func FormatBaseUnits(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -Decimals).String()
}
