package tokenregistry

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ten = big.NewInt(10)

	// precomputed 10^dec for typical ERC20 decimals (0..18)
	precomputedScales [19]*big.Int
)

func init() {
	precomputedScales[0] = big.NewInt(1)
	for i := 1; i < len(precomputedScales); i++ {
		precomputedScales[i] = new(big.Int).Mul(precomputedScales[i-1], ten)
	}
}

// GetScaledDecimal returns 10^dec. It returns a *big.Int that MUST NOT be modified.
func GetScaledDecimal(dec uint8) *big.Int {
	if int(dec) < len(precomputedScales) {
		return precomputedScales[dec]
	}
	return new(big.Int).Exp(ten, big.NewInt(int64(dec)), nil)
}

// Units returns whole * 10^dec as a fresh value.
func Units(whole int64, dec uint8) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), GetScaledDecimal(dec))
}

// ParseUnits converts a human-readable amount such as "10.5" into base units.
// Digits beyond the token precision are truncated.
func ParseUnits(value string, dec uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", value, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("parse amount %q: negative", value)
	}
	return d.Shift(int32(dec)).Truncate(0).BigInt(), nil
}

// FormatUnits renders base units as a decimal string in whole-token terms.
func FormatUnits(amount *big.Int, dec uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(dec)).String()
}
