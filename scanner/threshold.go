package scanner

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ProfitThreshold is the minimum profit an opportunity must exceed, expressed
// in whole start-token units and scaled by the token's decimals at use.
type ProfitThreshold struct {
	Default  decimal.Decimal
	PerToken map[common.Address]decimal.Decimal
}

// ParseProfitThreshold parses the default and per-token minimums.
func ParseProfitThreshold(def string, perToken map[common.Address]string) (ProfitThreshold, error) {
	t := ProfitThreshold{PerToken: make(map[common.Address]decimal.Decimal, len(perToken))}
	if def == "" {
		def = "0"
	}
	d, err := decimal.NewFromString(def)
	if err != nil {
		return ProfitThreshold{}, fmt.Errorf("min profit %q: %w", def, err)
	}
	if d.IsNegative() {
		return ProfitThreshold{}, fmt.Errorf("min profit %q is negative", def)
	}
	t.Default = d
	for token, v := range perToken {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return ProfitThreshold{}, fmt.Errorf("min profit for %s %q: %w", token.Hex(), v, err)
		}
		if d.IsNegative() {
			return ProfitThreshold{}, fmt.Errorf("min profit for %s %q is negative", token.Hex(), v)
		}
		t.PerToken[token] = d
	}
	return t, nil
}

// For returns the threshold for token in base units.
func (t ProfitThreshold) For(token common.Address, decimals uint8) *big.Int {
	d, ok := t.PerToken[token]
	if !ok {
		d = t.Default
	}
	return d.Shift(int32(decimals)).Truncate(0).BigInt()
}
