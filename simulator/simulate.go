package simulator

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/defistate/defistate-arb-go/engine"
	"github.com/defistate/defistate-arb-go/protocols/uniswapv2"
	uniswapv2calculator "github.com/defistate/defistate-arb-go/protocols/uniswapv2/calculator"
)

var (
	// ErrNoLegs is returned when simulating an empty route.
	ErrNoLegs = errors.New("route has no legs")
)

// Leg is one hop's reserves, oriented in the swap direction, and its fee.
type Leg struct {
	Reserves engine.Reserves
	FeeBps   uint16
}

// AmountOut is the constant-product output at the standard 0.3% fee.
func AmountOut(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	return uniswapv2calculator.AmountOut(amountIn, reserveIn, reserveOut, uniswapv2.DefaultFeeBps)
}

// Simulate swaps amountIn through every leg in order, feeding each output into
// the next leg. Profit is the final output minus amountIn, clamped at zero.
func Simulate(amountIn *big.Int, legs []Leg) (profit *big.Int, outputs []*big.Int, err error) {
	net, outputs, err := NetGain(amountIn, legs)
	if err != nil {
		return nil, nil, err
	}
	if net.Sign() < 0 {
		net.SetUint64(0)
	}
	return net, outputs, nil
}

// NetGain is Simulate without the clamp: the final output minus amountIn,
// negative for a losing route.
func NetGain(amountIn *big.Int, legs []Leg) (*big.Int, []*big.Int, error) {
	if len(legs) == 0 {
		return nil, nil, ErrNoLegs
	}
	outputs := make([]*big.Int, len(legs))
	amount := amountIn
	for i, leg := range legs {
		out, err := uniswapv2calculator.AmountOut(amount, leg.Reserves.In, leg.Reserves.Out, leg.FeeBps)
		if err != nil {
			return nil, nil, fmt.Errorf("leg %d: %w", i, err)
		}
		outputs[i] = out
		amount = out
	}
	return new(big.Int).Sub(amount, amountIn), outputs, nil
}

// ApplySlippage returns out reduced by slippageBps basis points, rounded down.
func ApplySlippage(out *big.Int, slippageBps uint16) *big.Int {
	minOut := new(big.Int).Mul(out, big.NewInt(int64(10000-int(slippageBps))))
	return minOut.Quo(minOut, big.NewInt(10000))
}
