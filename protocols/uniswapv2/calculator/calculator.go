package uniswapv2

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	uniswapv2 "github.com/defistate/defistate-arb-go/protocols/uniswapv2"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// basisPointDivisor is a constant representing 100% in basis points (10000).
	basisPointDivisor = big.NewInt(10000)

	// ErrInvalidAmount is returned when an input/output amount is nil or negative.
	ErrInvalidAmount = errors.New("amount must be non-nil and non-negative")
	// ErrNilAmount is returned when a nil pointer is passed for an amount.
	ErrNilAmount = errors.New("nil pointer passed as amount")
	// ErrTokenMismatch is returned when the specified input/output tokens do not match the pool's tokens.
	ErrTokenMismatch = errors.New("token mismatch")
	// ErrInvalidState is returned for internal calculation errors, like division by zero.
	ErrInvalidState = errors.New("invalid internal state")
	// ErrInvalidFee is returned for a fee at or above 100%.
	ErrInvalidFee = errors.New("fee must be below 10000 bps")
)

// Calculator holds reusable big.Int objects to avoid memory allocations during calculations.
// Instances of this struct are NOT safe for concurrent use by themselves.
// They are intended to be managed by the sync.Pool below.
type Calculator struct {
	feeMultiplier   *big.Int
	amountInWithFee *big.Int
	numerator       *big.Int
	denominator     *big.Int
}

var calculatorPool = sync.Pool{
	New: func() any {
		return &Calculator{
			feeMultiplier:   new(big.Int),
			amountInWithFee: new(big.Int),
			numerator:       new(big.Int),
			denominator:     new(big.Int),
		}
	},
}

// AmountOut applies the constant-product formula to already oriented reserves:
//
//	out = floor(in*(10000-fee)*reserveOut / (reserveIn*10000 + in*(10000-fee)))
//
// Empty reserves yield zero rather than an error.
func AmountOut(amountIn, reserveIn, reserveOut *big.Int, feeBps uint16) (*big.Int, error) {
	calc := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(calc)
	return calc.amountOut(amountIn, reserveIn, reserveOut, feeBps)
}

func (c *Calculator) amountOut(amountIn, reserveIn, reserveOut *big.Int, feeBps uint16) (*big.Int, error) {
	if amountIn == nil {
		return nil, ErrNilAmount
	}
	if amountIn.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if feeBps >= 10000 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFee, feeBps)
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return new(big.Int), nil
	}

	c.feeMultiplier.SetUint64(uint64(10000 - feeBps))
	c.amountInWithFee.Mul(amountIn, c.feeMultiplier)
	c.numerator.Mul(reserveOut, c.amountInWithFee)
	c.denominator.Mul(reserveIn, basisPointDivisor)
	c.denominator.Add(c.denominator, c.amountInWithFee)

	if c.denominator.Sign() == 0 {
		return nil, fmt.Errorf("%w: pool denominator is zero", ErrInvalidState)
	}

	return new(big.Int).Div(c.numerator, c.denominator), nil
}

// GetReserves orients the pool reserves for a tokenIn -> tokenOut swap.
func GetReserves(tokenIn, tokenOut common.Address, pool uniswapv2.Pool) (reserveIn, reserveOut *big.Int, err error) {
	if tokenIn == pool.Token0 && tokenOut == pool.Token1 {
		return pool.Reserve0, pool.Reserve1, nil
	} else if tokenIn == pool.Token1 && tokenOut == pool.Token0 {
		return pool.Reserve1, pool.Reserve0, nil
	}
	return nil, nil, fmt.Errorf("%w: pool %s does not contain the pair %s -> %s", ErrTokenMismatch, pool.Address.Hex(), tokenIn.Hex(), tokenOut.Hex())
}
