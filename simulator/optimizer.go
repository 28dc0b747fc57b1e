package simulator

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/defistate/defistate-arb-go/protocols/tokenregistry"
)

// Optimizer searches for the input amount that maximizes profit on a route.
// Amount always lies within the optimizer's bracket and Profit is never negative.
type Optimizer interface {
	Optimize(legs []Leg, decimals uint8) (Candidate, error)
}

// Candidate is an evaluated input amount.
type Candidate struct {
	Amount  *big.Int
	Profit  *big.Int
	Outputs []*big.Int

	net *big.Int
}

func evaluate(amount *big.Int, legs []Leg) (Candidate, error) {
	net, outputs, err := NetGain(amount, legs)
	if err != nil {
		return Candidate{}, err
	}
	profit := new(big.Int).Set(net)
	if profit.Sign() < 0 {
		profit.SetUint64(0)
	}
	return Candidate{Amount: amount, Profit: profit, Outputs: outputs, net: net}, nil
}

// StepSearch samples the bracket [MinUnits, MaxUnits] in StepUnits increments,
// all in whole start-token units, and keeps the sample with the highest net
// gain. Equal gains keep the smaller amount.
type StepSearch struct {
	MinUnits  int64
	MaxUnits  int64
	StepUnits int64
}

// DefaultStepSearch samples 1,000 to 100,000 units in 1,000 unit steps.
func DefaultStepSearch() StepSearch {
	return StepSearch{MinUnits: 1_000, MaxUnits: 100_000, StepUnits: 1_000}
}

func (s StepSearch) validate() error {
	if s.MinUnits <= 0 || s.MaxUnits < s.MinUnits {
		return fmt.Errorf("step search: invalid bracket [%d, %d]", s.MinUnits, s.MaxUnits)
	}
	if s.StepUnits <= 0 {
		return errors.New("step search: step must be positive")
	}
	return nil
}

func (s StepSearch) Optimize(legs []Leg, decimals uint8) (Candidate, error) {
	if err := s.validate(); err != nil {
		return Candidate{}, err
	}
	unit := tokenregistry.GetScaledDecimal(decimals)
	step := new(big.Int).Mul(big.NewInt(s.StepUnits), unit)
	hi := tokenregistry.Units(s.MaxUnits, decimals)

	var best Candidate
	for amount := tokenregistry.Units(s.MinUnits, decimals); amount.Cmp(hi) <= 0; amount = new(big.Int).Add(amount, step) {
		c, err := evaluate(amount, legs)
		if err != nil {
			return Candidate{}, err
		}
		if best.Amount == nil || c.net.Cmp(best.net) > 0 {
			best = c
		}
	}
	return best, nil
}

// goldenRatioPPM is 1/phi in parts per million.
var goldenRatioPPM = big.NewInt(618_034)

var ppm = big.NewInt(1_000_000)

// GoldenSection narrows [MinUnits, MaxUnits] for a fixed number of iterations
// and returns the bracket midpoint. Interior points compare unclamped net gain.
type GoldenSection struct {
	MinUnits   int64
	MaxUnits   int64
	Iterations int
}

// DefaultGoldenSection searches 1 to 1,000,000 units over 100 iterations.
func DefaultGoldenSection() GoldenSection {
	return GoldenSection{MinUnits: 1, MaxUnits: 1_000_000, Iterations: 100}
}

func (g GoldenSection) Optimize(legs []Leg, decimals uint8) (Candidate, error) {
	if g.MinUnits <= 0 || g.MaxUnits < g.MinUnits {
		return Candidate{}, fmt.Errorf("golden section: invalid bracket [%d, %d]", g.MinUnits, g.MaxUnits)
	}
	lo := tokenregistry.Units(g.MinUnits, decimals)
	hi := tokenregistry.Units(g.MaxUnits, decimals)

	width := new(big.Int)
	shift := new(big.Int)
	for i := 0; i < g.Iterations; i++ {
		width.Sub(hi, lo)
		shift.Mul(width, goldenRatioPPM)
		shift.Quo(shift, ppm)
		if shift.Sign() == 0 {
			break
		}
		c := new(big.Int).Sub(hi, shift)
		d := new(big.Int).Add(lo, shift)

		gc, _, err := NetGain(c, legs)
		if err != nil {
			return Candidate{}, err
		}
		gd, _, err := NetGain(d, legs)
		if err != nil {
			return Candidate{}, err
		}
		if gc.Cmp(gd) > 0 {
			hi = d
		} else {
			lo = c
		}
	}

	mid := new(big.Int).Add(lo, hi)
	mid.Rsh(mid, 1)
	return evaluate(mid, legs)
}

// CrossCheck runs both optimizers and keeps the more profitable answer,
// preferring Primary on a tie.
type CrossCheck struct {
	Primary   Optimizer
	Secondary Optimizer
}

func (x CrossCheck) Optimize(legs []Leg, decimals uint8) (Candidate, error) {
	a, err := x.Primary.Optimize(legs, decimals)
	if err != nil {
		return Candidate{}, err
	}
	b, err := x.Secondary.Optimize(legs, decimals)
	if err != nil {
		return Candidate{}, err
	}
	if b.Profit.Cmp(a.Profit) > 0 {
		return b, nil
	}
	return a, nil
}

// Optimizer names accepted by OptimizerByName.
const (
	OptimizerStep       = "step"
	OptimizerGolden     = "golden"
	OptimizerCrossCheck = "crosscheck"
)

// OptimizerByName returns the default-bracket optimizer for name. An empty
// name selects step search.
func OptimizerByName(name string) (Optimizer, error) {
	switch name {
	case "", OptimizerStep:
		return DefaultStepSearch(), nil
	case OptimizerGolden:
		return DefaultGoldenSection(), nil
	case OptimizerCrossCheck:
		return CrossCheck{Primary: DefaultStepSearch(), Secondary: DefaultGoldenSection()}, nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", name)
	}
}
