package engine

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInvalidPath is returned for a path that is not a simple cycle.
	ErrInvalidPath = errors.New("invalid path")
)

// Reserves are the two pool balances oriented in the swap direction:
// In is the balance of the token being sold, Out of the token being bought.
type Reserves struct {
	In  *big.Int `json:"in"`
	Out *big.Int `json:"out"`
}

// Valid reports whether both legs are strictly positive.
func (r Reserves) Valid() bool {
	return r.In != nil && r.Out != nil && r.In.Sign() > 0 && r.Out.Sign() > 0
}

// Product returns In*Out, the depth measure used to pick the deepest pool.
func (r Reserves) Product() *big.Int {
	if !r.Valid() {
		return new(big.Int)
	}
	return new(big.Int).Mul(r.In, r.Out)
}

// GeometricMean returns floor(sqrt(In*Out)).
func (r Reserves) GeometricMean() *big.Int {
	return new(big.Int).Sqrt(r.Product())
}

// Quote is one DEX's view of a pair.
type Quote struct {
	Dex      string         `json:"dex"`
	Pair     common.Address `json:"pair"`
	Reserves Reserves       `json:"reserves"`
}

// Hop is a single swap of a path, assigned to a specific DEX.
type Hop struct {
	TokenIn  common.Address `json:"tokenIn"`
	TokenOut common.Address `json:"tokenOut"`
	Dex      string         `json:"dex"`
}

// Path is an ordered cycle of hops that starts and ends at the same token.
type Path struct {
	Hops []Hop `json:"hops"`
	// Liquidity is the ranking score, nil until the path has been ranked.
	Liquidity *big.Int `json:"liquidity,omitempty"`
}

// Start returns the token the cycle starts and ends at.
func (p Path) Start() common.Address {
	if len(p.Hops) == 0 {
		return common.Address{}
	}
	return p.Hops[0].TokenIn
}

// Tokens returns the visited tokens, start token included at both ends.
func (p Path) Tokens() []common.Address {
	if len(p.Hops) == 0 {
		return nil
	}
	out := make([]common.Address, 0, len(p.Hops)+1)
	out = append(out, p.Hops[0].TokenIn)
	for _, h := range p.Hops {
		out = append(out, h.TokenOut)
	}
	return out
}

// Validate checks that hops are chained, the cycle closes on the start token
// and no intermediate token repeats.
func (p Path) Validate() error {
	if len(p.Hops) < 2 {
		return fmt.Errorf("%w: %d hops", ErrInvalidPath, len(p.Hops))
	}
	start := p.Start()
	seen := make(map[common.Address]struct{}, len(p.Hops))
	for i, h := range p.Hops {
		if h.Dex == "" {
			return fmt.Errorf("%w: hop %d has no dex", ErrInvalidPath, i)
		}
		if i > 0 && h.TokenIn != p.Hops[i-1].TokenOut {
			return fmt.Errorf("%w: hop %d is not chained", ErrInvalidPath, i)
		}
		if i == len(p.Hops)-1 {
			if h.TokenOut != start {
				return fmt.Errorf("%w: cycle does not close", ErrInvalidPath)
			}
			break
		}
		if h.TokenOut == start {
			return fmt.Errorf("%w: start token revisited at hop %d", ErrInvalidPath, i)
		}
		if _, dup := seen[h.TokenOut]; dup {
			return fmt.Errorf("%w: token %s repeats", ErrInvalidPath, h.TokenOut.Hex())
		}
		seen[h.TokenOut] = struct{}{}
	}
	return nil
}

// Key identifies the path by its tokens and DEX assignment.
func (p Path) Key() string {
	var b strings.Builder
	for i, h := range p.Hops {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(h.TokenIn.Hex())
		b.WriteByte('>')
		b.WriteString(h.Dex)
	}
	return b.String()
}

// Format renders the path as "USDC -> WETH (quickswap) -> ...". symbol maps
// addresses to display names.
func (p Path) Format(symbol func(common.Address) string) string {
	if len(p.Hops) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(symbol(p.Hops[0].TokenIn))
	for _, h := range p.Hops {
		fmt.Fprintf(&b, " -> %s (%s)", symbol(h.TokenOut), h.Dex)
	}
	return b.String()
}

func (p Path) String() string {
	return p.Format(func(a common.Address) string { return a.Hex() })
}

// SimulationResult is the sized trade for a path.
type SimulationResult struct {
	// Amount is the loan size in start-token base units.
	Amount *big.Int `json:"amount"`
	// Profit is the clamped net gain in start-token base units.
	Profit *big.Int `json:"profit"`
	// Outputs are the simulated per-hop outputs at Amount.
	Outputs []*big.Int `json:"outputs"`
	// MinOutputs are Outputs reduced by the slippage buffer.
	MinOutputs []*big.Int `json:"minOutputs"`
	Decimals   uint8      `json:"decimals"`
}

// Opportunity is a profitable result handed to settlement.
type Opportunity struct {
	Path    Path             `json:"path"`
	Result  SimulationResult `json:"result"`
	Trigger string           `json:"trigger"`
	FoundAt time.Time        `json:"foundAt"`
}

// ExecutionStatus is the outcome of handing an opportunity to settlement.
type ExecutionStatus string

const (
	// ExecutionReported means no settlement was attempted.
	ExecutionReported ExecutionStatus = "reported"
	// ExecutionDryRun means the transaction was built and signed but not sent.
	ExecutionDryRun ExecutionStatus = "dry_run"
	// ExecutionSubmitted means the transaction was broadcast.
	ExecutionSubmitted ExecutionStatus = "submitted"
	// ExecutionHalted means the emergency stop suppressed settlement.
	ExecutionHalted ExecutionStatus = "halted"
	// ExecutionFailed means building or sending the transaction failed.
	ExecutionFailed ExecutionStatus = "failed"
)

// Execution records what settlement did with an opportunity.
type Execution struct {
	Status ExecutionStatus `json:"status"`
	TxHash common.Hash     `json:"txHash,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// ScanState is the orchestrator lifecycle state.
type ScanState int32

const (
	StateIdle ScanState = iota
	StateBuildingCache
	StateScanning
	StateExecuting
)

func (s ScanState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateBuildingCache:
		return "BUILDING_CACHE"
	case StateScanning:
		return "SCANNING"
	case StateExecuting:
		return "EXECUTING"
	default:
		return fmt.Sprintf("ScanState(%d)", int32(s))
	}
}
