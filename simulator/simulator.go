package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/defistate/defistate-arb-go/engine"
	"github.com/defistate/defistate-arb-go/protocols/dexregistry"
	"github.com/defistate/defistate-arb-go/protocols/uniswapv2"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultSlippageBps is the buffer applied to every per-hop output (3%).
const DefaultSlippageBps uint16 = 300

// ReserveSource is the subset of the reserve oracle the simulator needs.
type ReserveSource interface {
	BestQuote(ctx context.Context, tokenIn, tokenOut common.Address) (engine.Quote, bool)
	GetReservesFromDex(ctx context.Context, dexName string, tokenIn, tokenOut common.Address) (engine.Quote, bool, error)
	Decimals(ctx context.Context, token common.Address) (uint8, error)
}

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the configuration for the Simulator.
type Config struct {
	Source ReserveSource
	// Dexes supplies per-DEX fees; when nil every hop uses the default fee.
	Dexes     *dexregistry.Registry
	Optimizer Optimizer
	// SlippageBps defaults to DefaultSlippageBps.
	SlippageBps uint16
	// PinHopDex simulates each hop against the DEX the path assigned to it
	// rather than the deepest pool for the pair.
	PinHopDex bool
	Logger    Logger
}

func (c *Config) validate() error {
	if c.Source == nil {
		return errors.New("config: Source is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.SlippageBps >= 10000 {
		return fmt.Errorf("config: SlippageBps %d out of range", c.SlippageBps)
	}
	return nil
}

// Simulator sizes a trade for a candidate path from live reserves.
type Simulator struct {
	source      ReserveSource
	dexes       *dexregistry.Registry
	optimizer   Optimizer
	slippageBps uint16
	pinHopDex   bool
	logger      Logger
}

// New creates a Simulator. The optimizer defaults to DefaultStepSearch.
func New(cfg Config) (*Simulator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Optimizer == nil {
		cfg.Optimizer = DefaultStepSearch()
	}
	if cfg.SlippageBps == 0 {
		cfg.SlippageBps = DefaultSlippageBps
	}
	return &Simulator{
		source:      cfg.Source,
		dexes:       cfg.Dexes,
		optimizer:   cfg.Optimizer,
		slippageBps: cfg.SlippageBps,
		pinHopDex:   cfg.PinHopDex,
		logger:      cfg.Logger,
	}, nil
}

// SimulateArbitrage resolves start-token decimals and per-hop reserves, runs
// the optimizer and derives slippage-guarded minimum outputs. It returns nil
// without error when any hop has no reserves, and an error when a fetch fails.
func (s *Simulator) SimulateArbitrage(ctx context.Context, path engine.Path) (*engine.SimulationResult, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}

	decimals, err := s.source.Decimals(ctx, path.Start())
	if err != nil {
		return nil, err
	}

	legs := make([]Leg, len(path.Hops))
	for i, hop := range path.Hops {
		quote, found, err := s.quote(ctx, hop)
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", i, err)
		}
		if !found {
			s.logger.Debug("hop has no reserves", "hop", i, "dex", hop.Dex, "tokenIn", hop.TokenIn.Hex(), "tokenOut", hop.TokenOut.Hex())
			return nil, nil
		}
		legs[i] = Leg{Reserves: quote.Reserves, FeeBps: s.feeOf(quote.Dex)}
	}

	best, err := s.optimizer.Optimize(legs, decimals)
	if err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}

	minOutputs := make([]*big.Int, len(best.Outputs))
	for i, out := range best.Outputs {
		minOutputs[i] = ApplySlippage(out, s.slippageBps)
	}

	return &engine.SimulationResult{
		Amount:     best.Amount,
		Profit:     best.Profit,
		Outputs:    best.Outputs,
		MinOutputs: minOutputs,
		Decimals:   decimals,
	}, nil
}

func (s *Simulator) quote(ctx context.Context, hop engine.Hop) (engine.Quote, bool, error) {
	if s.pinHopDex {
		return s.source.GetReservesFromDex(ctx, hop.Dex, hop.TokenIn, hop.TokenOut)
	}
	q, found := s.source.BestQuote(ctx, hop.TokenIn, hop.TokenOut)
	return q, found, nil
}

func (s *Simulator) feeOf(dex string) uint16 {
	if s.dexes != nil {
		if d, ok := s.dexes.GetByName(dex); ok {
			return d.FeeBps
		}
	}
	return uniswapv2.DefaultFeeBps
}
