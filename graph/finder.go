package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/defistate/defistate-arb-go/engine"
	"github.com/ethereum/go-ethereum/common"
)

// Strategy selects the cycle enumeration algorithm.
type Strategy string

const (
	// StrategyBFS enumerates cycles of 2 up to MaxHops hops.
	StrategyBFS Strategy = "bfs"
	// StrategyTriangular enumerates strictly 3-hop cycles.
	StrategyTriangular Strategy = "triangular"
)

const (
	DefaultMaxHops          = 3
	DefaultMaxPathsPerToken = 20
	DefaultTopN             = 10
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// FinderConfig holds the configuration for the Finder.
type FinderConfig struct {
	Source ReserveSource
	// Tokens is the universe the graph is built over.
	Tokens           []common.Address
	Strategy         Strategy
	MaxHops          int
	MaxPathsPerToken int
	TopN             int
	// DexVariants enumerates every DEX assignment of a token route. Enable it
	// when hops are simulated on their assigned DEX.
	DexVariants bool
	Logger      Logger
}

func (c *FinderConfig) validate() error {
	if c.Source == nil {
		return errors.New("config: Source is required")
	}
	if len(c.Tokens) < 2 {
		return errors.New("config: at least two tokens are required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	switch c.Strategy {
	case "", StrategyBFS, StrategyTriangular:
	default:
		return fmt.Errorf("config: unknown strategy %q", c.Strategy)
	}
	if c.MaxHops != 0 && c.MaxHops < 2 {
		return errors.New("config: MaxHops must be at least 2")
	}
	return nil
}

// Finder builds the liquidity graph and turns it into a ranked candidate set.
type Finder struct {
	source           ReserveSource
	tokens           []common.Address
	strategy         Strategy
	maxHops          int
	maxPathsPerToken int
	topN             int
	dexVariants      bool
	logger           Logger
}

// NewFinder creates a Finder, applying defaults for zero values.
func NewFinder(cfg FinderConfig) (*Finder, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyBFS
	}
	if cfg.MaxHops == 0 {
		cfg.MaxHops = DefaultMaxHops
	}
	if cfg.MaxPathsPerToken == 0 {
		cfg.MaxPathsPerToken = DefaultMaxPathsPerToken
	}
	if cfg.TopN == 0 {
		cfg.TopN = DefaultTopN
	}
	return &Finder{
		source:           cfg.Source,
		tokens:           cfg.Tokens,
		strategy:         cfg.Strategy,
		maxHops:          cfg.MaxHops,
		maxPathsPerToken: cfg.MaxPathsPerToken,
		topN:             cfg.TopN,
		dexVariants:      cfg.DexVariants,
		logger:           cfg.Logger,
	}, nil
}

// FindBestArbitragePaths rebuilds the graph, enumerates cycles from every hub,
// ranks them by liquidity and returns the top N.
func (f *Finder) FindBestArbitragePaths(ctx context.Context, hubs []common.Address) ([]engine.Path, error) {
	start := time.Now()
	g, err := BuildGraph(ctx, f.source, f.tokens)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	f.logger.Info("liquidity graph built",
		"tokens", len(g.Tokens()),
		"edges", g.EdgeCount(),
		"duration", time.Since(start),
	)

	opts := SearchOptions{MaxHops: f.maxHops, MaxPaths: f.maxPathsPerToken, DexVariants: f.dexVariants}
	var all []engine.Path
	for _, hub := range hubs {
		var paths []engine.Path
		switch f.strategy {
		case StrategyTriangular:
			paths = FindTriangularPaths(g, hub, opts)
		default:
			paths = FindPaths(g, hub, opts)
		}
		f.logger.Debug("cycles enumerated", "hub", hub.Hex(), "paths", len(paths))
		all = append(all, paths...)
	}

	ranked := RankByLiquidity(ctx, f.source, all)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(ranked) > f.topN {
		ranked = ranked[:f.topN]
	}
	return ranked, nil
}
