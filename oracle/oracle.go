package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/defistate/defistate-arb-go/engine"
	"github.com/defistate/defistate-arb-go/protocols/dexregistry"
	"github.com/defistate/defistate-arb-go/protocols/uniswapv2"
	uniswapv2calculator "github.com/defistate/defistate-arb-go/protocols/uniswapv2/calculator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultBatchSize   = 3
	DefaultCallTimeout = 10 * time.Second
)

var (
	// ErrUnknownDex is returned when a DEX name is not in the registry.
	ErrUnknownDex = errors.New("unknown dex")
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the configuration for the Oracle.
type Config struct {
	Reader ChainReader
	Dexes  *dexregistry.Registry
	Logger Logger
	// Registerer receives the oracle metrics.
	Registerer prometheus.Registerer
	// BatchSize bounds the number of DEXs queried concurrently. Batches run in sequence.
	BatchSize int
	// CallTimeout bounds a single DEX query.
	CallTimeout time.Duration
	// Optional injected caches; fresh ones are created when nil.
	Pairs    *PairCache
	Decimals *DecimalsCache
}

func (c *Config) validate() error {
	if c.Reader == nil {
		return errors.New("config: Reader is required")
	}
	if c.Dexes == nil || c.Dexes.Len() == 0 {
		return errors.New("config: at least one dex is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.Registerer == nil {
		return errors.New("config: Registerer is required")
	}
	if c.BatchSize < 0 {
		return errors.New("config: BatchSize must not be negative")
	}
	return nil
}

// Oracle resolves pool reserves across every configured DEX and selects the
// deepest source. A failing DEX is excluded from the result, never propagated.
type Oracle struct {
	reader      ChainReader
	dexes       *dexregistry.Registry
	logger      Logger
	metrics     *Metrics
	batchSize   int
	callTimeout time.Duration
	pairs       *PairCache
	decimals    *DecimalsCache
}

// New creates an Oracle.
func New(cfg Config) (*Oracle, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.Pairs == nil {
		cfg.Pairs = NewPairCache()
	}
	if cfg.Decimals == nil {
		cfg.Decimals = NewDecimalsCache()
	}
	return &Oracle{
		reader:      cfg.Reader,
		dexes:       cfg.Dexes,
		logger:      cfg.Logger,
		metrics:     NewMetrics(cfg.Registerer),
		batchSize:   cfg.BatchSize,
		callTimeout: cfg.CallTimeout,
		pairs:       cfg.Pairs,
		decimals:    cfg.Decimals,
	}, nil
}

// ResolvePairAddress returns the pair of tokenA/tokenB on factory, or the
// zero address when the factory has no pair or the lookup fails. Only
// successful lookups are memoized.
func (o *Oracle) ResolvePairAddress(ctx context.Context, factory, tokenA, tokenB common.Address) common.Address {
	pair, err := o.resolvePair(ctx, factory, tokenA, tokenB)
	if err != nil {
		o.logger.Debug("pair lookup failed", "factory", factory.Hex(), "error", err)
		return common.Address{}
	}
	return pair
}

func (o *Oracle) resolvePair(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error) {
	if pair, ok := o.pairs.Get(factory, tokenA, tokenB); ok {
		o.metrics.PairLookups.WithLabelValues("hit").Inc()
		return pair, nil
	}
	o.metrics.PairLookups.WithLabelValues("miss").Inc()

	pair, err := o.reader.GetPair(ctx, factory, tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}
	o.pairs.Put(factory, tokenA, tokenB, pair)
	return pair, nil
}

// ClearPairCache drops all memoized pair addresses.
func (o *Oracle) ClearPairCache() {
	o.pairs.Clear()
}

// Decimals returns the token's ERC20 decimals, memoized.
func (o *Oracle) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	if dec, ok := o.decimals.Get(token); ok {
		return dec, nil
	}
	dec, err := o.reader.Decimals(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("decimals of %s: %w", token.Hex(), err)
	}
	o.decimals.Put(token, dec)
	return dec, nil
}

// GetReservesFromDex queries a single named DEX. The boolean is false when the
// DEX has no pool with positive reserves for the pair.
func (o *Oracle) GetReservesFromDex(ctx context.Context, dexName string, tokenIn, tokenOut common.Address) (engine.Quote, bool, error) {
	dex, ok := o.dexes.GetByName(dexName)
	if !ok {
		return engine.Quote{}, false, fmt.Errorf("%w: %s", ErrUnknownDex, dexName)
	}
	q, found := o.quote(ctx, dex, tokenIn, tokenOut)
	return q, found, nil
}

// GetAllReservesForPair returns one quote per DEX with a valid pool, in DEX
// configuration order. Reserves are oriented tokenA -> tokenB.
func (o *Oracle) GetAllReservesForPair(ctx context.Context, tokenA, tokenB common.Address) []engine.Quote {
	start := time.Now()
	defer func() { o.metrics.QueryLatency.Observe(time.Since(start).Seconds()) }()

	dexes := o.dexes.All()
	slots := make([]engine.Quote, len(dexes))
	found := make([]bool, len(dexes))

	for lo := 0; lo < len(dexes); lo += o.batchSize {
		if ctx.Err() != nil {
			break
		}
		hi := min(lo+o.batchSize, len(dexes))

		var wg sync.WaitGroup
		for i := lo; i < hi; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				slots[i], found[i] = o.quote(ctx, dexes[i], tokenA, tokenB)
			}(i)
		}
		wg.Wait()
	}

	quotes := make([]engine.Quote, 0, len(dexes))
	for i := range slots {
		if found[i] {
			quotes = append(quotes, slots[i])
		}
	}
	return quotes
}

// GetReserves returns the reserves of the deepest pool for tokenIn -> tokenOut
// across all DEXs, by largest reserve product. Ties keep the earlier DEX.
func (o *Oracle) GetReserves(ctx context.Context, tokenIn, tokenOut common.Address) (engine.Reserves, bool) {
	q, ok := o.BestQuote(ctx, tokenIn, tokenOut)
	if !ok {
		return engine.Reserves{}, false
	}
	return q.Reserves, true
}

// BestQuote is GetReserves keeping the winning DEX and pair.
func (o *Oracle) BestQuote(ctx context.Context, tokenIn, tokenOut common.Address) (engine.Quote, bool) {
	quotes := o.GetAllReservesForPair(ctx, tokenIn, tokenOut)
	if len(quotes) == 0 {
		return engine.Quote{}, false
	}
	best := quotes[0]
	bestProduct := best.Reserves.Product()
	for _, q := range quotes[1:] {
		if p := q.Reserves.Product(); p.Cmp(bestProduct) > 0 {
			best, bestProduct = q, p
		}
	}
	return best, true
}

// quote fetches one DEX's oriented reserves. Every failure is absorbed and
// reported as not found.
func (o *Oracle) quote(ctx context.Context, dex dexregistry.Dex, tokenIn, tokenOut common.Address) (engine.Quote, bool) {
	ctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	o.metrics.Queries.WithLabelValues(dex.Name).Inc()

	pair, err := o.resolvePair(ctx, dex.Factory, tokenIn, tokenOut)
	if err != nil {
		o.fail(dex.Name, "getPair", err)
		return engine.Quote{}, false
	}
	if pair == (common.Address{}) {
		return engine.Quote{}, false
	}

	reserve0, reserve1, err := o.reader.GetReserves(ctx, pair)
	if err != nil {
		o.fail(dex.Name, "getReserves", err)
		return engine.Quote{}, false
	}
	token0, err := o.reader.Token0(ctx, pair)
	if err != nil {
		o.fail(dex.Name, "token0", err)
		return engine.Quote{}, false
	}

	pool := uniswapv2.Pool{
		Address:  pair,
		Dex:      dex.Name,
		Token0:   token0,
		Token1:   tokenOut,
		Reserve0: reserve0,
		Reserve1: reserve1,
		FeeBps:   dex.FeeBps,
	}
	if token0 == tokenOut {
		pool.Token1 = tokenIn
	}
	reserveIn, reserveOut, err := uniswapv2calculator.GetReserves(tokenIn, tokenOut, pool)
	if err != nil {
		o.fail(dex.Name, "token0", err)
		return engine.Quote{}, false
	}
	reserves := engine.Reserves{In: reserveIn, Out: reserveOut}
	if !reserves.Valid() {
		return engine.Quote{}, false
	}
	return engine.Quote{Dex: dex.Name, Pair: pair, Reserves: reserves}, true
}

func (o *Oracle) fail(dex, stage string, err error) {
	o.metrics.Failures.WithLabelValues(dex, stage).Inc()
	o.logger.Debug("dex query failed", "dex", dex, "stage", stage, "error", err)
}
