package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/defistate/defistate-arb-go/engine"
	"github.com/defistate/defistate-arb-go/protocols/tokenregistry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultScanInterval    = 30 * time.Second
	DefaultBatchSize       = 3
	DefaultBatchDelay      = 100 * time.Millisecond
	DefaultMempoolCooldown = time.Second

	// logged paths after a cache rebuild
	topPathsLogged = 5
)

// Trigger sources.
const (
	TriggerStartup  = "startup"
	TriggerPeriodic = "periodic"
	TriggerMempool  = "mempool"
	TriggerManual   = "manual"
)

// PathFinder produces the ranked candidate paths.
type PathFinder interface {
	FindBestArbitragePaths(ctx context.Context, hubs []common.Address) ([]engine.Path, error)
}

// PathSimulator sizes a trade for one path. A nil result without error means
// the path has no reserves on some hop.
type PathSimulator interface {
	SimulateArbitrage(ctx context.Context, path engine.Path) (*engine.SimulationResult, error)
}

// Settler hands a profitable opportunity to the settlement contract.
type Settler interface {
	Settle(ctx context.Context, opp engine.Opportunity) (engine.Execution, error)
}

// Journal records reported opportunities.
type Journal interface {
	Record(ctx context.Context, opp engine.Opportunity, exec engine.Execution) error
}

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the configuration for the Scanner.
type Config struct {
	Finder    PathFinder
	Simulator PathSimulator
	// Settler is optional; without it opportunities are only reported.
	Settler Settler
	// Journal is optional.
	Journal Journal
	// Hubs are the start tokens handed to the finder.
	Hubs      []common.Address
	MinProfit ProfitThreshold
	// Symbol renders token addresses in logs. Defaults to the hex address.
	Symbol func(common.Address) string
	// BeforeRebuild, when set, runs before every path cache rebuild.
	BeforeRebuild func()

	CacheTTL        time.Duration
	ScanInterval    time.Duration
	BatchSize       int
	BatchDelay      time.Duration
	MempoolCooldown time.Duration

	// Now is the clock, time.Now when nil.
	Now        func() time.Time
	Logger     Logger
	Registerer prometheus.Registerer
}

func (c *Config) validate() error {
	if c.Finder == nil {
		return errors.New("config: Finder is required")
	}
	if c.Simulator == nil {
		return errors.New("config: Simulator is required")
	}
	if len(c.Hubs) == 0 {
		return errors.New("config: at least one hub token is required")
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
	if c.CacheTTL < 0 || c.ScanInterval < 0 || c.BatchDelay < 0 || c.MempoolCooldown < 0 {
		return errors.New("config: durations must not be negative")
	}
	return nil
}

// Status is a point-in-time view of the scanner for the status API.
type Status struct {
	State           string              `json:"state"`
	CachedPaths     int                 `json:"cachedPaths"`
	CacheBuiltAt    time.Time           `json:"cacheBuiltAt"`
	LastScanAt      time.Time           `json:"lastScanAt"`
	LastTrigger     string              `json:"lastTrigger"`
	Scans           uint64              `json:"scans"`
	LastOpportunity *engine.Opportunity `json:"lastOpportunity,omitempty"`
	LastExecution   *engine.Execution   `json:"lastExecution,omitempty"`
}

type scanRequest struct {
	trigger string
}

// Scanner is the scan orchestrator. A single worker consumes scan requests, so
// at most one scan runs at a time and requests arriving during a scan
// coalesce into one pending scan.
type Scanner struct {
	finder    PathFinder
	simulator PathSimulator
	settler   Settler
	journal   Journal
	hubs      []common.Address
	minProfit ProfitThreshold
	symbol    func(common.Address) string
	// beforeRebuild may be nil.
	beforeRebuild func()

	scanInterval    time.Duration
	batchSize       int
	batchDelay      time.Duration
	mempoolCooldown time.Duration
	now             func() time.Time

	cache    *PathCache
	requests chan scanRequest
	state    atomic.Int32
	logger   Logger
	metrics  *Metrics

	lastMempool atomic.Int64

	mu     sync.RWMutex
	status Status
}

// New creates a Scanner.
func New(cfg Config) (*Scanner, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Symbol == nil {
		cfg.Symbol = func(a common.Address) string { return a.Hex() }
	}
	if cfg.ScanInterval == 0 {
		cfg.ScanInterval = DefaultScanInterval
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchDelay == 0 {
		cfg.BatchDelay = DefaultBatchDelay
	}
	if cfg.MempoolCooldown == 0 {
		cfg.MempoolCooldown = DefaultMempoolCooldown
	}
	return &Scanner{
		finder:          cfg.Finder,
		simulator:       cfg.Simulator,
		settler:         cfg.Settler,
		journal:         cfg.Journal,
		hubs:            cfg.Hubs,
		minProfit:       cfg.MinProfit,
		symbol:          cfg.Symbol,
		beforeRebuild:   cfg.BeforeRebuild,
		scanInterval:    cfg.ScanInterval,
		batchSize:       cfg.BatchSize,
		batchDelay:      cfg.BatchDelay,
		mempoolCooldown: cfg.MempoolCooldown,
		now:             cfg.Now,
		cache:           NewPathCache(cfg.CacheTTL, cfg.Now),
		requests:        make(chan scanRequest, 1),
		logger:          cfg.Logger,
		metrics:         NewMetrics(cfg.Registerer),
	}, nil
}

// State returns the current lifecycle state.
func (s *Scanner) State() engine.ScanState {
	return engine.ScanState(s.state.Load())
}

func (s *Scanner) setState(st engine.ScanState) {
	s.state.Store(int32(st))
	s.metrics.State.Set(float64(st))
	s.mu.Lock()
	s.status.State = st.String()
	s.mu.Unlock()
}

// Status returns a snapshot of the scanner.
func (s *Scanner) Status() Status {
	s.mu.RLock()
	st := s.status
	s.mu.RUnlock()
	st.State = s.State().String()
	st.CachedPaths = s.cache.Len()
	st.CacheBuiltAt = s.cache.BuiltAt()
	return st
}

// Paths returns the cached candidate paths.
func (s *Scanner) Paths() []engine.Path {
	return s.cache.Paths()
}

// FormatPath renders a path with token symbols.
func (s *Scanner) FormatPath(p engine.Path) string {
	return p.Format(s.symbol)
}

// Trigger requests a scan. It never blocks: a request arriving while one is
// already pending is dropped, as are mempool requests within the cooldown of
// the previous accepted one. It reports whether the request was queued.
func (s *Scanner) Trigger(source string) bool {
	if source == TriggerMempool {
		now := s.now().UnixNano()
		last := s.lastMempool.Load()
		if last != 0 && time.Duration(now-last) < s.mempoolCooldown {
			s.metrics.TriggersDropped.WithLabelValues(source).Inc()
			return false
		}
		if !s.lastMempool.CompareAndSwap(last, now) {
			s.metrics.TriggersDropped.WithLabelValues(source).Inc()
			return false
		}
	}
	select {
	case s.requests <- scanRequest{trigger: source}:
		return true
	default:
		s.metrics.TriggersDropped.WithLabelValues(source).Inc()
		return false
	}
}

// Run starts the periodic producer and the scan worker, and blocks until ctx
// is cancelled. An initial scan is requested at startup.
func (s *Scanner) Run(ctx context.Context) error {
	s.logger.Info("scanner started", "interval", s.scanInterval, "hubs", len(s.hubs))
	s.Trigger(TriggerStartup)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.scanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Trigger(TriggerPeriodic)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			s.logger.Info("scanner stopped")
			return nil
		case req := <-s.requests:
			s.handle(ctx, req)
		}
	}
}

// handle runs one scan request end to end and returns to IDLE.
func (s *Scanner) handle(ctx context.Context, req scanRequest) {
	start := time.Now()
	defer func() {
		s.setState(engine.StateIdle)
		s.metrics.ScanDuration.Observe(time.Since(start).Seconds())
	}()
	s.metrics.Scans.WithLabelValues(req.trigger).Inc()

	if err := s.EnsureFreshCache(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("path cache refresh failed, scanning stale cache", "error", err, "cachedPaths", s.cache.Len())
	}

	opp, err := s.ScanCache(ctx, req.trigger)

	s.mu.Lock()
	s.status.LastScanAt = s.now()
	s.status.LastTrigger = req.trigger
	s.status.Scans++
	s.mu.Unlock()

	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("scan failed", "trigger", req.trigger, "error", err)
		}
		return
	}
	if opp == nil {
		s.logger.Debug("scan found no opportunity", "trigger", req.trigger, "duration", time.Since(start))
		return
	}
	s.execute(ctx, *opp)
}

// EnsureFreshCache rebuilds the path cache when it is empty or older than the
// TTL. On failure the previous snapshot is kept and the error returned, so
// the next request retries.
func (s *Scanner) EnsureFreshCache(ctx context.Context) error {
	if s.cache.Fresh() {
		return nil
	}
	s.setState(engine.StateBuildingCache)
	start := time.Now()
	if s.beforeRebuild != nil {
		s.beforeRebuild()
	}

	paths, err := s.finder.FindBestArbitragePaths(ctx, s.hubs)
	if err != nil {
		s.metrics.CacheRebuilds.WithLabelValues("error").Inc()
		return fmt.Errorf("find paths: %w", err)
	}
	diff := DiffPaths(s.cache.Paths(), paths)
	s.cache.Store(paths)
	result := "ok"
	if diff.IsEmpty() {
		result = "unchanged"
	}
	s.metrics.CacheRebuilds.WithLabelValues(result).Inc()
	s.metrics.CachedPaths.Set(float64(len(paths)))

	s.logger.Info("path cache rebuilt",
		"paths", len(paths),
		"added", len(diff.Additions),
		"updated", len(diff.Updates),
		"removed", len(diff.Deletions),
		"duration", time.Since(start),
	)
	for i, p := range paths[:min(topPathsLogged, len(paths))] {
		s.logger.Info("top path", "rank", i+1, "path", s.FormatPath(p), "liquidity", p.Liquidity)
	}
	return nil
}

// ScanCache simulates the cached paths in batches and returns the first
// opportunity, in cache order, whose profit exceeds the minimum. Paths inside
// a batch run concurrently; later batches are skipped once one is found. A
// failing path is logged and skipped. It returns nil when nothing qualifies.
func (s *Scanner) ScanCache(ctx context.Context, trigger string) (*engine.Opportunity, error) {
	paths := s.cache.Paths()
	if len(paths) == 0 {
		s.logger.Warn("no cached paths to scan", "trigger", trigger)
		return nil, nil
	}
	s.setState(engine.StateScanning)

	for lo := 0; lo < len(paths); lo += s.batchSize {
		if lo > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.batchDelay):
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch := paths[lo:min(lo+s.batchSize, len(paths))]
		results := make([]*engine.SimulationResult, len(batch))
		var wg sync.WaitGroup
		for i := range batch {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = s.simulate(ctx, batch[i])
			}(i)
		}
		wg.Wait()

		for i, res := range results {
			if res == nil || !s.profitable(batch[i], res) {
				continue
			}
			return &engine.Opportunity{
				Path:    batch[i],
				Result:  *res,
				Trigger: trigger,
				FoundAt: s.now(),
			}, nil
		}
	}
	return nil, nil
}

func (s *Scanner) profitable(p engine.Path, res *engine.SimulationResult) bool {
	return res.Profit != nil && res.Profit.Cmp(s.minProfit.For(p.Start(), res.Decimals)) > 0
}

// simulate runs one path, converting errors and panics into a nil result.
func (s *Scanner) simulate(ctx context.Context, p engine.Path) (res *engine.SimulationResult) {
	s.metrics.PathsSimulated.Inc()
	defer func() {
		if r := recover(); r != nil {
			s.metrics.SimulationFailures.WithLabelValues("panic").Inc()
			s.logger.Error("path simulation panicked", "path", s.FormatPath(p), "panic", r)
			res = nil
		}
	}()

	out, err := s.simulator.SimulateArbitrage(ctx, p)
	if err != nil {
		s.metrics.SimulationFailures.WithLabelValues("error").Inc()
		s.logger.Warn("path simulation failed", "path", s.FormatPath(p), "error", err)
		return nil
	}
	return out
}

// execute hands the opportunity to settlement, when configured, and journals
// the outcome.
func (s *Scanner) execute(ctx context.Context, opp engine.Opportunity) {
	s.setState(engine.StateExecuting)
	s.logger.Info("arbitrage opportunity",
		"path", s.FormatPath(opp.Path),
		"token", s.symbol(opp.Path.Start()),
		"amount", tokenregistry.FormatUnits(opp.Result.Amount, opp.Result.Decimals),
		"profit", tokenregistry.FormatUnits(opp.Result.Profit, opp.Result.Decimals),
		"trigger", opp.Trigger,
	)

	exec := engine.Execution{Status: engine.ExecutionReported}
	if s.settler != nil {
		var err error
		exec, err = s.settler.Settle(ctx, opp)
		if err != nil {
			exec.Status = engine.ExecutionFailed
			exec.Error = err.Error()
			s.logger.Error("settlement failed", "path", s.FormatPath(opp.Path), "error", err)
		} else {
			s.logger.Info("settlement handed off", "status", exec.Status, "tx", exec.TxHash.Hex())
		}
	}
	s.metrics.Opportunities.WithLabelValues(string(exec.Status)).Inc()

	s.mu.Lock()
	s.status.LastOpportunity = &opp
	s.status.LastExecution = &exec
	s.mu.Unlock()

	if s.journal != nil {
		if err := s.journal.Record(ctx, opp, exec); err != nil {
			s.logger.Error("failed to journal opportunity", "error", err)
		}
	}
}

