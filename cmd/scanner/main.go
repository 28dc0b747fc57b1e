package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/defistate/defistate-arb-go/api"
	"github.com/defistate/defistate-arb-go/cmd/scanner/config"
	"github.com/defistate/defistate-arb-go/graph"
	"github.com/defistate/defistate-arb-go/journal"
	"github.com/defistate/defistate-arb-go/logging"
	"github.com/defistate/defistate-arb-go/oracle"
	"github.com/defistate/defistate-arb-go/protocols/dexregistry"
	"github.com/defistate/defistate-arb-go/protocols/tokenregistry"
	"github.com/defistate/defistate-arb-go/protocols/uniswapv2"
	"github.com/defistate/defistate-arb-go/scanner"
	"github.com/defistate/defistate-arb-go/settlement"
	"github.com/defistate/defistate-arb-go/simulator"
	"github.com/defistate/defistate-arb-go/streams/mempool"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultMempoolBufferSize = 256
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the configuration file.")
	envPath := flag.String("env", ".env", "Path to an optional .env file with secrets.")
	flag.Parse()

	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	close := func() {
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath, *envPath)
	if err != nil {
		bootLogger.Error("Failed to load configuration", "path", *configPath, "error", err)
		close()
	}

	rootLogger, syncLogs, err := logging.New(cfg.Log)
	if err != nil {
		bootLogger.Error("Failed to initialize logger", "error", err)
		close()
	}
	defer syncLogs()

	// Create a context that cancels when the OS sends an interrupt (Ctrl+C) or termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prometheusRegistry := prometheus.DefaultRegisterer

	tokens, err := tokenregistry.NewRegistry(cfg.Tokens)
	if err != nil {
		rootLogger.Error("Invalid token whitelist", "error", err)
		close()
	}
	dexes, err := dexregistry.New(cfg.Dexes, uniswapv2.DefaultFeeBps)
	if err != nil {
		rootLogger.Error("Invalid dex table", "error", err)
		close()
	}
	hubs := tokens.Hubs()
	if len(hubs) == 0 {
		rootLogger.Error("No hub tokens configured")
		close()
	}

	client, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
	if err != nil {
		rootLogger.Error("Failed to connect to RPC", "error", err)
		close()
	}
	defer client.Close()

	// --- RESERVE ORACLE ---
	decimals := oracle.NewDecimalsCache()
	for _, t := range tokens.All() {
		if t.Decimals > 0 {
			decimals.Put(t.Address, t.Decimals)
		}
	}
	reserveOracle, err := oracle.New(oracle.Config{
		Reader:      oracle.NewEthReader(client),
		Dexes:       dexes,
		Logger:      rootLogger.With("component", "oracle"),
		Registerer:  prometheusRegistry,
		BatchSize:   cfg.Oracle.BatchSize,
		CallTimeout: cfg.Oracle.CallTimeout,
		Decimals:    decimals,
	})
	if err != nil {
		rootLogger.Error("Failed to initialize oracle", "error", err)
		close()
	}

	// --- CYCLE FINDER ---
	finder, err := graph.NewFinder(graph.FinderConfig{
		Source:           reserveOracle,
		Tokens:           tokens.Addresses(),
		Strategy:         graph.Strategy(cfg.Finder.Strategy),
		MaxHops:          cfg.Finder.MaxHops,
		MaxPathsPerToken: cfg.Finder.MaxPathsPerToken,
		TopN:             cfg.Finder.TopN,
		DexVariants:      cfg.Optimizer.PinHopDex,
		Logger:           rootLogger.With("component", "finder"),
	})
	if err != nil {
		rootLogger.Error("Failed to initialize finder", "error", err)
		close()
	}

	// --- SIMULATOR ---
	optimizer, err := simulator.OptimizerByName(cfg.Optimizer.Strategy)
	if err != nil {
		rootLogger.Error("Invalid optimizer", "error", err)
		close()
	}
	sim, err := simulator.New(simulator.Config{
		Source:      reserveOracle,
		Dexes:       dexes,
		Optimizer:   optimizer,
		SlippageBps: cfg.Optimizer.SlippageBps,
		PinHopDex:   cfg.Optimizer.PinHopDex,
		Logger:      rootLogger.With("component", "simulator"),
	})
	if err != nil {
		rootLogger.Error("Failed to initialize simulator", "error", err)
		close()
	}

	overrides, err := cfg.MinProfitOverrides(tokens)
	if err != nil {
		rootLogger.Error("Invalid min profit overrides", "error", err)
		close()
	}
	minProfit, err := scanner.ParseProfitThreshold(cfg.Scanner.MinProfit, overrides)
	if err != nil {
		rootLogger.Error("Invalid min profit", "error", err)
		close()
	}

	// --- JOURNAL ---
	var opportunityLog scanner.Journal
	var journalReader api.OpportunityLog
	if cfg.Journal.Enabled {
		store, err := journal.NewStore(cfg.Journal.Path)
		if err != nil {
			rootLogger.Error("Failed to open journal", "error", err)
			close()
		}
		defer store.Close()
		opportunityLog, journalReader = store, store
	}

	// --- SETTLEMENT ---
	var settler scanner.Settler
	var settlementControl api.SettlementControl
	if cfg.Settlement.Enabled {
		executor, err := newExecutor(cfg, client, rootLogger)
		if err != nil {
			rootLogger.Error("Failed to initialize settlement", "error", err)
			close()
		}
		settler, settlementControl = executor, executor
		rootLogger.Info("Settlement enabled",
			"contract", cfg.Settlement.Contract.Hex(),
			"dry_run", executor.DryRun(),
			"emergency_stop", executor.EmergencyStopped(),
		)
	}

	// --- SCANNER ---
	scan, err := scanner.New(scanner.Config{
		Finder:          finder,
		Simulator:       sim,
		Settler:         settler,
		Journal:         opportunityLog,
		Hubs:            hubs,
		MinProfit:       minProfit,
		Symbol:          tokens.Symbol,
		BeforeRebuild:   reserveOracle.ClearPairCache,
		CacheTTL:        cfg.Scanner.CacheTTL,
		ScanInterval:    cfg.Scanner.ScanInterval,
		BatchSize:       cfg.Scanner.BatchSize,
		BatchDelay:      cfg.Scanner.BatchDelay,
		MempoolCooldown: cfg.Scanner.MempoolCooldown,
		Logger:          rootLogger.With("component", "scanner"),
		Registerer:      prometheusRegistry,
	})
	if err != nil {
		rootLogger.Error("Failed to initialize scanner", "error", err)
		close()
	}

	// --- MEMPOOL TRIGGER ---
	if cfg.Mempool.Enabled {
		watcher, err := newWatcher(ctx, cfg, dexes, rootLogger, prometheusRegistry)
		if err != nil {
			rootLogger.Error("Failed to initialize mempool watcher", "error", err)
			close()
		}
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-watcher.Swaps():
					scan.Trigger(scanner.TriggerMempool)
				}
			}
		}()
	}

	// --- STATUS API ---
	if cfg.API.Enabled {
		server, err := api.New(api.Config{
			Addr:       cfg.API.Addr,
			Scanner:    scan,
			Journal:    journalReader,
			Settlement: settlementControl,
			Gatherer:   prometheus.DefaultGatherer,
			Logger:     rootLogger.With("component", "api"),
		})
		if err != nil {
			rootLogger.Error("Failed to initialize api", "error", err)
			close()
		}
		go func() {
			if err := server.Run(ctx); err != nil {
				rootLogger.Error("API server stopped", "error", err)
			}
		}()
	}

	rootLogger.Info("Arbitrage scanner starting",
		"chain_id", cfg.Chain.ChainID,
		"tokens", len(cfg.Tokens),
		"dexes", dexes.Len(),
		"hubs", len(hubs),
	)
	if err := scan.Run(ctx); err != nil {
		rootLogger.Error("Scanner stopped", "error", err)
	}
}

func newExecutor(cfg *config.ScannerAppConfig, client *ethclient.Client, logger logging.Logger) (*settlement.Executor, error) {
	key, err := crypto.HexToECDSA(cfg.Settlement.PrivateKey)
	if err != nil {
		return nil, err
	}

	var gas settlement.GasSource = settlement.StaticGas(cfg.Settlement.GasLimit)
	if cfg.Settlement.GasAPIURL != "" {
		gas, err = settlement.NewGasOracle(settlement.GasOracleConfig{
			URL:      cfg.Settlement.GasAPIURL,
			APIKey:   cfg.Settlement.GasAPIKey,
			GasLimit: cfg.Settlement.GasLimit,
			Logger:   logger.With("component", "gas-oracle"),
		})
		if err != nil {
			return nil, err
		}
	}

	return settlement.NewExecutor(settlement.Config{
		Contract:      cfg.Settlement.Contract,
		Backend:       client,
		Key:           key,
		ChainID:       cfg.ChainIDBig(),
		Gas:           gas,
		DryRun:        cfg.Settlement.IsDryRun(),
		EmergencyStop: cfg.Settlement.EmergencyStop,
		Logger:        logger.With("component", "settlement"),
	})
}

func newWatcher(ctx context.Context, cfg *config.ScannerAppConfig, dexes *dexregistry.Registry, logger logging.Logger, reg prometheus.Registerer) (*mempool.Watcher, error) {
	hexes := cfg.Mempool.Selectors
	if len(hexes) == 0 {
		hexes = mempool.DefaultSwapSelectors
	}
	selectors, err := mempool.ParseSelectors(hexes)
	if err != nil {
		return nil, err
	}

	bufferSize := cfg.Mempool.BufferSize
	if bufferSize == 0 {
		bufferSize = DefaultMempoolBufferSize
	}
	return mempool.NewWatcher(ctx, mempool.Config{
		URL:        cfg.Chain.WSURL,
		Filter:     mempool.NewSwapFilter(dexes, selectors),
		Logger:     logger.With("component", "mempool"),
		Registerer: reg,
		BufferSize: bufferSize,
	})
}
