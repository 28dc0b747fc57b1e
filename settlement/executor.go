package settlement

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/defistate/defistate-arb-go/engine"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrUnsupportedHopCount is returned for paths the settlement contract
	// cannot execute. The contract takes exactly three hops.
	ErrUnsupportedHopCount = errors.New("settlement supports exactly 3 hops")
	// ErrIncompleteResult is returned when a simulation result lacks sizing.
	ErrIncompleteResult = errors.New("simulation result is incomplete")
)

const contractHops = 3

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the configuration for the Executor.
type Config struct {
	// Contract is the deployed flash-loan arbitrage contract.
	Contract common.Address
	Backend  bind.ContractTransactor
	Key      *ecdsa.PrivateKey
	ChainID  *big.Int
	// Gas defaults to StaticGas(DefaultGasLimit).
	Gas GasSource
	// DryRun signs the transaction without broadcasting it.
	DryRun        bool
	EmergencyStop bool
	Logger        Logger
}

func (c *Config) validate() error {
	if c.Contract == (common.Address{}) {
		return errors.New("config: Contract is required")
	}
	if c.Backend == nil {
		return errors.New("config: Backend is required")
	}
	if c.Key == nil {
		return errors.New("config: Key is required")
	}
	if c.ChainID == nil || c.ChainID.Sign() <= 0 {
		return errors.New("config: ChainID is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	return nil
}

// Executor submits profitable opportunities to the settlement contract.
// Execution is fire-and-forget: the hash is reported, the receipt is not
// awaited.
type Executor struct {
	contract *bind.BoundContract
	address  common.Address
	key      *ecdsa.PrivateKey
	chainID  *big.Int
	gas      GasSource
	dryRun   bool
	halted   atomic.Bool
	logger   Logger
}

// NewExecutor creates an Executor.
func NewExecutor(cfg Config) (*Executor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Gas == nil {
		cfg.Gas = StaticGas(DefaultGasLimit)
	}
	e := &Executor{
		contract: bind.NewBoundContract(cfg.Contract, ExecutorABI, nil, cfg.Backend, nil),
		address:  cfg.Contract,
		key:      cfg.Key,
		chainID:  cfg.ChainID,
		gas:      cfg.Gas,
		dryRun:   cfg.DryRun,
		logger:   cfg.Logger,
	}
	e.halted.Store(cfg.EmergencyStop)
	return e, nil
}

// SetEmergencyStop toggles the emergency stop. While set, opportunities are
// reported as halted and nothing is signed.
func (e *Executor) SetEmergencyStop(stop bool) {
	e.halted.Store(stop)
	e.logger.Warn("emergency stop changed", "stopped", stop)
}

// EmergencyStopped reports whether the emergency stop is set.
func (e *Executor) EmergencyStopped() bool {
	return e.halted.Load()
}

// DryRun reports whether transactions are signed but not sent.
func (e *Executor) DryRun() bool {
	return e.dryRun
}

// Settle builds executeArbitrage(tokenA, path1, path2, path3, loanAmount,
// minOuts) for a three-hop opportunity, signs it and, unless in dry-run mode,
// broadcasts it.
func (e *Executor) Settle(ctx context.Context, opp engine.Opportunity) (engine.Execution, error) {
	if e.halted.Load() {
		e.logger.Warn("emergency stop set, settlement skipped", "path", opp.Path.String())
		return engine.Execution{Status: engine.ExecutionHalted}, nil
	}
	args, err := callArgs(opp)
	if err != nil {
		return engine.Execution{}, err
	}

	gas := e.gas.Overrides(ctx)
	opts, err := bind.NewKeyedTransactorWithChainID(e.key, e.chainID)
	if err != nil {
		return engine.Execution{}, fmt.Errorf("transactor: %w", err)
	}
	opts.Context = ctx
	opts.GasLimit = gas.GasLimit
	opts.GasFeeCap = gas.MaxFeePerGas
	opts.GasTipCap = gas.MaxPriorityFeePerGas
	opts.NoSend = e.dryRun

	tx, err := e.contract.Transact(opts, executeArbitrageMethod, args...)
	if err != nil {
		return engine.Execution{}, fmt.Errorf("executeArbitrage: %w", err)
	}

	status := engine.ExecutionSubmitted
	if e.dryRun {
		status = engine.ExecutionDryRun
	}
	e.logger.Info("settlement transaction built",
		"status", status,
		"hash", tx.Hash().Hex(),
		"nonce", tx.Nonce(),
		"gasLimit", tx.Gas(),
	)
	return engine.Execution{Status: status, TxHash: tx.Hash()}, nil
}

// callArgs maps an opportunity to the contract's argument list, one
// [tokenIn, tokenOut] pair per hop.
func callArgs(opp engine.Opportunity) ([]any, error) {
	hops := opp.Path.Hops
	if len(hops) != contractHops {
		return nil, fmt.Errorf("%w: got %d", ErrUnsupportedHopCount, len(hops))
	}
	res := opp.Result
	if res.Amount == nil || len(res.MinOutputs) != len(hops) {
		return nil, ErrIncompleteResult
	}
	args := make([]any, 0, 6)
	args = append(args, opp.Path.Start())
	for _, h := range hops {
		args = append(args, []common.Address{h.TokenIn, h.TokenOut})
	}
	args = append(args, res.Amount, res.MinOutputs)
	return args, nil
}
