package mempool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
)

// Constants for reconnection logic
const (
	initialReconnectDelay = 1 * time.Second
	maxReconnectDelay     = 30 * time.Second

	pendingTransactionsSubscription = "newPendingTransactions"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the configuration for the Watcher.
type Config struct {
	// URL is the websocket endpoint of the node.
	URL        string
	Filter     *SwapFilter
	Logger     Logger
	Registerer prometheus.Registerer
	// BufferSize is the capacity of the swaps channel. Matches are dropped
	// while it is full.
	BufferSize uint
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.URL == "" {
		return errors.New("config: URL is required")
	}
	if c.Filter == nil {
		return errors.New("config: Filter is required")
	}
	if c.BufferSize < 1 {
		return errors.New("config: BufferSize must be greater than 0")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.Registerer == nil {
		return errors.New("config: Registerer is required")
	}
	return nil
}

// TxProcessor applies the swap filter to pending transactions and publishes
// matches. It is decoupled from the networking layer.
type TxProcessor struct {
	filter  *SwapFilter
	swapsCh chan *types.Transaction
	metrics *Metrics
	logger  Logger
}

// NewTxProcessor creates a processor without networking.
func NewTxProcessor(filter *SwapFilter, bufferSize uint, metrics *Metrics, logger Logger) *TxProcessor {
	return &TxProcessor{
		filter:  filter,
		swapsCh: make(chan *types.Transaction, bufferSize),
		metrics: metrics,
		logger:  logger,
	}
}

// Swaps returns a read-only channel of matching pending transactions.
func (p *TxProcessor) Swaps() <-chan *types.Transaction {
	return p.swapsCh
}

// Process filters one pending transaction and reports whether it matched.
func (p *TxProcessor) Process(tx *types.Transaction) bool {
	if !p.filter.Match(tx) {
		p.metrics.Transactions.WithLabelValues("ignored").Inc()
		return false
	}
	select {
	case p.swapsCh <- tx:
		p.metrics.Transactions.WithLabelValues("matched").Inc()
		p.logger.Debug("pending swap", "hash", tx.Hash().Hex(), "dex", p.filter.DexOf(tx), "router", tx.To().Hex())
	default:
		p.metrics.Transactions.WithLabelValues("dropped").Inc()
	}
	return true
}

// Watcher subscribes to the node's pending transactions, reconnecting with
// backoff, and publishes router swaps.
type Watcher struct {
	processor *TxProcessor
	metrics   *Metrics
	logger    Logger
	done      chan struct{}
}

// NewWatcher creates a watcher and starts its connection loop, which runs
// until ctx is cancelled.
func NewWatcher(ctx context.Context, cfg Config) (*Watcher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	metrics := NewMetrics(cfg.Registerer)
	w := &Watcher{
		processor: NewTxProcessor(cfg.Filter, cfg.BufferSize, metrics, cfg.Logger),
		metrics:   metrics,
		logger:    cfg.Logger,
		done:      make(chan struct{}),
	}
	go w.run(ctx, cfg.URL)
	return w, nil
}

// Swaps delegates to the processor's channel.
func (w *Watcher) Swaps() <-chan *types.Transaction {
	return w.processor.Swaps()
}

// Done is closed once the connection loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// run handles the networking lifecycle and feeds transactions to the processor.
func (w *Watcher) run(ctx context.Context, url string) {
	defer close(w.done)
	reconnectDelay := initialReconnectDelay

	for {
		if ctx.Err() != nil {
			w.logger.Info("mempool watcher stopped")
			return
		}

		w.logger.Info("connecting to node for pending transactions", "url", url)
		rpcClient, err := rpc.DialContext(ctx, url)
		if err != nil {
			w.logger.Error("failed to connect, will retry", "error", err, "delay", reconnectDelay)
			if !sleep(ctx, reconnectDelay) {
				return
			}
			reconnectDelay = min(reconnectDelay*2, maxReconnectDelay)
			w.metrics.Reconnects.Inc()
			continue
		}
		reconnectDelay = initialReconnectDelay

		err = w.subscribeAndProcess(ctx, rpcClient)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				w.logger.Info("mempool watcher stopped")
				return
			}
			w.logger.Error("pending transaction subscription failed, will reconnect", "error", err, "delay", reconnectDelay)
			if !sleep(ctx, reconnectDelay) {
				return
			}
			reconnectDelay = min(reconnectDelay*2, maxReconnectDelay)
			w.metrics.Reconnects.Inc()
		}
	}
}

func (w *Watcher) subscribeAndProcess(ctx context.Context, rpcClient *rpc.Client) error {
	defer rpcClient.Close()

	txCh := make(chan *types.Transaction)
	sub, err := rpcClient.EthSubscribe(ctx, txCh, pendingTransactionsSubscription, true)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	w.logger.Info("subscribed to pending transactions")
	for {
		select {
		case tx := <-txCh:
			w.processor.Process(tx)
		case err := <-sub.Err():
			if err == nil {
				return errors.New("subscription closed")
			}
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
