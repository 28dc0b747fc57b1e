package settlement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"

	"github.com/defistate/defistate-arb-go/engine"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	contractAddr = common.HexToAddress("0xC0FFEE0000000000000000000000000000000001")
	usdc         = common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174")
	weth         = common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619")
	wmatic       = common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270")
	polygonID    = big.NewInt(137)
)

// fakeTransactor is a minimal bind.ContractTransactor.
type fakeTransactor struct {
	mu      sync.Mutex
	nonce   uint64
	sent    []*types.Transaction
	sendErr error
}

func (f *fakeTransactor) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1), BaseFee: big.NewInt(30_000_000_000)}, nil
}

func (f *fakeTransactor) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (f *fakeTransactor) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeTransactor) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(31_000_000_000), nil
}

func (f *fakeTransactor) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeTransactor) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 500_000, nil
}

func (f *fakeTransactor) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}

type fixedGas GasOverrides

func (g fixedGas) Overrides(context.Context) GasOverrides { return GasOverrides(g) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func triangle() engine.Opportunity {
	return engine.Opportunity{
		Path: engine.Path{Hops: []engine.Hop{
			{TokenIn: usdc, TokenOut: weth, Dex: "quickswap"},
			{TokenIn: weth, TokenOut: wmatic, Dex: "sushiswap"},
			{TokenIn: wmatic, TokenOut: usdc, Dex: "apeswap"},
		}},
		Result: engine.SimulationResult{
			Amount:     big.NewInt(50_000_000_000),
			Profit:     big.NewInt(12_000_000),
			Outputs:    []*big.Int{big.NewInt(20), big.NewInt(30), big.NewInt(50_012_000_000)},
			MinOutputs: []*big.Int{big.NewInt(19), big.NewInt(29), big.NewInt(48_511_640_000)},
			Decimals:   6,
		},
	}
}

func newTestExecutor(t *testing.T, backend *fakeTransactor, cfg Config) *Executor {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	cfg.Contract = contractAddr
	cfg.Backend = backend
	cfg.Key = key
	cfg.ChainID = polygonID
	cfg.Logger = discardLogger()
	e, err := NewExecutor(cfg)
	require.NoError(t, err)
	return e
}

// decodeCall unpacks executeArbitrage calldata.
func decodeCall(t *testing.T, data []byte) []any {
	t.Helper()
	method, err := ExecutorABI.MethodById(data[:4])
	require.NoError(t, err)
	require.Equal(t, executeArbitrageMethod, method.Name)
	args, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	return args
}

func TestExecutor_Settle(t *testing.T) {
	ctx := context.Background()

	t.Run("submits the encoded call", func(t *testing.T) {
		backend := &fakeTransactor{nonce: 7}
		gas := fixedGas{MaxFeePerGas: big.NewInt(80_000_000_000), MaxPriorityFeePerGas: big.NewInt(30_000_000_000), GasLimit: 900_000}
		e := newTestExecutor(t, backend, Config{Gas: gas})

		exec, err := e.Settle(ctx, triangle())
		require.NoError(t, err)
		assert.Equal(t, engine.ExecutionSubmitted, exec.Status)
		require.Len(t, backend.sent, 1)

		tx := backend.sent[0]
		assert.Equal(t, exec.TxHash, tx.Hash())
		assert.Equal(t, contractAddr, *tx.To())
		assert.Equal(t, uint64(7), tx.Nonce())
		assert.Equal(t, uint64(900_000), tx.Gas())
		assert.Equal(t, "80000000000", tx.GasFeeCap().String())
		assert.Equal(t, "30000000000", tx.GasTipCap().String())
		assert.Equal(t, "137", tx.ChainId().String())

		args := decodeCall(t, tx.Data())
		require.Len(t, args, 6)
		assert.Equal(t, usdc, args[0])
		assert.Equal(t, []common.Address{usdc, weth}, args[1])
		assert.Equal(t, []common.Address{weth, wmatic}, args[2])
		assert.Equal(t, []common.Address{wmatic, usdc}, args[3])
		assert.Equal(t, "50000000000", args[4].(*big.Int).String())
		minOuts := args[5].([]*big.Int)
		require.Len(t, minOuts, 3)
		assert.Equal(t, "48511640000", minOuts[2].String())
	})

	t.Run("dry run signs without sending", func(t *testing.T) {
		backend := &fakeTransactor{}
		e := newTestExecutor(t, backend, Config{DryRun: true})
		assert.True(t, e.DryRun())

		exec, err := e.Settle(ctx, triangle())
		require.NoError(t, err)
		assert.Equal(t, engine.ExecutionDryRun, exec.Status)
		assert.NotEqual(t, common.Hash{}, exec.TxHash)
		assert.Empty(t, backend.sent)
	})

	t.Run("fallback gas uses node fee suggestion", func(t *testing.T) {
		backend := &fakeTransactor{}
		e := newTestExecutor(t, backend, Config{})

		_, err := e.Settle(ctx, triangle())
		require.NoError(t, err)
		require.Len(t, backend.sent, 1)
		assert.Equal(t, DefaultGasLimit, backend.sent[0].Gas())
		assert.Equal(t, "1000000000", backend.sent[0].GasTipCap().String())
	})

	t.Run("emergency stop halts", func(t *testing.T) {
		backend := &fakeTransactor{}
		e := newTestExecutor(t, backend, Config{EmergencyStop: true})
		assert.True(t, e.EmergencyStopped())

		exec, err := e.Settle(ctx, triangle())
		require.NoError(t, err)
		assert.Equal(t, engine.ExecutionHalted, exec.Status)
		assert.Empty(t, backend.sent)

		e.SetEmergencyStop(false)
		exec, err = e.Settle(ctx, triangle())
		require.NoError(t, err)
		assert.Equal(t, engine.ExecutionSubmitted, exec.Status)
	})

	t.Run("only three hop paths", func(t *testing.T) {
		e := newTestExecutor(t, &fakeTransactor{}, Config{})
		opp := triangle()
		opp.Path.Hops = []engine.Hop{
			{TokenIn: usdc, TokenOut: weth, Dex: "quickswap"},
			{TokenIn: weth, TokenOut: usdc, Dex: "sushiswap"},
		}
		_, err := e.Settle(ctx, opp)
		assert.ErrorIs(t, err, ErrUnsupportedHopCount)
	})

	t.Run("incomplete result", func(t *testing.T) {
		e := newTestExecutor(t, &fakeTransactor{}, Config{})
		opp := triangle()
		opp.Result.MinOutputs = nil
		_, err := e.Settle(ctx, opp)
		assert.ErrorIs(t, err, ErrIncompleteResult)
	})

	t.Run("send failure", func(t *testing.T) {
		e := newTestExecutor(t, &fakeTransactor{sendErr: errors.New("nonce too low")}, Config{})
		_, err := e.Settle(ctx, triangle())
		assert.ErrorContains(t, err, "nonce too low")
	})
}

func TestNewExecutor_Validation(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	base := Config{Contract: contractAddr, Backend: &fakeTransactor{}, Key: key, ChainID: polygonID, Logger: discardLogger()}

	testCases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no contract", func(c *Config) { c.Contract = common.Address{} }},
		{"no backend", func(c *Config) { c.Backend = nil }},
		{"no key", func(c *Config) { c.Key = nil }},
		{"no chain id", func(c *Config) { c.ChainID = nil }},
		{"no logger", func(c *Config) { c.Logger = nil }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			_, err := NewExecutor(cfg)
			assert.Error(t, err)
		})
	}
}
