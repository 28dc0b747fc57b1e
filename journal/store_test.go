package journal

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/defistate/defistate-arb-go/engine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	usdc = common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174")
	weth = common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619")
)

func newMemStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func opportunity(profit int64, foundAt time.Time) engine.Opportunity {
	return engine.Opportunity{
		Path: engine.Path{Hops: []engine.Hop{
			{TokenIn: usdc, TokenOut: weth, Dex: "quickswap"},
			{TokenIn: weth, TokenOut: usdc, Dex: "sushiswap"},
		}},
		Result: engine.SimulationResult{
			Amount:     big.NewInt(1_000_000_000),
			Profit:     big.NewInt(profit),
			MinOutputs: []*big.Int{big.NewInt(400_000_000_000_000_000), big.NewInt(970_000_000)},
			Decimals:   6,
		},
		Trigger: "periodic",
		FoundAt: foundAt,
	}
}

func TestStore_RecordAndList(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, opportunity(5_000, t0), engine.Execution{Status: engine.ExecutionReported}))
	hash := common.HexToHash("0xabc123")
	require.NoError(t, s.Record(ctx, opportunity(7_000, t0.Add(time.Minute)), engine.Execution{Status: engine.ExecutionSubmitted, TxHash: hash}))
	require.NoError(t, s.Record(ctx, opportunity(9_000, t0.Add(2*time.Minute)), engine.Execution{Status: engine.ExecutionFailed, Error: "nonce too low"}))

	entries, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "9000", entries[0].Profit.String(), "newest first")
	assert.Equal(t, engine.ExecutionFailed, entries[0].Status)
	assert.Equal(t, "nonce too low", entries[0].Error)

	e := entries[1]
	assert.Equal(t, engine.ExecutionSubmitted, e.Status)
	assert.Equal(t, hash, e.TxHash)
	assert.True(t, t0.Add(time.Minute).Equal(e.FoundAt))
	assert.Equal(t, "periodic", e.Trigger)
	assert.Equal(t, "1000000000", e.Amount.String())
	assert.Equal(t, uint8(6), e.Decimals)
	assert.Equal(t, []string{"400000000000000000", "970000000"}, []string{e.MinOutputs[0].String(), e.MinOutputs[1].String()})
	require.Len(t, e.Path.Hops, 2)
	assert.Equal(t, usdc, e.Path.Start())
	assert.Equal(t, "sushiswap", e.Path.Hops[1].Dex)

	limited, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, entries[0].ID, limited[0].ID)
}

func TestStore_EmptyList(t *testing.T) {
	entries, err := newMemStore(t).List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, opportunity(1, time.Now()), engine.Execution{Status: engine.ExecutionDryRun}))
	require.NoError(t, s.Close())

	s, err = NewStore(path)
	require.NoError(t, err)
	defer s.Close()
	entries, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, engine.ExecutionDryRun, entries[0].Status)
}
