package oracle

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/defistate/defistate-arb-go/protocols/uniswapv2"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCaller answers eth_call with ABI-packed outputs keyed by contract and method.
type fakeCaller struct {
	outputs map[common.Address]map[string][]any
	calls   []string
}

func (f *fakeCaller) set(contract common.Address, method string, values ...any) {
	if f.outputs == nil {
		f.outputs = make(map[common.Address]map[string][]any)
	}
	if f.outputs[contract] == nil {
		f.outputs[contract] = make(map[string][]any)
	}
	f.outputs[contract][method] = values
}

func (f *fakeCaller) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeCaller) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if call.To == nil || len(call.Data) < 4 {
		return nil, errors.New("bad call")
	}
	for _, parsed := range []abi.ABI{uniswapv2.FactoryABI, uniswapv2.PairABI, uniswapv2.ERC20ABI} {
		method, err := parsed.MethodById(call.Data[:4])
		if err != nil {
			continue
		}
		f.calls = append(f.calls, method.Name)
		values, ok := f.outputs[*call.To][method.Name]
		if !ok {
			return nil, errors.New("execution reverted")
		}
		return method.Outputs.Pack(values...)
	}
	return nil, errors.New("unknown selector")
}

func TestEthReader(t *testing.T) {
	ctx := context.Background()
	factory := common.HexToAddress("0x5757371414417b8C6CAad45bAeF941aBc7d3Ab32")
	pair := common.HexToAddress("0x853Ee4b2A13f8a742d64C8F088bE7bA2131f670d")

	caller := &fakeCaller{}
	caller.set(factory, "getPair", pair)
	caller.set(pair, "getReserves", big.NewInt(1_000_000), big.NewInt(2_000_000), uint32(1700000000))
	caller.set(pair, "token0", usdc)
	caller.set(usdc, "decimals", uint8(6))

	reader := NewEthReader(caller)

	t.Run("getPair", func(t *testing.T) {
		got, err := reader.GetPair(ctx, factory, usdc, weth)
		require.NoError(t, err)
		assert.Equal(t, pair, got)
	})

	t.Run("getReserves", func(t *testing.T) {
		r0, r1, err := reader.GetReserves(ctx, pair)
		require.NoError(t, err)
		assert.Equal(t, "1000000", r0.String())
		assert.Equal(t, "2000000", r1.String())
	})

	t.Run("token0", func(t *testing.T) {
		got, err := reader.Token0(ctx, pair)
		require.NoError(t, err)
		assert.Equal(t, usdc, got)
	})

	t.Run("decimals", func(t *testing.T) {
		dec, err := reader.Decimals(ctx, usdc)
		require.NoError(t, err)
		assert.Equal(t, uint8(6), dec)
	})

	t.Run("revert surfaces as error", func(t *testing.T) {
		_, err := reader.Decimals(ctx, weth)
		assert.ErrorContains(t, err, "decimals")
	})
}

func TestEthReader_BacksOracle(t *testing.T) {
	factory := factoryAddr(0)
	pair := pairAddr(0)

	caller := &fakeCaller{}
	caller.set(factory, "getPair", pair)
	// token0 is weth, so raw reserves are stored weth-first.
	caller.set(pair, "token0", weth)
	caller.set(pair, "getReserves", big.NewInt(50), big.NewInt(100_000), uint32(0))

	o := newTestOracle(t, NewEthReader(caller), 1)

	r, ok := o.GetReserves(context.Background(), usdc, weth)
	require.True(t, ok)
	assert.Equal(t, "100000", r.In.String())
	assert.Equal(t, "50", r.Out.String())
}
