package mempool

import (
	"math/big"
	"testing"

	"github.com/defistate/defistate-arb-go/protocols/dexregistry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	router      = common.HexToAddress("0xa5E0829CaCEd8fFDD4De3c43696c57F7D7A678ff")
	otherRouter = common.HexToAddress("0x1b02dA8Cb0d097eB8D57A175b88c7D8b47997506")
)

// testRouters registers router for quickswap and a sushiswap entry without one.
func testRouters(t *testing.T) *dexregistry.Registry {
	t.Helper()
	reg, err := dexregistry.New([]dexregistry.Dex{
		{Name: "quickswap", Router: router, Factory: common.HexToAddress("0x5757371414417b8C6CAad45bAeF941aBc7d3Ab32")},
		{Name: "sushiswap", Factory: common.HexToAddress("0xc35DADB65012eC5796536bD9864eD8773aBc74C4")},
	}, 30)
	require.NoError(t, err)
	return reg
}

func swapData(selector string) []byte {
	data := hexutil.MustDecode(selector)
	return append(data, make([]byte, 64)...)
}

func unsignedTx(to *common.Address, data []byte) *types.Transaction {
	return types.NewTx(&types.LegacyTx{To: to, Gas: 200_000, GasPrice: big.NewInt(1), Data: data})
}

func TestParseSelectors(t *testing.T) {
	sels, err := ParseSelectors(DefaultSwapSelectors)
	require.NoError(t, err)
	assert.Len(t, sels, 6)
	assert.Equal(t, Selector{0x38, 0xed, 0x17, 0x39}, sels[0])

	_, err = ParseSelectors([]string{"0x38ed17"})
	assert.Error(t, err)
	_, err = ParseSelectors([]string{"38ed1739"})
	assert.Error(t, err)
}

func TestSwapFilter(t *testing.T) {
	sels, err := ParseSelectors(DefaultSwapSelectors)
	require.NoError(t, err)
	f := NewSwapFilter(testRouters(t), sels)

	testCases := []struct {
		name string
		tx   *types.Transaction
		want bool
	}{
		{"swapExactTokensForTokens on router", unsignedTx(&router, swapData("0x38ed1739")), true},
		{"swapTokensForExactETH on router", unsignedTx(&router, swapData("0x4a25d94a")), true},
		{"addLiquidity on router", unsignedTx(&router, swapData("0xe8e33700")), false},
		{"swap on unknown router", unsignedTx(&otherRouter, swapData("0x38ed1739")), false},
		{"plain transfer to router", unsignedTx(&router, nil), false},
		{"short calldata", unsignedTx(&router, []byte{0x38, 0xed}), false},
		{"contract creation", unsignedTx(nil, swapData("0x38ed1739")), false},
		{"nil transaction", nil, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, f.Match(tc.tx))
		})
	}
}

func TestSwapFilter_DexOf(t *testing.T) {
	f := NewSwapFilter(testRouters(t), nil)

	assert.Equal(t, "quickswap", f.DexOf(unsignedTx(&router, swapData("0x38ed1739"))))
	assert.Equal(t, "", f.DexOf(unsignedTx(&otherRouter, swapData("0x38ed1739"))))
	assert.Equal(t, "", f.DexOf(unsignedTx(nil, nil)))
	assert.Equal(t, "", f.DexOf(nil))
}
