package engine

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

var (
	tokA = common.HexToAddress("0x01")
	tokB = common.HexToAddress("0x02")
	tokC = common.HexToAddress("0x03")
)

func triangle() Path {
	return Path{Hops: []Hop{
		{TokenIn: tokA, TokenOut: tokB, Dex: "quickswap"},
		{TokenIn: tokB, TokenOut: tokC, Dex: "sushiswap"},
		{TokenIn: tokC, TokenOut: tokA, Dex: "quickswap"},
	}}
}

func TestPath_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		path    Path
		wantErr bool
	}{
		{name: "triangle", path: triangle()},
		{name: "two hop cycle", path: Path{Hops: []Hop{
			{TokenIn: tokA, TokenOut: tokB, Dex: "quickswap"},
			{TokenIn: tokB, TokenOut: tokA, Dex: "sushiswap"},
		}}},
		{name: "single hop", path: Path{Hops: []Hop{{TokenIn: tokA, TokenOut: tokA, Dex: "x"}}}, wantErr: true},
		{name: "not closed", path: Path{Hops: []Hop{
			{TokenIn: tokA, TokenOut: tokB, Dex: "x"},
			{TokenIn: tokB, TokenOut: tokC, Dex: "x"},
		}}, wantErr: true},
		{name: "broken chain", path: Path{Hops: []Hop{
			{TokenIn: tokA, TokenOut: tokB, Dex: "x"},
			{TokenIn: tokC, TokenOut: tokA, Dex: "x"},
		}}, wantErr: true},
		{name: "repeated intermediate", path: Path{Hops: []Hop{
			{TokenIn: tokA, TokenOut: tokB, Dex: "x"},
			{TokenIn: tokB, TokenOut: tokC, Dex: "x"},
			{TokenIn: tokC, TokenOut: tokB, Dex: "x"},
			{TokenIn: tokB, TokenOut: tokA, Dex: "x"},
		}}, wantErr: true},
		{name: "start revisited early", path: Path{Hops: []Hop{
			{TokenIn: tokA, TokenOut: tokB, Dex: "x"},
			{TokenIn: tokB, TokenOut: tokA, Dex: "x"},
			{TokenIn: tokA, TokenOut: tokC, Dex: "x"},
			{TokenIn: tokC, TokenOut: tokA, Dex: "x"},
		}}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.path.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPath_Accessors(t *testing.T) {
	p := triangle()
	assert.Equal(t, tokA, p.Start())
	assert.Equal(t, []common.Address{tokA, tokB, tokC, tokA}, p.Tokens())

	names := map[common.Address]string{tokA: "USDC", tokB: "WETH", tokC: "DAI"}
	assert.Equal(t, "USDC -> WETH (quickswap) -> DAI (sushiswap) -> USDC (quickswap)",
		p.Format(func(a common.Address) string { return names[a] }))

	other := triangle()
	other.Hops[1].Dex = "apeswap"
	assert.NotEqual(t, p.Key(), other.Key())
	assert.Equal(t, p.Key(), triangle().Key())
}

func TestReserves(t *testing.T) {
	r := Reserves{In: big.NewInt(1000), Out: big.NewInt(2000)}
	assert.True(t, r.Valid())
	assert.Equal(t, "2000000", r.Product().String())
	assert.Equal(t, "1414", r.GeometricMean().String())

	empty := Reserves{In: big.NewInt(0), Out: big.NewInt(5)}
	assert.False(t, empty.Valid())
	assert.Equal(t, "0", empty.Product().String())
}

func TestScanState_String(t *testing.T) {
	assert.Equal(t, "IDLE", StateIdle.String())
	assert.Equal(t, "BUILDING_CACHE", StateBuildingCache.String())
	assert.Equal(t, "SCANNING", StateScanning.String())
	assert.Equal(t, "EXECUTING", StateExecuting.String())
}
