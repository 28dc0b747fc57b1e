package uniswapv2

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const factoryABIJSON = `[
	{"constant":true,"inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],"name":"getPair","outputs":[{"name":"pair","type":"address"}],"stateMutability":"view","type":"function"}
]`

const pairABIJSON = `[
	{"constant":true,"inputs":[],"name":"getReserves","outputs":[{"name":"_reserve0","type":"uint112"},{"name":"_reserve1","type":"uint112"},{"name":"_blockTimestampLast","type":"uint32"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"token0","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"token1","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

const erc20ABIJSON = `[
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

var (
	// FactoryABI exposes getPair.
	FactoryABI = mustParse(factoryABIJSON)
	// PairABI exposes getReserves, token0 and token1.
	PairABI = mustParse(pairABIJSON)
	// ERC20ABI exposes the metadata calls the oracle needs.
	ERC20ABI = mustParse(erc20ABIJSON)
)

func mustParse(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
