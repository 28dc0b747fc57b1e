package uniswapv2

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultFeeBps is the swap fee charged by Uniswap V2 forks (0.3%).
const DefaultFeeBps uint16 = 30

// Pool is a snapshot of a single V2 pair contract.
type Pool struct {
	Address  common.Address `json:"address"`
	Dex      string         `json:"dex"`
	Token0   common.Address `json:"token0"`
	Token1   common.Address `json:"token1"`
	Reserve0 *big.Int       `json:"reserve0"`
	Reserve1 *big.Int       `json:"reserve1"`
	FeeBps   uint16         `json:"feeBps"` // i.e 30 for 0.3%
}

