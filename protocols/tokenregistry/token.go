package tokenregistry

import "github.com/ethereum/go-ethereum/common"

// Token is a whitelisted ERC20 the scanner is allowed to route through.
type Token struct {
	Address  common.Address `json:"address" yaml:"address"`
	Symbol   string         `json:"symbol" yaml:"symbol"`
	Name     string         `json:"name,omitempty" yaml:"name"`
	Decimals uint8          `json:"decimals,omitempty" yaml:"decimals"` // 0 means resolve on-chain
	// Hub marks a start token: cycles are searched from hubs only.
	Hub bool `json:"hub,omitempty" yaml:"hub"`
}
