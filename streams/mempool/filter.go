package mempool

import (
	"fmt"

	"github.com/defistate/defistate-arb-go/protocols/dexregistry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// Selector is a 4-byte function selector.
type Selector [4]byte

// DefaultSwapSelectors are the UniswapV2 router swap entry points.
var DefaultSwapSelectors = []string{
	"0x38ed1739", // swapExactTokensForTokens
	"0x8803dbee", // swapTokensForExactTokens
	"0x7ff36ab5", // swapExactETHForTokens
	"0x18cbafe5", // swapExactTokensForETH
	"0xfb3bdb41", // swapETHForExactTokens
	"0x4a25d94a", // swapTokensForExactETH
}

// ParseSelectors decodes 0x-prefixed 4-byte hex selectors.
func ParseSelectors(hexes []string) ([]Selector, error) {
	out := make([]Selector, 0, len(hexes))
	for _, h := range hexes {
		b, err := hexutil.Decode(h)
		if err != nil {
			return nil, fmt.Errorf("selector %q: %w", h, err)
		}
		if len(b) != 4 {
			return nil, fmt.Errorf("selector %q: want 4 bytes, got %d", h, len(b))
		}
		out = append(out, Selector(b))
	}
	return out, nil
}

// RouterIndex resolves router addresses to the DEX that owns them.
// *dexregistry.Registry implements it.
type RouterIndex interface {
	IsRouter(addr common.Address) bool
	ByRouter(router common.Address) (dexregistry.Dex, bool)
}

// SwapFilter matches pending transactions that call a swap selector on a
// known router.
type SwapFilter struct {
	routers   RouterIndex
	selectors map[Selector]struct{}
}

// NewSwapFilter builds a filter over the routers of index and selectors.
func NewSwapFilter(index RouterIndex, selectors []Selector) *SwapFilter {
	f := &SwapFilter{
		routers:   index,
		selectors: make(map[Selector]struct{}, len(selectors)),
	}
	for _, s := range selectors {
		f.selectors[s] = struct{}{}
	}
	return f
}

// Match reports whether tx is a swap on one of the routers.
func (f *SwapFilter) Match(tx *types.Transaction) bool {
	if tx == nil || tx.To() == nil {
		return false
	}
	if !f.routers.IsRouter(*tx.To()) {
		return false
	}
	data := tx.Data()
	if len(data) < 4 {
		return false
	}
	_, ok := f.selectors[Selector(data[:4])]
	return ok
}

// DexOf names the DEX whose router tx calls, or "" for any other target.
func (f *SwapFilter) DexOf(tx *types.Transaction) string {
	if tx == nil || tx.To() == nil {
		return ""
	}
	d, ok := f.routers.ByRouter(*tx.To())
	if !ok {
		return ""
	}
	return d.Name
}
