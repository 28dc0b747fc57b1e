package oracle

import (
	"github.com/ethereum/go-ethereum/common"
	gocache "github.com/patrickmn/go-cache"
)

// PairCache memoizes factory pair lookups. Entries never expire: a pair address
// is an immutable on-chain fact. The zero address is cached too and means
// "this factory has no pair".
type PairCache struct {
	store *gocache.Cache
}

// NewPairCache returns an empty cache.
func NewPairCache() *PairCache {
	return &PairCache{store: gocache.New(gocache.NoExpiration, 0)}
}

func pairKey(factory, tokenA, tokenB common.Address) string {
	b := make([]byte, 0, 3*common.AddressLength)
	b = append(b, factory[:]...)
	b = append(b, tokenA[:]...)
	b = append(b, tokenB[:]...)
	return string(b)
}

// Get returns the cached pair for (factory, tokenA, tokenB).
func (c *PairCache) Get(factory, tokenA, tokenB common.Address) (common.Address, bool) {
	v, ok := c.store.Get(pairKey(factory, tokenA, tokenB))
	if !ok {
		return common.Address{}, false
	}
	return v.(common.Address), true
}

// Put stores pair under both token orderings.
func (c *PairCache) Put(factory, tokenA, tokenB, pair common.Address) {
	c.store.Set(pairKey(factory, tokenA, tokenB), pair, gocache.NoExpiration)
	c.store.Set(pairKey(factory, tokenB, tokenA), pair, gocache.NoExpiration)
}

// Len returns the number of stored keys (two per pair).
func (c *PairCache) Len() int {
	return c.store.ItemCount()
}

// Clear drops every entry.
func (c *PairCache) Clear() {
	c.store.Flush()
}

// DecimalsCache memoizes ERC20 decimals by token address.
type DecimalsCache struct {
	store *gocache.Cache
}

// NewDecimalsCache returns an empty cache.
func NewDecimalsCache() *DecimalsCache {
	return &DecimalsCache{store: gocache.New(gocache.NoExpiration, 0)}
}

func (c *DecimalsCache) Get(token common.Address) (uint8, bool) {
	v, ok := c.store.Get(string(token[:]))
	if !ok {
		return 0, false
	}
	return v.(uint8), true
}

func (c *DecimalsCache) Put(token common.Address, decimals uint8) {
	c.store.Set(string(token[:]), decimals, gocache.NoExpiration)
}
