package tokenregistry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrDuplicateToken is returned when the same address or symbol is listed twice.
	ErrDuplicateToken = errors.New("duplicate token")
	// ErrZeroAddress is returned for a token without an address.
	ErrZeroAddress = errors.New("token address is zero")
)

// Registry provides fast, indexed access to the token whitelist.
// It is immutable after construction and safe for concurrent reads.
type Registry struct {
	byAddress map[common.Address]Token
	bySymbol  map[string]Token
	all       []Token
}

// NewRegistry indexes tokens, preserving their configured order.
func NewRegistry(tokens []Token) (*Registry, error) {
	byAddress := make(map[common.Address]Token, len(tokens))
	bySymbol := make(map[string]Token, len(tokens))
	all := make([]Token, 0, len(tokens))

	for _, t := range tokens {
		if t.Address == (common.Address{}) {
			return nil, fmt.Errorf("%w: %q", ErrZeroAddress, t.Symbol)
		}
		if _, exists := byAddress[t.Address]; exists {
			return nil, fmt.Errorf("%w: address %s", ErrDuplicateToken, t.Address.Hex())
		}
		if t.Symbol != "" {
			key := strings.ToUpper(t.Symbol)
			if _, exists := bySymbol[key]; exists {
				return nil, fmt.Errorf("%w: symbol %s", ErrDuplicateToken, t.Symbol)
			}
			bySymbol[key] = t
		}
		byAddress[t.Address] = t
		all = append(all, t)
	}

	return &Registry{
		byAddress: byAddress,
		bySymbol:  bySymbol,
		all:       all,
	}, nil
}

// GetByAddress retrieves a token by its contract address.
func (r *Registry) GetByAddress(address common.Address) (Token, bool) {
	t, ok := r.byAddress[address]
	return t, ok
}

// GetBySymbol retrieves a token by symbol, ignoring case.
func (r *Registry) GetBySymbol(symbol string) (Token, bool) {
	t, ok := r.bySymbol[strings.ToUpper(symbol)]
	return t, ok
}

// All returns a defensive copy of all tokens in configured order.
func (r *Registry) All() []Token {
	allCopy := make([]Token, len(r.all))
	copy(allCopy, r.all)
	return allCopy
}

// Addresses returns the token universe in configured order.
func (r *Registry) Addresses() []common.Address {
	out := make([]common.Address, len(r.all))
	for i, t := range r.all {
		out[i] = t.Address
	}
	return out
}

// Hubs returns the addresses of tokens flagged as hubs.
func (r *Registry) Hubs() []common.Address {
	var out []common.Address
	for _, t := range r.all {
		if t.Hub {
			out = append(out, t.Address)
		}
	}
	return out
}

// Symbol returns the configured symbol, or a shortened hex form for unknown tokens.
func (r *Registry) Symbol(address common.Address) string {
	if t, ok := r.byAddress[address]; ok && t.Symbol != "" {
		return t.Symbol
	}
	return address.Hex()[:6] + "..."
}
