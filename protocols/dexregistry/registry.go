package dexregistry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrDuplicateDex = errors.New("duplicate dex")
	ErrInvalidDex   = errors.New("invalid dex")
)

// Dex is a Uniswap V2 fork: a router used for execution and a factory used for pair discovery.
type Dex struct {
	Name    string         `json:"name" yaml:"name"`
	Router  common.Address `json:"router" yaml:"router"`
	Factory common.Address `json:"factory" yaml:"factory"`
	FeeBps  uint16         `json:"feeBps" yaml:"fee_bps"`
}

// Registry is an ordered, read-only set of DEXs. Iteration order is the configured order.
type Registry struct {
	dexes    []Dex
	byName   map[string]int
	byRouter map[common.Address]int
}

// New validates dexes and indexes them. A zero FeeBps is replaced by defaultFeeBps.
func New(dexes []Dex, defaultFeeBps uint16) (*Registry, error) {
	r := &Registry{
		dexes:    make([]Dex, 0, len(dexes)),
		byName:   make(map[string]int, len(dexes)),
		byRouter: make(map[common.Address]int, len(dexes)),
	}
	for _, d := range dexes {
		if d.Name == "" {
			return nil, fmt.Errorf("%w: missing name", ErrInvalidDex)
		}
		if d.Factory == (common.Address{}) {
			return nil, fmt.Errorf("%w: %s has no factory", ErrInvalidDex, d.Name)
		}
		if d.FeeBps == 0 {
			d.FeeBps = defaultFeeBps
		}
		if d.FeeBps >= 10000 {
			return nil, fmt.Errorf("%w: %s fee %d bps", ErrInvalidDex, d.Name, d.FeeBps)
		}
		key := strings.ToLower(d.Name)
		if _, exists := r.byName[key]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDex, d.Name)
		}
		r.byName[key] = len(r.dexes)
		if d.Router != (common.Address{}) {
			r.byRouter[d.Router] = len(r.dexes)
		}
		r.dexes = append(r.dexes, d)
	}
	return r, nil
}

// All returns the DEXs in configured order.
func (r *Registry) All() []Dex {
	out := make([]Dex, len(r.dexes))
	copy(out, r.dexes)
	return out
}

// Len returns the number of DEXs.
func (r *Registry) Len() int { return len(r.dexes) }

// GetByName looks a DEX up by name, ignoring case.
func (r *Registry) GetByName(name string) (Dex, bool) {
	i, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return Dex{}, false
	}
	return r.dexes[i], true
}

// ByRouter returns the DEX owning router.
func (r *Registry) ByRouter(router common.Address) (Dex, bool) {
	i, ok := r.byRouter[router]
	if !ok {
		return Dex{}, false
	}
	return r.dexes[i], true
}

// IsRouter reports whether addr is a known router.
func (r *Registry) IsRouter(addr common.Address) bool {
	_, ok := r.byRouter[addr]
	return ok
}
