package graph

import (
	"context"
	"math/big"
	"slices"
	"sort"

	"github.com/defistate/defistate-arb-go/bitset"
	"github.com/defistate/defistate-arb-go/engine"
	"github.com/ethereum/go-ethereum/common"
)

// frontierItem is a partial path during the breadth-first search.
type frontierItem struct {
	vertex int
	hops   []engine.Hop
	known  bitset.BitSet // vertices already on the path
}

// SearchOptions bounds cycle enumeration.
type SearchOptions struct {
	MaxHops int
	// MaxPaths stops enumeration once reached; <= 0 means no limit.
	MaxPaths int
	// DexVariants emits one path per DEX assignment. Otherwise one path is
	// emitted per token route, each hop on the deepest DEX of its edge.
	DexVariants bool
}

func (o SearchOptions) full(paths []engine.Path) bool {
	return o.MaxPaths > 0 && len(paths) >= o.MaxPaths
}

// hopDexes returns the DEXs a hop over edge e is expanded to.
func (g *Graph) hopDexes(e int, variants bool) []string {
	if variants {
		return g.edgeDexes[e]
	}
	return g.edgeDexes[e][:1]
}

// FindPaths enumerates simple cycles from start of 2 up to opts.MaxHops hops,
// breadth-first. No token other than start repeats. A two-hop cycle that
// would trade through the same pool in both directions is skipped.
func FindPaths(g *Graph, start common.Address, opts SearchOptions) []engine.Path {
	startIndex, ok := g.tokenToIndex[start]
	if !ok || opts.MaxHops < 2 {
		return nil
	}

	numTokens := uint64(len(g.tokens))
	root := bitset.NewBitSet(numTokens)
	root.Set(uint64(startIndex))

	var paths []engine.Path
	queue := []frontierItem{{vertex: startIndex, known: root}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		depth := len(item.hops)
		if depth >= opts.MaxHops {
			continue
		}
		from := g.tokens[item.vertex]

		for _, e := range g.adjacency[item.vertex] {
			target := g.edgeTargets[e]
			to := g.tokens[target]

			if target == startIndex {
				if depth+1 < 2 {
					continue
				}
				for _, dex := range g.hopDexes(e, opts.DexVariants) {
					if depth == 1 && item.hops[0].Dex == dex {
						continue
					}
					hops := make([]engine.Hop, depth+1)
					copy(hops, item.hops)
					hops[depth] = engine.Hop{TokenIn: from, TokenOut: to, Dex: dex}
					paths = append(paths, engine.Path{Hops: hops})
					if opts.full(paths) {
						return paths
					}
				}
				continue
			}

			if item.known.IsSet(uint64(target)) || depth+1 >= opts.MaxHops {
				continue
			}

			known := item.known.With(uint64(target))
			for _, dex := range g.hopDexes(e, opts.DexVariants) {
				hops := make([]engine.Hop, depth+1)
				copy(hops, item.hops)
				hops[depth] = engine.Hop{TokenIn: from, TokenOut: to, Dex: dex}
				queue = append(queue, frontierItem{vertex: target, hops: hops, known: known})
			}
		}
	}
	return paths
}

// FindTriangularPaths enumerates strictly 3-hop cycles start -> B -> C -> start.
// opts.MaxHops is ignored.
func FindTriangularPaths(g *Graph, start common.Address, opts SearchOptions) []engine.Path {
	s, ok := g.tokenToIndex[start]
	if !ok {
		return nil
	}

	var paths []engine.Path
	for _, e1 := range g.adjacency[s] {
		b := g.edgeTargets[e1]
		for _, e2 := range g.adjacency[b] {
			c := g.edgeTargets[e2]
			if c == s {
				continue
			}
			e3 := g.edgeBetween(c, s)
			if e3 < 0 {
				continue
			}
			tb, tc := g.tokens[b], g.tokens[c]
			for _, d1 := range g.hopDexes(e1, opts.DexVariants) {
				for _, d2 := range g.hopDexes(e2, opts.DexVariants) {
					for _, d3 := range g.hopDexes(e3, opts.DexVariants) {
						paths = append(paths, engine.Path{Hops: []engine.Hop{
							{TokenIn: start, TokenOut: tb, Dex: d1},
							{TokenIn: tb, TokenOut: tc, Dex: d2},
							{TokenIn: tc, TokenOut: start, Dex: d3},
						}})
						if opts.full(paths) {
							return paths
						}
					}
				}
			}
		}
	}
	return paths
}

func (g *Graph) edgeBetween(from, to int) int {
	for _, e := range g.adjacency[from] {
		if g.edgeTargets[e] == to {
			return e
		}
	}
	return -1
}

// RankByLiquidity scores each path by the sum over hops of the geometric mean
// of the deepest pool's reserves and returns the paths sorted by score,
// highest first. Equal scores keep their input order. Hops without reserves
// contribute zero. Reserves are fetched fresh, once per distinct hop direction.
func RankByLiquidity(ctx context.Context, source ReserveSource, paths []engine.Path) []engine.Path {
	type direction struct{ in, out common.Address }
	scores := make(map[direction]*big.Int)

	ranked := make([]engine.Path, len(paths))
	for i, p := range paths {
		total := new(big.Int)
		for _, h := range p.Hops {
			d := direction{h.TokenIn, h.TokenOut}
			score, ok := scores[d]
			if !ok {
				score = new(big.Int)
				if r, found := source.GetReserves(ctx, h.TokenIn, h.TokenOut); found {
					score = r.GeometricMean()
				}
				scores[d] = score
			}
			total.Add(total, score)
		}
		ranked[i] = engine.Path{Hops: slices.Clone(p.Hops), Liquidity: total}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Liquidity.Cmp(ranked[j].Liquidity) > 0
	})
	return ranked
}
