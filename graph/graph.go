package graph

import (
	"context"
	"slices"

	"github.com/defistate/defistate-arb-go/engine"
	"github.com/ethereum/go-ethereum/common"
)

// ReserveSource is the subset of the reserve oracle the graph needs.
type ReserveSource interface {
	GetAllReservesForPair(ctx context.Context, tokenA, tokenB common.Address) []engine.Quote
	GetReserves(ctx context.Context, tokenIn, tokenOut common.Address) (engine.Reserves, bool)
}

// Graph is a directed multigraph of tradeable token pairs. An edge from -> to
// carries the ordered set of DEXs offering that swap. Iteration follows
// insertion order, so traversals are deterministic for a given build.
// A Graph is read-only once built and safe for concurrent readers.
type Graph struct {
	tokens       []common.Address
	tokenToIndex map[common.Address]int

	adjacency   [][]int    // vertex index -> edge indices
	edgeTargets []int      // edge index -> target vertex index
	edgeDexes   [][]string // edge index -> dex names
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{tokenToIndex: make(map[common.Address]int)}
}

func (g *Graph) vertex(token common.Address) int {
	if i, ok := g.tokenToIndex[token]; ok {
		return i
	}
	i := len(g.tokens)
	g.tokens = append(g.tokens, token)
	g.tokenToIndex[token] = i
	g.adjacency = append(g.adjacency, nil)
	return i
}

// AddEdge records that dex can swap from -> to. Repeated DEXs are ignored.
func (g *Graph) AddEdge(from, to common.Address, dex string) {
	if from == to {
		return
	}
	fi, ti := g.vertex(from), g.vertex(to)
	for _, e := range g.adjacency[fi] {
		if g.edgeTargets[e] == ti {
			if !slices.Contains(g.edgeDexes[e], dex) {
				g.edgeDexes[e] = append(g.edgeDexes[e], dex)
			}
			return
		}
	}
	e := len(g.edgeTargets)
	g.edgeTargets = append(g.edgeTargets, ti)
	g.edgeDexes = append(g.edgeDexes, []string{dex})
	g.adjacency[fi] = append(g.adjacency[fi], e)
}

// Tokens returns the vertices in insertion order.
func (g *Graph) Tokens() []common.Address {
	return slices.Clone(g.tokens)
}

// Neighbors returns the tokens reachable in one hop from token, in insertion order.
func (g *Graph) Neighbors(token common.Address) []common.Address {
	fi, ok := g.tokenToIndex[token]
	if !ok {
		return nil
	}
	out := make([]common.Address, 0, len(g.adjacency[fi]))
	for _, e := range g.adjacency[fi] {
		out = append(out, g.tokens[g.edgeTargets[e]])
	}
	return out
}

// Dexes returns the DEXs offering from -> to, deepest pool first.
func (g *Graph) Dexes(from, to common.Address) []string {
	fi, ok := g.tokenToIndex[from]
	if !ok {
		return nil
	}
	ti, ok := g.tokenToIndex[to]
	if !ok {
		return nil
	}
	for _, e := range g.adjacency[fi] {
		if g.edgeTargets[e] == ti {
			return slices.Clone(g.edgeDexes[e])
		}
	}
	return nil
}

// EdgeCount returns the number of (from, to, dex) edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, dexes := range g.edgeDexes {
		n += len(dexes)
	}
	return n
}

// BuildGraph queries every unordered pair of tokens and adds an edge in both
// directions for each DEX whose pool has both reserves strictly positive.
// An edge lists its DEXs by descending reserve product; ties keep DEX order.
// Building stops early, returning the partial graph and the context error,
// when ctx is cancelled.
func BuildGraph(ctx context.Context, source ReserveSource, tokens []common.Address) (*Graph, error) {
	g := NewGraph()
	for _, t := range tokens {
		g.vertex(t)
	}
	for i := 0; i < len(tokens); i++ {
		for j := i + 1; j < len(tokens); j++ {
			if err := ctx.Err(); err != nil {
				return g, err
			}
			a, b := tokens[i], tokens[j]
			quotes := slices.DeleteFunc(slices.Clone(source.GetAllReservesForPair(ctx, a, b)), func(q engine.Quote) bool {
				return !q.Reserves.Valid()
			})
			slices.SortStableFunc(quotes, func(x, y engine.Quote) int {
				return y.Reserves.Product().Cmp(x.Reserves.Product())
			})
			for _, q := range quotes {
				g.AddEdge(a, b, q.Dex)
				g.AddEdge(b, a, q.Dex)
			}
		}
	}
	return g, nil
}
