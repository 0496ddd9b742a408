// Package graph builds a token graph from a pool universe and enumerates
// cyclic trade routes. The adjacency structure is rebuilt on every search
// from the caller's pool list; nothing is retained between calls.
package graph

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/Omni-Defi-Production-System1/execution-lane/types"
)

// edge is one direction of a pool: entering with the implied token-in and
// leaving at to.
type edge struct {
	to   common.Address
	pool *types.Pool
}

// poolGraph is an undirected multigraph: every pool contributes one edge in
// each direction, so parallel pools between the same token pair appear as
// separate edges. Adjacency order follows the input pool list, keeping
// traversal deterministic.
type poolGraph struct {
	adj map[common.Address][]edge
}

func buildGraph(pools []*types.Pool) *poolGraph {
	g := &poolGraph{adj: make(map[common.Address][]edge, len(pools)*2)}
	for _, pool := range pools {
		if pool == nil || pool.Validate() != nil {
			continue
		}
		g.adj[pool.Token0] = append(g.adj[pool.Token0], edge{to: pool.Token1, pool: pool})
		g.adj[pool.Token1] = append(g.adj[pool.Token1], edge{to: pool.Token0, pool: pool})
	}
	return g
}

func (g *poolGraph) neighbors(token common.Address) []edge {
	return g.adj[token]
}
