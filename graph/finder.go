package graph

import (
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Omni-Defi-Production-System1/execution-lane/types"
)

// DefaultMaxHops bounds route length. The search is exponential in the graph
// branching factor, so this must stay small.
const DefaultMaxHops = 4

// Finder enumerates cyclic routes back to a start token.
type Finder struct {
	maxHops int
	logger  *zap.Logger
}

// NewFinder creates a finder. maxHops <= 0 selects DefaultMaxHops; a nil
// logger is replaced with a no-op one.
func NewFinder(maxHops int, logger *zap.Logger) *Finder {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Finder{maxHops: maxHops, logger: logger}
}

// FindCycles returns every cyclic route of 2..maxHops hops that starts and
// ends at startToken. Tokens are the visited-tracking key: no token other
// than the start may repeat, and parallel pools between the same pair are
// explored as separate branches. No ordering is guaranteed; callers sort by
// their own criteria.
func (f *Finder) FindCycles(startToken common.Address, pools []*types.Pool) []*types.Route {
	g := buildGraph(pools)

	search := &cycleSearch{
		graph:   g,
		start:   startToken,
		maxHops: f.maxHops,
		visited: make(map[common.Address]struct{}),
	}
	search.dfs(startToken, nil, nil, 0)

	f.logger.Debug("Cycle search finished",
		zap.String("start_token", startToken.Hex()),
		zap.Int("pools", len(pools)),
		zap.Int("cycles", len(search.routes)))

	return search.routes
}

type cycleSearch struct {
	graph   *poolGraph
	start   common.Address
	maxHops int
	visited map[common.Address]struct{}
	routes  []*types.Route
}

// dfs walks outward from current. tokenPath and poolPath hold the hops taken
// so far, excluding current itself.
func (s *cycleSearch) dfs(current common.Address, tokenPath []common.Address, poolPath []*types.Pool, depth int) {
	if depth > s.maxHops {
		return
	}
	if depth >= 2 && current == s.start {
		tokens := make([]common.Address, len(tokenPath)+1)
		copy(tokens, tokenPath)
		tokens[len(tokenPath)] = current

		routePools := make([]*types.Pool, len(poolPath))
		copy(routePools, poolPath)

		s.routes = append(s.routes, &types.Route{Tokens: tokens, Pools: routePools})
		return
	}

	s.visited[current] = struct{}{}
	for _, e := range s.graph.neighbors(current) {
		if _, seen := s.visited[e.to]; seen && e.to != s.start {
			continue
		}
		s.dfs(e.to, append(tokenPath, current), append(poolPath, e.pool), depth+1)
	}
	delete(s.visited, current)
}
