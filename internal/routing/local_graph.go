package routing

import "github.com/dantte-lp/dronesim/internal/scheduler"

// LocalGraph is PrudentCaster's undirected, time-stamped adjacency view of
// the network as seen from one drone (spec section 3: "Prudent local
// graph"). An edge not refreshed within staleWindow is considered gone.
type LocalGraph struct {
	edges      map[int]map[int]scheduler.VTime
	staleWindow scheduler.VTime
}

// NewLocalGraph creates an empty graph with the given staleness window.
func NewLocalGraph(staleWindow scheduler.VTime) *LocalGraph {
	return &LocalGraph{edges: make(map[int]map[int]scheduler.VTime), staleWindow: staleWindow}
}

// Touch refreshes (or creates) the edge a-b as seen at time now.
func (g *LocalGraph) Touch(a, b int, now scheduler.VTime) {
	if a == b {
		return
	}
	g.ensure(a)[b] = now
	g.ensure(b)[a] = now
}

func (g *LocalGraph) ensure(n int) map[int]scheduler.VTime {
	m, ok := g.edges[n]
	if !ok {
		m = make(map[int]scheduler.VTime)
		g.edges[n] = m
	}
	return m
}

// Prune removes edges not refreshed within staleWindow of now.
func (g *LocalGraph) Prune(now scheduler.VTime) {
	for n, adj := range g.edges {
		for m, t := range adj {
			if now-t > g.staleWindow {
				delete(adj, m)
				if peer, ok := g.edges[m]; ok {
					delete(peer, n)
				}
			}
		}
		if len(adj) == 0 {
			delete(g.edges, n)
		}
	}
}

// Neighbors returns the current live neighbors of n.
func (g *LocalGraph) Neighbors(n int) []int {
	adj, ok := g.edges[n]
	if !ok {
		return nil
	}
	out := make([]int, 0, len(adj))
	for m := range adj {
		out = append(out, m)
	}
	return out
}

// Degree returns the number of live neighbors of n.
func (g *LocalGraph) Degree(n int) int { return len(g.edges[n]) }

// Subgraph2Hop extracts the 2-hop neighborhood of src: src itself, its
// direct neighbors, and their neighbors (spec section 4.5.4 step 1).
func (g *LocalGraph) Subgraph2Hop(src int) (nodes []int, edges map[int]map[int]bool) {
	seen := map[int]bool{src: true}
	order := []int{src}

	oneHop := g.Neighbors(src)
	for _, n := range oneHop {
		if !seen[n] {
			seen[n] = true
			order = append(order, n)
		}
	}
	for _, n := range oneHop {
		for _, m := range g.Neighbors(n) {
			if !seen[m] {
				seen[m] = true
				order = append(order, m)
			}
		}
	}

	edges = make(map[int]map[int]bool, len(order))
	for _, n := range order {
		edges[n] = make(map[int]bool)
	}
	for _, n := range order {
		for m := range g.edges[n] {
			if seen[m] {
				edges[n][m] = true
				edges[m][n] = true
			}
		}
	}
	return order, edges
}
