package routing

import "sort"

// MLST is a maximum-leaf spanning tree rooted at Root (spec section
// 4.5.4 step 2): Parent maps every non-root node to its tree parent, and
// Children is the reverse adjacency used to test leaf-ness and to walk
// the path-inclusion check in step 3.
type MLST struct {
	Root     int
	Parent   map[int]int
	Children map[int][]int
}

// IsLeaf reports whether n is a leaf of the tree (no children and not the
// root), per spec section 3's MLST invariant.
func (t *MLST) IsLeaf(n int) bool {
	return n != t.Root && len(t.Children[n]) == 0
}

// Contains reports whether n is part of the tree.
func (t *MLST) Contains(n int) bool {
	if n == t.Root {
		return true
	}
	_, ok := t.Parent[n]
	return ok
}

// PathExists reports whether every consecutive pair in path is a parent-
// child edge of the tree, i.e. path is a downward walk along tree edges
// (spec section 4.5.4 step 3: "the extended path p+[self] exists in the
// MLST").
func (t *MLST) PathExists(path []int) bool {
	for i := 0; i+1 < len(path); i++ {
		a, b := path[i], path[i+1]
		if parent, ok := t.Parent[b]; !ok || parent != a {
			return false
		}
	}
	return true
}

// BuildMLST constructs a maximum-leaf spanning tree over the 2-hop
// subgraph around src using the heuristic from spec section 4.5.4 step 2:
// root's direct neighbors join first; each further round picks the
// not-yet-included node whose live neighbors would connect the most
// still-unconnected nodes (ties: higher original-graph degree, then
// lower id), and attaches it to whichever already-included neighbor of it
// currently has the most tree children.
func BuildMLST(graph *LocalGraph, src int) *MLST {
	nodes, edges := graph.Subgraph2Hop(src)

	tree := &MLST{Root: src, Parent: make(map[int]int), Children: make(map[int][]int)}
	included := map[int]bool{src: true}

	var oneHop []int
	for n := range edges[src] {
		oneHop = append(oneHop, n)
	}
	sort.Ints(oneHop)
	for _, n := range oneHop {
		if included[n] {
			continue
		}
		attach(tree, src, n)
		included[n] = true
	}

	remaining := make(map[int]bool)
	for _, n := range nodes {
		if !included[n] {
			remaining[n] = true
		}
	}

	for len(remaining) > 0 {
		best, bestScore, bestDegree := -1, -1, -1
		for n := range remaining {
			score := 0
			for m := range edges[n] {
				if remaining[m] {
					score++
				}
			}
			degree := graph.Degree(n)
			if score > bestScore ||
				(score == bestScore && degree > bestDegree) ||
				(score == bestScore && degree == bestDegree && (best == -1 || n < best)) {
				best, bestScore, bestDegree = n, score, degree
			}
		}
		if best == -1 {
			break
		}

		parent := bestConnectedNeighbor(tree, edges, best, included)
		attach(tree, parent, best)
		included[best] = true
		delete(remaining, best)
	}

	return tree
}

func attach(t *MLST, parent, child int) {
	t.Parent[child] = parent
	t.Children[parent] = append(t.Children[parent], child)
}

// bestConnectedNeighbor picks, among already-included nodes adjacent to n
// in the subgraph, the one with the most tree children (spec section
// 4.5.4 step 2's attachment rule). Falls back to the tree root if n has
// no already-included neighbor (disconnected in the 2-hop view).
func bestConnectedNeighbor(t *MLST, edges map[int]map[int]bool, n int, included map[int]bool) int {
	best, bestChildren := -1, -1
	for m := range edges[n] {
		if !included[m] {
			continue
		}
		if c := len(t.Children[m]); c > bestChildren || best == -1 {
			best, bestChildren = m, c
		}
	}
	if best == -1 {
		return t.Root
	}
	return best
}
