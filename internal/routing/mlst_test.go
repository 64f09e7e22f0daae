package routing_test

import (
	"testing"

	"github.com/dantte-lp/dronesim/internal/routing"
)

// TestMLSTLinearChainInternalNodesHaveTwoNeighbors is spec.md section 8's
// MLST invariant applied to a 5-node chain (scenario 5): every internal
// node has >=2 tree neighbors, every leaf exactly 1, root is never a leaf.
// The tree is rooted at the middle node so that its 2-hop subgraph, which
// BuildMLST spans, covers the whole chain.
func TestMLSTLinearChainInternalNodesHaveTwoNeighbors(t *testing.T) {
	t.Parallel()

	g := routing.NewLocalGraph(1_000_000)
	g.Touch(0, 1, 0)
	g.Touch(1, 2, 0)
	g.Touch(2, 3, 0)
	g.Touch(3, 4, 0)

	tree := routing.BuildMLST(g, 2)

	treeNeighborCount := func(n int) int {
		count := len(tree.Children[n])
		if _, hasParent := tree.Parent[n]; hasParent {
			count++
		}
		return count
	}

	if tree.IsLeaf(tree.Root) {
		t.Fatal("root reported as leaf in a connected, non-trivial graph")
	}

	for _, n := range []int{0, 1, 2, 3, 4} {
		c := treeNeighborCount(n)
		if n == tree.Root {
			if c < 1 {
				t.Fatalf("root %d has %d tree neighbors, want >=1", n, c)
			}
			continue
		}
		if tree.IsLeaf(n) && c != 1 {
			t.Fatalf("leaf %d has %d tree neighbors, want exactly 1", n, c)
		}
		if !tree.IsLeaf(n) && c < 2 {
			t.Fatalf("internal node %d has %d tree neighbors, want >=2", n, c)
		}
	}
}

func TestMLSTPathExists(t *testing.T) {
	t.Parallel()

	g := routing.NewLocalGraph(1_000_000)
	g.Touch(0, 1, 0)
	g.Touch(1, 2, 0)

	tree := routing.BuildMLST(g, 0)

	if !tree.PathExists([]int{0, 1, 2}) {
		t.Fatal("PathExists([0,1,2]) = false, want true")
	}
	if tree.PathExists([]int{0, 2, 1}) {
		t.Fatal("PathExists([0,2,1]) = true, want false")
	}
}
