package engine

import "github.com/scrypster/recall/pkg/types"

// Neighborhood depth limits.
const (
	MinGraphDepth     = 1
	MaxGraphDepth     = 3
	DefaultGraphDepth = 1
)

// ClampDepth bounds a requested traversal depth to [MinGraphDepth,
// MaxGraphDepth].
func ClampDepth(depth int) int {
	return min(max(depth, MinGraphDepth), MaxGraphDepth)
}

// NodesWithinDepth returns every node reachable from center in at most
// maxDepth hops, with its hop distance. Edges are treated as undirected and
// each node is visited once, so the work is bounded by maxDepth passes over
// edges. center is always present at distance 0.
func NodesWithinDepth(center string, edges []*types.Relationship, maxDepth int) map[string]int {
	reachable := map[string]int{center: 0}
	frontier := map[string]bool{center: true}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		next := make(map[string]bool)
		for _, e := range edges {
			if e == nil {
				continue
			}
			visit := func(from, to string) {
				if !frontier[from] {
					return
				}
				if _, seen := reachable[to]; seen {
					return
				}
				reachable[to] = depth
				next[to] = true
			}
			visit(e.SourceID, e.TargetID)
			visit(e.TargetID, e.SourceID)
		}
		frontier = next
	}
	return reachable
}
