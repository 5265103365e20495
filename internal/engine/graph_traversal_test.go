package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scrypster/recall/pkg/types"
)

func edge(a, b string) *types.Relationship {
	return &types.Relationship{SourceID: a, TargetID: b, Type: "KNOWS"}
}

func TestClampDepth(t *testing.T) {
	assert.Equal(t, 1, ClampDepth(-5))
	assert.Equal(t, 1, ClampDepth(0))
	assert.Equal(t, 2, ClampDepth(2))
	assert.Equal(t, 3, ClampDepth(3))
	assert.Equal(t, 3, ClampDepth(99))
}

func TestNodesWithinDepthChain(t *testing.T) {
	// A - B - C - D - E
	edges := []*types.Relationship{edge("A", "B"), edge("C", "B"), edge("C", "D"), edge("D", "E")}

	assert.Equal(t, map[string]int{"A": 0, "B": 1}, NodesWithinDepth("A", edges, 1))
	assert.Equal(t, map[string]int{"A": 0, "B": 1, "C": 2, "D": 3}, NodesWithinDepth("A", edges, 3))
	assert.Equal(t, map[string]int{"C": 0, "B": 1, "D": 1, "A": 2, "E": 2}, NodesWithinDepth("C", edges, 2))
}

func TestNodesWithinDepthCycleVisitsOnce(t *testing.T) {
	// triangle plus a tail; the cycle must not shorten or repeat visits
	edges := []*types.Relationship{edge("A", "B"), edge("B", "C"), edge("C", "A"), edge("C", "D")}

	got := NodesWithinDepth("A", edges, 3)
	assert.Equal(t, map[string]int{"A": 0, "B": 1, "C": 1, "D": 2}, got)
}

func TestNodesWithinDepthIsolatedCenter(t *testing.T) {
	got := NodesWithinDepth("Z", []*types.Relationship{edge("A", "B"), nil}, 3)
	assert.Equal(t, map[string]int{"Z": 0}, got)
}

func TestNodesWithinDepthNeverExceedsDepth(t *testing.T) {
	// star of chains
	var edges []*types.Relationship
	for _, arm := range []string{"x", "y", "z"} {
		prev := "center"
		for i := 0; i < 6; i++ {
			next := arm + string(rune('0'+i))
			edges = append(edges, edge(prev, next))
			prev = next
		}
	}
	for depth := 1; depth <= 3; depth++ {
		got := NodesWithinDepth("center", edges, depth)
		assert.Len(t, got, 1+3*depth)
		for id, d := range got {
			assert.LessOrEqual(t, d, depth, id)
		}
	}
}
