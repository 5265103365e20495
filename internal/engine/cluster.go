package engine

import "github.com/scrypster/recall/pkg/types"

// UnionFind is a disjoint-set forest over node IDs.
type UnionFind struct {
	parent map[string]string
}

// NewUnionFind creates a forest with every id as its own singleton set.
func NewUnionFind(ids []string) *UnionFind {
	u := &UnionFind{parent: make(map[string]string, len(ids))}
	for _, id := range ids {
		u.parent[id] = id
	}
	return u
}

// Contains reports whether id is a member of the forest.
func (u *UnionFind) Contains(id string) bool {
	_, ok := u.parent[id]
	return ok
}

// Find returns the root of x's set, compressing the path on the way.
// Unknown ids are returned unchanged.
func (u *UnionFind) Find(x string) string {
	if !u.Contains(x) {
		return x
	}
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for x != root {
		next := u.parent[x]
		u.parent[x] = root
		x = next
	}
	return root
}

// Union merges the sets of x and y by pointing x's root at y's root. It is
// a no-op when either id is unknown.
func (u *UnionFind) Union(x, y string) {
	if !u.Contains(x) || !u.Contains(y) {
		return
	}
	rx, ry := u.Find(x), u.Find(y)
	if rx != ry {
		u.parent[rx] = ry
	}
}

// AssignClusters maps every node to a cluster id. Two nodes share a cluster
// exactly when a chain of edges of the given types (SAME_AS when none are
// given) joins them. Edges touching a node outside nodeIDs are ignored.
func AssignClusters(nodeIDs []string, edges []*types.Relationship, relTypes ...string) map[string]string {
	if len(relTypes) == 0 {
		relTypes = []string{types.RelSameAs}
	}
	allowed := make(map[string]bool, len(relTypes))
	for _, t := range relTypes {
		allowed[t] = true
	}

	u := NewUnionFind(nodeIDs)
	for _, e := range edges {
		if e == nil || !allowed[e.Type] {
			continue
		}
		u.Union(e.SourceID, e.TargetID)
	}

	clusters := make(map[string]string, len(nodeIDs))
	for _, id := range nodeIDs {
		clusters[id] = u.Find(id)
	}
	return clusters
}
