package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/recall/internal/engine"
	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/internal/storage/memstore"
	"github.com/scrypster/recall/pkg/types"
)

func link(t *testing.T, store storage.RelationshipStore, a, b *types.Entity, relType string) {
	t.Helper()
	require.NoError(t, store.SaveRelationship(context.Background(), &types.Relationship{
		OwnerID: owner, SourceID: a.ID, TargetID: b.ID, Type: relType,
		Status: types.RelationshipActive, Confidence: 0.9,
	}))
}

// graph: bob =SAME_AS= robert -WORKS_AT- acme -LOCATED_IN- tokyo -NEAR- osaka; loner
func seedGraph(t *testing.T) (*memstore.Store, map[string]*types.Entity) {
	t.Helper()
	store := memstore.New()
	ents := map[string]*types.Entity{
		"bob":    saveEntity(t, store, types.EntityTypePerson, "Bob Smith"),
		"robert": saveEntity(t, store, types.EntityTypePerson, "Robert Smith"),
		"acme":   saveEntity(t, store, types.EntityTypeCompany, "Acme"),
		"tokyo":  saveEntity(t, store, types.EntityTypeLocation, "Tokyo"),
		"osaka":  saveEntity(t, store, types.EntityTypeLocation, "Osaka"),
		"loner":  saveEntity(t, store, types.EntityTypeTopic, "Gardening"),
	}
	link(t, store, ents["bob"], ents["robert"], types.RelSameAs)
	link(t, store, ents["robert"], ents["acme"], "WORKS_AT")
	link(t, store, ents["acme"], ents["tokyo"], "LOCATED_IN")
	link(t, store, ents["tokyo"], ents["osaka"], "NEAR")
	return store, ents
}

func nodeIDs(view *engine.GraphView) map[string]int {
	out := make(map[string]int, len(view.Nodes))
	for _, n := range view.Nodes {
		out[n.ID] = n.Depth
	}
	return out
}

func TestGraphServiceGraph(t *testing.T) {
	store, ents := seedGraph(t)
	svc := engine.NewGraphService(store)

	view, err := svc.Graph(context.Background(), owner)
	require.NoError(t, err)

	assert.Equal(t, 6, view.Meta.NodeCount)
	assert.Equal(t, 4, view.Meta.EdgeCount)
	assert.Equal(t, 5, view.Meta.ClusterCount, "only bob and robert share a cluster")
	assert.Equal(t, view.Clusters[ents["bob"].ID], view.Clusters[ents["robert"].ID])
	assert.NotEqual(t, view.Clusters[ents["acme"].ID], view.Clusters[ents["robert"].ID])

	for _, n := range view.Nodes {
		assert.Equal(t, view.Clusters[n.ID], n.Cluster)
	}
}

func TestGraphServiceNeighborhood(t *testing.T) {
	store, ents := seedGraph(t)
	svc := engine.NewGraphService(store)
	ctx := context.Background()

	view, err := svc.Neighborhood(ctx, owner, ents["acme"].ID, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		ents["acme"].ID:   0,
		ents["robert"].ID: 1,
		ents["tokyo"].ID:  1,
	}, nodeIDs(view))
	assert.Equal(t, 2, view.Meta.EdgeCount)
	assert.Equal(t, ents["acme"].ID, view.Meta.CenterID)
	assert.Equal(t, 1, view.Meta.Depth)

	view, err = svc.Neighborhood(ctx, owner, ents["acme"].ID, 2)
	require.NoError(t, err)
	assert.Len(t, view.Nodes, 5)
	assert.Equal(t, view.Clusters[ents["bob"].ID], view.Clusters[ents["robert"].ID])

	view, err = svc.Neighborhood(ctx, owner, ents["bob"].ID, 42)
	require.NoError(t, err)
	assert.Equal(t, 3, view.Meta.Depth, "depth is clamped")
	assert.NotContains(t, nodeIDs(view), ents["osaka"].ID, "osaka is four hops from bob")

	view, err = svc.Neighborhood(ctx, owner, ents["loner"].ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Meta.Depth)
	assert.Len(t, view.Nodes, 1)
	assert.Empty(t, view.Edges)
}

func TestGraphServiceNeighborhoodUnknownCenter(t *testing.T) {
	store, _ := seedGraph(t)
	svc := engine.NewGraphService(store)

	_, err := svc.Neighborhood(context.Background(), owner, "missing", 2)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
