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

func identity(id, value string) *types.Entity {
	return &types.Entity{ID: id, OwnerID: owner, Type: types.EntityTypePerson, Value: value, IsIdentity: true}
}

// TestBuildIdentityRelationshipsMatsuoka links three spellings of the same
// user: an initial, a nickname and the formal name.
func TestBuildIdentityRelationshipsMatsuoka(t *testing.T) {
	scorer := engine.NewMatchScorer(nil)
	b := engine.NewIdentityBuilder(nil, scorer, nil)
	entities := []*types.Entity{
		identity("e1", "J. Matsuoka"),
		identity("e2", "Bob Matsuoka"),
		identity("e3", "Robert Matsuoka"),
	}

	edges := b.Build(entities, nil)
	require.GreaterOrEqual(t, len(edges), 2)
	assert.Len(t, edges, 3)

	byID := map[string]*types.Entity{"e1": entities[0], "e2": entities[1], "e3": entities[2]}
	for _, e := range edges {
		assert.Equal(t, types.RelSameAs, e.Type)
		assert.Equal(t, types.RelationshipActive, e.Status)
		assert.Equal(t, owner, e.OwnerID)
		assert.GreaterOrEqual(t, e.Confidence, 0.9, "unknown match confidence defaults to 0.9")

		_, reason := scorer.Score(*byID[e.SourceID], *byID[e.TargetID], nil)
		assert.Contains(t, e.Evidence, reason)
	}
}

func TestBuildIdentityRelationshipsUsesMatchConfidence(t *testing.T) {
	b := engine.NewIdentityBuilder(nil, nil, nil)
	sure := 0.97
	low := 0.2
	a := identity("a", "Bob Matsuoka")
	a.MatchConfidence = &sure
	c := identity("c", "Robert Matsuoka")
	c.MatchConfidence = &low

	edges := b.Build([]*types.Entity{a, c}, nil)
	require.Len(t, edges, 1)
	assert.Equal(t, 0.97, edges[0].Confidence)

	a.MatchConfidence = &low
	edges = b.Build([]*types.Entity{a, c}, nil)
	require.Len(t, edges, 1)
	assert.Equal(t, 0.85, edges[0].Confidence, "pair score wins when both confidences are lower")
}

func TestBuildIdentityRelationshipsNeedsTwoIdentities(t *testing.T) {
	b := engine.NewIdentityBuilder(nil, nil, nil)
	other := identity("x", "Bob Matsuoka")
	other.IsIdentity = false

	assert.Empty(t, b.Build(nil, nil))
	assert.Empty(t, b.Build([]*types.Entity{identity("a", "Robert Matsuoka")}, nil))
	assert.Empty(t, b.Build([]*types.Entity{identity("a", "Robert Matsuoka"), other}, nil),
		"mentions not flagged as identity are ignored")
}

func TestBuildIdentityRelationshipsSkipsCrossTypeAndWeakPairs(t *testing.T) {
	b := engine.NewIdentityBuilder(nil, nil, nil)
	company := identity("co", "Bob Matsuoka")
	company.Type = types.EntityTypeCompany

	edges := b.Build([]*types.Entity{
		identity("p1", "Bob Matsuoka"),
		company,
		identity("p2", "Xi"),
	}, nil)
	assert.Empty(t, edges)
}

func TestIdentityPersist(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	for _, v := range []string{"J. Matsuoka", "Bob Matsuoka", "Robert Matsuoka"} {
		e := &types.Entity{OwnerID: owner, Type: types.EntityTypePerson, Value: v, IsIdentity: true}
		require.NoError(t, store.SaveEntity(ctx, e))
	}
	saveEntity(t, store, types.EntityTypePerson, "Robert Matsuoka Sr")

	pub := &recordingPublisher{}
	b := engine.NewIdentityBuilder(store, nil, nil)
	b.SetPublisher(pub)

	res, err := b.Persist(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Identities)
	assert.Equal(t, 3, res.Created)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, []engine.EventType{engine.EventIdentityEdgesLinked}, pub.eventTypes())

	res, err = b.Persist(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 3, res.Skipped, "stored edges are deduplicated by the store")

	edges, err := store.ListRelationships(ctx, owner, types.RelSameAs)
	require.NoError(t, err)
	assert.Len(t, edges, 3)

	clusters := engine.AssignClusters([]string{edges[0].SourceID, edges[0].TargetID, edges[1].SourceID, edges[1].TargetID}, edges)
	first := clusters[edges[0].SourceID]
	for _, c := range clusters {
		assert.Equal(t, first, c, "all identity mentions end up in one cluster")
	}
}

func TestIdentityPersistValidation(t *testing.T) {
	_, err := engine.NewIdentityBuilder(nil, nil, nil).Persist(context.Background(), owner)
	assert.Error(t, err)

	_, err = engine.NewIdentityBuilder(memstore.New(), nil, nil).Persist(context.Background(), "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
