// Package storagetest holds the behaviour every storage.Store adapter must
// share. Adapter packages call RunStoreSuite from their own tests.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/pkg/types"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) storage.Store

// RunStoreSuite runs the shared adapter tests against stores built by newStore.
func RunStoreSuite(t *testing.T, newStore Factory) {
	cases := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"MemoryRoundTrip", testMemoryRoundTrip},
		{"MemoryOwnerIsolation", testMemoryOwnerIsolation},
		{"SaveMemoriesReturnsIDs", testSaveMemoriesReturnsIDs},
		{"SaveMemoriesIsAllOrNothing", testSaveMemoriesIsAllOrNothing},
		{"ListMemoriesOrderAndFilter", testListMemoriesOrderAndFilter},
		{"DeleteAndPurge", testDeleteAndPurge},
		{"TouchMemories", testTouchMemories},
		{"Entities", testEntities},
		{"Aliases", testAliases},
		{"MergeSuggestions", testMergeSuggestions},
		{"Relationships", testRelationships},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tc.fn(t, s)
		})
	}
}

const (
	ownerA = "owner-a"
	ownerB = "owner-b"
)

// base is a fixed second-aligned instant; adapters may drop sub-second
// precision.
var base = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func newMemory(owner, content string, category types.Category, sourceDate time.Time) *types.Memory {
	return &types.Memory{
		OwnerID:    owner,
		Content:    content,
		Category:   category,
		Importance: 0.7,
		DecayRate:  types.DecayRateFor(category),
		Confidence: 0.9,
		SourceKind: types.SourceEmail,
		SourceDate: sourceDate,
		CreatedAt:  base,
		UpdatedAt:  base,
	}
}

func testMemoryRoundTrip(t *testing.T, s storage.Store) {
	ctx := context.Background()
	expires := base.Add(30 * 24 * time.Hour)

	m := newMemory(ownerA, "Prefers window seats", types.CategoryPreference, base.Add(-time.Hour))
	m.SourceID = "msg-42"
	m.ExpiresAt = &expires
	m.Tags = []string{"travel", "flights"}
	m.RelatedEntities = []types.EntityRef{{Type: types.EntityTypeCompany, Value: "Lufthansa"}}

	require.NoError(t, s.SaveMemory(ctx, m))
	require.NotEmpty(t, m.ID)

	got, err := s.GetMemory(ctx, ownerA, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Content, got.Content)
	assert.Equal(t, m.Category, got.Category)
	assert.Equal(t, m.SourceKind, got.SourceKind)
	assert.Equal(t, "msg-42", got.SourceID)
	assert.InDelta(t, 0.7, got.Importance, 1e-9)
	assert.InDelta(t, 0.01, got.DecayRate, 1e-9)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
	assert.WithinDuration(t, m.SourceDate, got.SourceDate, time.Second)
	require.NotNil(t, got.ExpiresAt)
	assert.WithinDuration(t, expires, *got.ExpiresAt, time.Second)
	assert.Nil(t, got.LastAccessed)
	assert.Equal(t, []string{"travel", "flights"}, got.Tags)
	require.Len(t, got.RelatedEntities, 1)
	assert.Equal(t, "Lufthansa", got.RelatedEntities[0].Value)
	assert.False(t, got.Deleted)

	got.Content = "Prefers aisle seats"
	require.NoError(t, s.SaveMemory(ctx, got))
	again, err := s.GetMemory(ctx, ownerA, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Prefers aisle seats", again.Content)

	_, err = s.GetMemory(ctx, ownerA, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testMemoryOwnerIsolation(t *testing.T, s storage.Store) {
	ctx := context.Background()

	m := newMemory(ownerA, "Allergic to peanuts", types.CategoryFact, base)
	require.NoError(t, s.SaveMemory(ctx, m))

	_, err := s.GetMemory(ctx, ownerB, m.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	list, err := s.ListMemories(ctx, ownerB, storage.MemoryListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list)

	hijack := newMemory(ownerB, "overwritten", types.CategoryFact, base)
	hijack.ID = m.ID
	assert.ErrorIs(t, s.SaveMemory(ctx, hijack), storage.ErrInvalidInput)

	got, err := s.GetMemory(ctx, ownerA, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Allergic to peanuts", got.Content)

	assert.ErrorIs(t, s.DeleteMemory(ctx, ownerB, m.ID), storage.ErrNotFound)
	assert.ErrorIs(t, s.PurgeMemory(ctx, ownerB, m.ID), storage.ErrNotFound)
}

func testSaveMemoriesReturnsIDs(t *testing.T, s storage.Store) {
	ctx := context.Background()

	batch := []*types.Memory{
		newMemory(ownerA, "one", types.CategoryEvent, base),
		newMemory(ownerA, "two", types.CategoryEvent, base.Add(time.Minute)),
		newMemory(ownerA, "three", types.CategoryEvent, base.Add(2*time.Minute)),
	}
	ids, err := s.SaveMemories(ctx, batch)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	for i, id := range ids {
		assert.NotEmpty(t, id)
		assert.Equal(t, batch[i].ID, id)
		got, err := s.GetMemory(ctx, ownerA, id)
		require.NoError(t, err)
		assert.Equal(t, batch[i].Content, got.Content)
	}
}

func testSaveMemoriesIsAllOrNothing(t *testing.T, s storage.Store) {
	ctx := context.Background()

	batch := []*types.Memory{
		newMemory(ownerA, "one", types.CategoryEvent, base),
		newMemory("", "ownerless", types.CategoryEvent, base),
		newMemory(ownerA, "three", types.CategoryEvent, base),
	}
	_, err := s.SaveMemories(ctx, batch)
	require.ErrorIs(t, err, storage.ErrInvalidInput)

	stored, err := s.ListMemories(ctx, ownerA, storage.MemoryListOptions{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Empty(t, stored, "a failed batch leaves nothing behind")
}

func testListMemoriesOrderAndFilter(t *testing.T, s storage.Store) {
	ctx := context.Background()

	older := newMemory(ownerA, "older fact", types.CategoryFact, base.Add(-48*time.Hour))
	newer := newMemory(ownerA, "newer fact", types.CategoryFact, base)
	event := newMemory(ownerA, "conference", types.CategoryEvent, base.Add(-24*time.Hour))
	for _, m := range []*types.Memory{older, newer, event} {
		require.NoError(t, s.SaveMemory(ctx, m))
	}

	all, err := s.ListMemories(ctx, ownerA, storage.MemoryListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, newer.ID, all[0].ID)
	assert.Equal(t, event.ID, all[1].ID)
	assert.Equal(t, older.ID, all[2].ID)

	facts, err := s.ListMemories(ctx, ownerA, storage.MemoryListOptions{
		Categories: []types.Category{types.CategoryFact},
	})
	require.NoError(t, err)
	require.Len(t, facts, 2)
	for _, m := range facts {
		assert.Equal(t, types.CategoryFact, m.Category)
	}
}

func testDeleteAndPurge(t *testing.T, s storage.Store) {
	ctx := context.Background()

	soft := newMemory(ownerA, "soft", types.CategorySentiment, base)
	hard := newMemory(ownerA, "hard", types.CategorySentiment, base)
	require.NoError(t, s.SaveMemory(ctx, soft))
	require.NoError(t, s.SaveMemory(ctx, hard))

	require.NoError(t, s.DeleteMemory(ctx, ownerA, soft.ID))
	_, err := s.GetMemory(ctx, ownerA, soft.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.DeleteMemory(ctx, ownerA, soft.ID), storage.ErrNotFound)

	live, err := s.ListMemories(ctx, ownerA, storage.MemoryListOptions{})
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, hard.ID, live[0].ID)

	withDeleted, err := s.ListMemories(ctx, ownerA, storage.MemoryListOptions{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, withDeleted, 2)

	require.NoError(t, s.PurgeMemory(ctx, ownerA, hard.ID))
	assert.ErrorIs(t, s.PurgeMemory(ctx, ownerA, hard.ID), storage.ErrNotFound)

	// A soft-deleted memory can still be purged.
	require.NoError(t, s.PurgeMemory(ctx, ownerA, soft.ID))
	withDeleted, err = s.ListMemories(ctx, ownerA, storage.MemoryListOptions{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Empty(t, withDeleted)
}

func testTouchMemories(t *testing.T, s storage.Store) {
	ctx := context.Background()

	a := newMemory(ownerA, "a", types.CategoryDecision, base.Add(-72*time.Hour))
	b := newMemory(ownerA, "b", types.CategoryDecision, base.Add(-72*time.Hour))
	require.NoError(t, s.SaveMemory(ctx, a))
	require.NoError(t, s.SaveMemory(ctx, b))

	at := base.Add(time.Hour)
	require.NoError(t, s.TouchMemories(ctx, ownerA, []string{a.ID, "unknown"}, at))
	require.NoError(t, s.TouchMemories(ctx, ownerA, nil, at))
	require.NoError(t, s.TouchMemories(ctx, ownerB, []string{b.ID}, at))

	got, err := s.GetMemory(ctx, ownerA, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastAccessed)
	assert.WithinDuration(t, at, *got.LastAccessed, time.Second)
	assert.WithinDuration(t, at, got.ReferenceDate(), time.Second)

	untouched, err := s.GetMemory(ctx, ownerA, b.ID)
	require.NoError(t, err)
	assert.Nil(t, untouched.LastAccessed)
}

func testEntities(t *testing.T, s storage.Store) {
	ctx := context.Background()
	matchConf := 0.95

	bob := &types.Entity{OwnerID: ownerA, Type: types.EntityTypePerson, Value: "Bob Smith", Confidence: 0.8, CreatedAt: base}
	me := &types.Entity{
		OwnerID:         ownerA,
		Type:            types.EntityTypePerson,
		Value:           "J. Matsuoka",
		Confidence:      0.9,
		IsIdentity:      true,
		MatchConfidence: &matchConf,
		CreatedAt:       base.Add(time.Second),
	}
	acme := &types.Entity{OwnerID: ownerA, Type: types.EntityTypeCompany, Value: "Acme", Confidence: 0.7, CreatedAt: base.Add(2 * time.Second)}
	for _, e := range []*types.Entity{bob, me, acme} {
		require.NoError(t, s.SaveEntity(ctx, e))
		require.NotEmpty(t, e.ID)
	}

	got, err := s.GetEntity(ctx, ownerA, me.ID)
	require.NoError(t, err)
	assert.Equal(t, "J. Matsuoka", got.Value)
	assert.True(t, got.IsIdentity)
	require.NotNil(t, got.MatchConfidence)
	assert.InDelta(t, 0.95, *got.MatchConfidence, 1e-9)

	plain, err := s.GetEntity(ctx, ownerA, bob.ID)
	require.NoError(t, err)
	assert.Nil(t, plain.MatchConfidence)

	_, err = s.GetEntity(ctx, ownerB, bob.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	all, err := s.ListEntities(ctx, ownerA, storage.EntityFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, bob.ID, all[0].ID)
	assert.Equal(t, acme.ID, all[2].ID)

	people, err := s.ListEntities(ctx, ownerA, storage.EntityFilter{Type: types.EntityTypePerson})
	require.NoError(t, err)
	assert.Len(t, people, 2)

	identities, err := s.ListEntities(ctx, ownerA, storage.EntityFilter{IdentityOnly: true})
	require.NoError(t, err)
	require.Len(t, identities, 1)
	assert.Equal(t, me.ID, identities[0].ID)

	hijack := &types.Entity{ID: bob.ID, OwnerID: ownerB, Type: types.EntityTypePerson, Value: "x"}
	assert.ErrorIs(t, s.SaveEntity(ctx, hijack), storage.ErrInvalidInput)
}

func testAliases(t *testing.T, s storage.Store) {
	ctx := context.Background()

	alias := &types.Alias{OwnerID: ownerA, EntityType: types.EntityTypeTool, EntityValue: "Kubernetes", Alias: "k8s"}
	require.NoError(t, s.SaveAlias(ctx, alias))

	dup := &types.Alias{OwnerID: ownerA, EntityType: types.EntityTypeTool, EntityValue: "kubernetes", Alias: "K8S"}
	assert.ErrorIs(t, s.SaveAlias(ctx, dup), storage.ErrDuplicate)

	otherOwner := &types.Alias{OwnerID: ownerB, EntityType: types.EntityTypeTool, EntityValue: "Kubernetes", Alias: "k8s"}
	require.NoError(t, s.SaveAlias(ctx, otherOwner))

	assert.ErrorIs(t, s.SaveAlias(ctx, &types.Alias{OwnerID: ownerA}), storage.ErrInvalidInput)

	list, err := s.ListAliases(ctx, ownerA)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "k8s", list[0].Alias)
	assert.Equal(t, types.EntityTypeTool, list[0].EntityType)
}

func testMergeSuggestions(t *testing.T, s storage.Store) {
	ctx := context.Background()

	low := &types.MergeSuggestion{OwnerID: ownerA, Entity1ID: "e1", Entity2ID: "e2", EntityType: types.EntityTypePerson, Confidence: 0.8, Reason: "similar first name"}
	high := &types.MergeSuggestion{OwnerID: ownerA, Entity1ID: "e3", Entity2ID: "e4", EntityType: types.EntityTypeCompany, Confidence: 0.9, Reason: "high string similarity"}
	require.NoError(t, s.CreateMergeSuggestion(ctx, low))
	require.NoError(t, s.CreateMergeSuggestion(ctx, high))
	require.NotEmpty(t, low.ID)
	assert.Equal(t, types.SuggestionPending, low.Status)
	assert.False(t, low.CreatedAt.IsZero())

	again := &types.MergeSuggestion{OwnerID: ownerA, Entity1ID: "e1", Entity2ID: "e2", Confidence: 0.99}
	assert.ErrorIs(t, s.CreateMergeSuggestion(ctx, again), storage.ErrDuplicate)

	list, err := s.ListMergeSuggestions(ctx, ownerA, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, high.ID, list[0].ID)
	assert.Equal(t, low.ID, list[1].ID)
	assert.InDelta(t, 0.8, list[1].Confidence, 1e-9)

	reviewed := base.Add(time.Hour)
	require.NoError(t, s.UpdateMergeSuggestionStatus(ctx, ownerA, low.ID, types.SuggestionRejected, reviewed))
	assert.ErrorIs(t,
		s.UpdateMergeSuggestionStatus(ctx, ownerB, low.ID, types.SuggestionAccepted, reviewed),
		storage.ErrNotFound)

	got, err := s.GetMergeSuggestion(ctx, ownerA, low.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SuggestionRejected, got.Status)
	require.NotNil(t, got.ReviewedAt)
	assert.WithinDuration(t, reviewed, *got.ReviewedAt, time.Second)

	pending, err := s.ListMergeSuggestions(ctx, ownerA, types.SuggestionPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, high.ID, pending[0].ID)

	_, err = s.GetMergeSuggestion(ctx, ownerB, high.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testRelationships(t *testing.T, s storage.Store) {
	ctx := context.Background()

	edge := &types.Relationship{OwnerID: ownerA, SourceID: "a", TargetID: "b", Type: types.RelSameAs, Confidence: 0.9, Evidence: "identity match", CreatedAt: base}
	require.NoError(t, s.SaveRelationship(ctx, edge))
	require.NotEmpty(t, edge.ID)
	assert.Equal(t, types.RelationshipActive, edge.Status)

	reversed := &types.Relationship{OwnerID: ownerA, SourceID: "b", TargetID: "a", Type: types.RelSameAs, Confidence: 0.95}
	assert.ErrorIs(t, s.SaveRelationship(ctx, reversed), storage.ErrDuplicate)

	works := &types.Relationship{OwnerID: ownerA, SourceID: "a", TargetID: "b", Type: "WORKS_AT", Confidence: 0.6, CreatedAt: base.Add(time.Second)}
	require.NoError(t, s.SaveRelationship(ctx, works))

	all, err := s.ListRelationships(ctx, ownerA)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, edge.ID, all[0].ID)

	sameAs, err := s.ListRelationships(ctx, ownerA, types.RelSameAs)
	require.NoError(t, err)
	require.Len(t, sameAs, 1)
	assert.Equal(t, "a", sameAs[0].SourceID)
	assert.Equal(t, "b", sameAs[0].TargetID)
	assert.Equal(t, "identity match", sameAs[0].Evidence)
	assert.InDelta(t, 0.9, sameAs[0].Confidence, 1e-9)

	none, err := s.ListRelationships(ctx, ownerB)
	require.NoError(t, err)
	assert.Empty(t, none)
}
