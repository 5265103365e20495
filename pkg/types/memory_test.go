package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryTable(t *testing.T) {
	cases := []struct {
		category   Category
		rate       float64
		importance float64
	}{
		{CategoryPreference, 0.01, 0.8},
		{CategoryFact, 0.02, 0.7},
		{CategoryRelationship, 0.02, 0.7},
		{CategoryDecision, 0.03, 0.6},
		{CategoryEvent, 0.05, 0.5},
		{CategorySentiment, 0.10, 0.4},
		{CategoryReminder, 0.20, 0.6},
	}

	for _, tc := range cases {
		t.Run(string(tc.category), func(t *testing.T) {
			p, ok := ProfileFor(tc.category)
			require.True(t, ok)
			assert.Equal(t, tc.rate, p.DecayRate)
			assert.Equal(t, tc.importance, p.DefaultImportance)
			assert.True(t, IsValidCategory(tc.category))
		})
	}

	assert.Len(t, ValidCategories, len(cases))
	assert.False(t, IsValidCategory("gossip"))
	assert.Zero(t, DecayRateFor("gossip"))
}

func TestNewMemoryDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mem, err := NewMemory(CreateMemoryInput{
		OwnerID:    "user-1",
		Content:    "Prefers aisle seats",
		Category:   CategoryPreference,
		SourceKind: SourceEmail,
		Tags:       []string{"travel"},
	}, now)
	require.NoError(t, err)

	assert.Equal(t, 0.8, mem.Importance)
	assert.Equal(t, 0.01, mem.DecayRate)
	assert.Equal(t, DefaultConfidence, mem.Confidence)
	assert.Equal(t, now, mem.SourceDate)
	assert.Nil(t, mem.LastAccessed)
	assert.Empty(t, mem.ID)
	assert.Equal(t, now, mem.ReferenceDate())
}

func TestNewMemoryExplicitValues(t *testing.T) {
	now := time.Now()
	source := now.Add(-48 * time.Hour)
	importance := 0.1
	confidence := 0.95

	mem, err := NewMemory(CreateMemoryInput{
		OwnerID:    "user-1",
		Content:    "Dentist on Friday",
		Category:   CategoryReminder,
		Importance: &importance,
		Confidence: &confidence,
		SourceKind: SourceCalendar,
		SourceDate: &source,
	}, now)
	require.NoError(t, err)

	assert.Equal(t, 0.1, mem.Importance)
	assert.Equal(t, 0.95, mem.Confidence)
	assert.Equal(t, 0.20, mem.DecayRate)
	assert.Equal(t, source, mem.SourceDate)
}

func TestNewMemoryRejectsInvalidInput(t *testing.T) {
	bad := 1.5
	cases := map[string]CreateMemoryInput{
		"missing owner":    {Content: "x", Category: CategoryFact, SourceKind: SourceChat},
		"missing content":  {OwnerID: "u", Category: CategoryFact, SourceKind: SourceChat},
		"unknown category": {OwnerID: "u", Content: "x", Category: "gossip", SourceKind: SourceChat},
		"unknown source":   {OwnerID: "u", Content: "x", Category: CategoryFact, SourceKind: "fax"},
		"importance range": {OwnerID: "u", Content: "x", Category: CategoryFact, SourceKind: SourceChat, Importance: &bad},
		"confidence range": {OwnerID: "u", Content: "x", Category: CategoryFact, SourceKind: SourceChat, Confidence: &bad},
	}

	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewMemory(in, time.Now())
			assert.Error(t, err)
		})
	}
}

func TestReferenceDatePrefersLastAccessed(t *testing.T) {
	source := time.Now().Add(-72 * time.Hour)
	accessed := time.Now().Add(-1 * time.Hour)
	mem := &Memory{SourceDate: source, LastAccessed: &accessed}
	assert.Equal(t, accessed, mem.ReferenceDate())
}

func TestRelationshipPairKey(t *testing.T) {
	r := &Relationship{SourceID: "b", TargetID: "a"}
	lo, hi := r.PairKey()
	assert.Equal(t, "a", lo)
	assert.Equal(t, "b", hi)

	other, ok := r.Other("a")
	assert.True(t, ok)
	assert.Equal(t, "b", other)

	_, ok = r.Other("c")
	assert.False(t, ok)
}
