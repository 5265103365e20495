package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/recall/pkg/types"
)

func TestNoiseFilter(t *testing.T) {
	f, err := NewNoiseFilter(nil)
	require.NoError(t, err)

	musk := &types.Entity{Type: types.EntityTypePerson, Value: "Elon Musk"}
	me := &types.Entity{Type: types.EntityTypePerson, Value: "Elon  Musk.", IsIdentity: true}
	google := &types.Entity{Type: types.EntityTypeCompany, Value: "Google"}
	googleTopic := &types.Entity{Type: types.EntityTypeTopic, Value: "Google"}
	colleague := &types.Entity{Type: types.EntityTypePerson, Value: "Dana Whitfield"}

	assert.True(t, f.IsNoise(musk))
	assert.False(t, f.IsNoise(me), "identity mentions are kept")
	assert.True(t, f.IsNoise(google))
	assert.False(t, f.IsNoise(googleTopic), "only people and companies are filtered")
	assert.False(t, f.IsNoise(colleague))
	assert.False(t, f.IsNoise(nil))

	got := f.Filter([]*types.Entity{musk, colleague, nil, google, me})
	assert.Equal(t, []*types.Entity{colleague, me}, got)
}

func TestNoiseFilterCustomLists(t *testing.T) {
	f, err := NewNoiseFilter(&NoiseLists{FamousPeople: []string{"Ada Lovelace"}, Companies: []string{"Initech, Inc."}})
	require.NoError(t, err)

	assert.True(t, f.IsNoise(&types.Entity{Type: types.EntityTypePerson, Value: "ada lovelace"}))
	assert.True(t, f.IsNoise(&types.Entity{Type: types.EntityTypeCompany, Value: "Initech Inc"}))
	assert.False(t, f.IsNoise(&types.Entity{Type: types.EntityTypePerson, Value: "Elon Musk"}))
}
