package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultNicknamesParse(t *testing.T) {
	d, err := ParseNicknames(defaultNicknamesYAML)
	require.NoError(t, err)
	assert.Greater(t, d.Len(), 35)
}

func TestSameFormalName(t *testing.T) {
	d := DefaultNicknames()

	assert.True(t, d.SameFormalName("bob", "robert"))
	assert.True(t, d.SameFormalName("Robert", "BOB"))
	assert.True(t, d.SameFormalName("bobby", "robbie"))
	assert.True(t, d.SameFormalName("alex", "alexandra"))
	assert.True(t, d.SameFormalName("alex", "alexander"))
	assert.False(t, d.SameFormalName("alexander", "alexandra"))
	assert.False(t, d.SameFormalName("bob", "william"))
	assert.False(t, d.SameFormalName("zorro", "zorro"))

	var nilDict *NicknameDictionary
	assert.False(t, nilDict.SameFormalName("bob", "robert"))
	assert.Equal(t, 0, nilDict.Len())
}

func TestLoadNicknamesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nick.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nicknames:\n  Giuseppe: [Beppe, Peppe]\n"), 0o600))

	d, err := LoadNicknames(path)
	require.NoError(t, err)
	assert.True(t, d.SameFormalName("beppe", "peppe"))
	assert.True(t, d.SameFormalName("giuseppe", "beppe"))
	assert.False(t, d.SameFormalName("bob", "robert"), "a loaded file replaces the defaults")

	_, err = LoadNicknames(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	d, err = LoadNicknames("")
	require.NoError(t, err)
	assert.True(t, d.SameFormalName("bob", "robert"))
}

func TestParseNicknamesRejectsBadYAML(t *testing.T) {
	_, err := ParseNicknames([]byte("nicknames: [unclosed"))
	assert.Error(t, err)
}

func TestLoadNoiseLists(t *testing.T) {
	n, err := LoadNoiseLists("")
	require.NoError(t, err)
	assert.Contains(t, n.FamousPeople, "elon musk")
	assert.Contains(t, n.Companies, "google")

	path := filepath.Join(t.TempDir(), "noise.yaml")
	require.NoError(t, os.WriteFile(path, []byte("famous_people: [ada lovelace]\ncompanies: []\n"), 0o600))
	n, err = LoadNoiseLists(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ada lovelace"}, n.FamousPeople)
	assert.Empty(t, n.Companies)
}
