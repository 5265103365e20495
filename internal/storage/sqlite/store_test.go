package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/internal/storage/storagetest"
	"github.com/scrypster/recall/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:", zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func TestStoreSuite(t *testing.T) {
	storagetest.RunStoreSuite(t, func(t *testing.T) storage.Store {
		return newTestStore(t)
	})
}

func TestNewIsIdempotentOnFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.db")

	first, err := New(path, nil)
	require.NoError(t, err)
	m := &types.Memory{
		OwnerID:    "u",
		Content:    "persisted",
		Category:   types.CategoryFact,
		DecayRate:  0.02,
		SourceKind: types.SourceChat,
	}
	require.NoError(t, first.SaveMemory(context.Background(), m))
	require.NoError(t, first.Close())

	second, err := New(path, nil)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.GetMemory(context.Background(), "u", m.ID)
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.Content)
}

func TestDBPathFromDSN(t *testing.T) {
	cases := map[string]string{
		":memory:":                       "",
		"file::memory:?cache=shared":     "",
		"/var/lib/recall.db":             "/var/lib/recall.db",
		"file:/tmp/recall.db?_pragma=x":  "/tmp/recall.db",
		"/tmp/recall.db?_busy_timeout=1": "/tmp/recall.db",
	}
	for dsn, want := range cases {
		assert.Equal(t, want, dbPathFromDSN(dsn), dsn)
	}
}

func TestIsRecoverableWALError(t *testing.T) {
	assert.False(t, isRecoverableWALError(nil))
	assert.False(t, isRecoverableWALError(assert.AnError))
	assert.True(t, isRecoverableWALError(errors.New("sqlite: PRAGMA journal_mode=WAL: disk I/O error")))
	assert.True(t, isRecoverableWALError(errors.New("database is locked (5)")))
}
