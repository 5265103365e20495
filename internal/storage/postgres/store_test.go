package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/internal/storage/postgres"
	"github.com/scrypster/recall/internal/storage/storagetest"
	"github.com/scrypster/recall/pkg/types"
)

// postgresTestDSN returns the DSN for the test database.
// If RECALL_TEST_POSTGRES_DSN is not set, tests are skipped.
func postgresTestDSN(t *testing.T) string {
	t.Helper()

	dsn := os.Getenv("RECALL_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RECALL_TEST_POSTGRES_DSN not set; skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore connects to the test database and empties every table.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()

	store, err := postgres.New(postgresTestDSN(t), postgres.PoolConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err, "New should succeed")
	require.NoError(t, store.TruncateForTest(context.Background()), "truncate tables")
	return store
}

func TestStoreSuite(t *testing.T) {
	postgresTestDSN(t)
	storagetest.RunStoreSuite(t, func(t *testing.T) storage.Store {
		return newTestStore(t)
	})
}

func TestTagsRoundTripAsArray(t *testing.T) {
	store := newTestStore(t)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	m := &types.Memory{
		OwnerID:    "u",
		Content:    "Plays chess on Sundays",
		Category:   types.CategoryFact,
		DecayRate:  0.02,
		SourceKind: types.SourceChat,
		Tags:       []string{"hobby", "weekend, sunday"},
	}
	require.NoError(t, store.SaveMemory(ctx, m))

	var count int
	err := store.DB().QueryRowContext(ctx,
		`SELECT array_length(tags, 1) FROM memories WHERE id = $1`, m.ID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := store.GetMemory(ctx, "u", m.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"hobby", "weekend, sunday"}, got.Tags)
}

func TestNewFailsOnUnreachableServer(t *testing.T) {
	_, err := postgres.New("postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1",
		postgres.PoolConfig{}, nil)
	assert.Error(t, err)
}
