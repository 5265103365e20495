package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/scrypster/recall/internal/config"
	"github.com/scrypster/recall/internal/engine"
	"github.com/scrypster/recall/internal/storage/memstore"
	"github.com/scrypster/recall/internal/storage/sqlite"
	"github.com/scrypster/recall/pkg/types"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func useMemoryStorage(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("RECALL_STORAGE_ENGINE", config.StorageMemory)
	t.Setenv("RECALL_LOG_LEVEL", "error")
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "recall dev")
}

func TestDedupeRequiresOwner(t *testing.T) {
	useMemoryStorage(t)
	dedupeOwner = ""

	_, err := run(t, "dedupe")
	assert.Error(t, err)
}

func TestDedupeCommandPrintsResult(t *testing.T) {
	useMemoryStorage(t)

	out, err := run(t, "dedupe", "--owner", "u1")
	require.NoError(t, err)

	var result engine.MergeRunResult
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	assert.Zero(t, result.Compared)
}

func TestIdentityCommandPrintsResult(t *testing.T) {
	useMemoryStorage(t)

	out, err := run(t, "identity", "--owner", "u1")
	require.NoError(t, err)

	var result engine.IdentityResult
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	assert.Zero(t, result.Identities)
}

func TestEnvFileFlag(t *testing.T) {
	useMemoryStorage(t)
	for _, key := range []string{"RECALL_STORAGE_ENGINE", "RECALL_PORT"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	path := filepath.Join(t.TempDir(), "recall.env")
	require.NoError(t, os.WriteFile(path, []byte("RECALL_STORAGE_ENGINE=memory\nRECALL_PORT=7000\n"), 0o600))

	envFile = path
	t.Cleanup(func() { envFile = "" })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.StorageMemory, cfg.Storage.Engine)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestOpenStore(t *testing.T) {
	logger := zaptest.NewLogger(t)

	cfg := &config.Config{Storage: config.StorageConfig{Engine: config.StorageMemory}}
	store, err := openStore(cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &memstore.Store{}, store)
	require.NoError(t, store.Close())

	dir := filepath.Join(t.TempDir(), "nested", "data")
	cfg = &config.Config{Storage: config.StorageConfig{Engine: config.StorageSQLite, DataPath: dir}}
	store, err = openStore(cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Store{}, store)
	assert.FileExists(t, filepath.Join(dir, "recall.db"))
	require.NoError(t, store.Close())

	cfg = &config.Config{Storage: config.StorageConfig{Engine: "cassandra"}}
	_, err = openStore(cfg, logger)
	assert.Error(t, err)
}

func TestAppWiresEngineConfig(t *testing.T) {
	useMemoryStorage(t)
	t.Setenv("RECALL_REFRESH_TOP_K", "false")
	t.Setenv("RECALL_DEFAULT_LIMIT", "2")

	a, err := newApp()
	require.NoError(t, err)
	defer a.Close()

	mem, err := a.memoryEngine()
	require.NoError(t, err)

	ctx := context.Background()
	for _, content := range []string{"one", "two", "three"} {
		_, err := mem.Create(ctx, types.CreateMemoryInput{
			OwnerID: "u1", Content: content, Category: types.CategoryFact, SourceKind: types.SourceManual,
		})
		require.NoError(t, err)
	}

	got, err := mem.Retrieve(ctx, "u1", engine.RetrievalOptions{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
