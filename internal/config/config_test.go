package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/recall/internal/config"
)

// clearEnv unsets every variable the tests touch so host settings do not
// leak in. t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RECALL_HOST", "RECALL_PORT", "RECALL_STORAGE_ENGINE", "RECALL_POSTGRES_DSN",
		"RECALL_SECURITY_MODE", "RECALL_API_TOKEN", "RECALL_RATE_LIMIT_RPS",
		"RECALL_RATE_LIMIT_BURST", "RECALL_DEFAULT_LIMIT", "RECALL_MAX_LIMIT",
		"RECALL_AUTO_ACCEPT", "RECALL_ALLOWED_ORIGINS", "RECALL_SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.env"))
	require.Error(t, err, "an explicitly named env file must exist")
	assert.Nil(t, cfg)

	t.Chdir(t.TempDir())
	cfg, err = config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host, "Default host must be 127.0.0.1 for security")
	assert.Equal(t, 6464, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, config.StorageSQLite, cfg.Storage.Engine)
	assert.Equal(t, filepath.Join("data", "recall.db"), cfg.Storage.SQLitePath())
	assert.Equal(t, config.ModeDevelopment, cfg.Security.Mode)
	assert.False(t, cfg.IsProduction())
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 20.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 40, cfg.RateLimit.Burst)
	assert.True(t, cfg.Engine.RefreshTopK)
	assert.False(t, cfg.Engine.AutoAcceptHighConfidence)
	assert.Equal(t, 20, cfg.Engine.DefaultLimit)
	assert.Equal(t, 100, cfg.Engine.MaxLimit)
	assert.Empty(t, cfg.Security.AllowedOrigins)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("RECALL_HOST", "0.0.0.0")
	t.Setenv("RECALL_PORT", "8080")
	t.Setenv("RECALL_STORAGE_ENGINE", "Memory")
	t.Setenv("RECALL_RATE_LIMIT_RPS", "2.5")
	t.Setenv("RECALL_AUTO_ACCEPT", "YES")
	t.Setenv("RECALL_ALLOWED_ORIGINS", "review.example.com, ,localhost:3000")
	t.Setenv("RECALL_SHUTDOWN_TIMEOUT", "3s")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, config.StorageMemory, cfg.Storage.Engine)
	assert.Equal(t, 2.5, cfg.RateLimit.RequestsPerSecond)
	assert.True(t, cfg.Engine.AutoAcceptHighConfidence)
	assert.Equal(t, []string{"review.example.com", "localhost:3000"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoadConfig_UnparsableValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("RECALL_PORT", "not-a-number")
	t.Setenv("RECALL_AUTO_ACCEPT", "maybe")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 6464, cfg.Server.Port)
	assert.False(t, cfg.Engine.AutoAcceptHighConfidence)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("RECALL_PORT=7000\nRECALL_HOST=10.0.0.1\n"), 0o600))
	t.Setenv("RECALL_HOST", "192.168.1.1")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "192.168.1.1", cfg.Server.Host, "process environment wins over .env")
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cases := map[string]func(c *config.Config){
		"unknown engine":       func(c *config.Config) { c.Storage.Engine = "mongo" },
		"postgres without dsn": func(c *config.Config) { c.Storage.Engine = config.StoragePostgres },
		"production no token":  func(c *config.Config) { c.Security.Mode = config.ModeProduction },
		"unknown mode":         func(c *config.Config) { c.Security.Mode = "staging" },
		"bad port":             func(c *config.Config) { c.Server.Port = 0 },
		"zero burst":           func(c *config.Config) { c.RateLimit.Burst = 0 },
		"max below default":    func(c *config.Config) { c.Engine.MaxLimit = 5 },
		"non-positive default": func(c *config.Config) { c.Engine.DefaultLimit = 0 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := config.LoadConfig()
			require.NoError(t, err)
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	cfg.Security.Mode = config.ModeProduction
	cfg.Security.APIToken = "secret"
	cfg.Storage.Engine = config.StoragePostgres
	cfg.Storage.PostgresDSN = "postgres://localhost/recall"
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.Burst = 0
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsProduction())
}
