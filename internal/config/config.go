// Package config provides configuration management for Recall.
// It loads settings from environment variables with the RECALL_ prefix and
// provides sensible defaults for all configuration options. A .env file is
// read first when present; variables already set in the environment win.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage engine names.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Security modes.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Config holds all configuration settings for the Recall application.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
	Engine    EngineConfig
	Log       LogConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           // Server port (default: 6464)
	Host            string        // Server host (default: 127.0.0.1)
	ShutdownTimeout time.Duration // Grace period for in-flight requests (default: 10s)
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	Engine      string // sqlite, postgres or memory (default: sqlite)
	DataPath    string // Directory of the SQLite file (default: ./data)
	PostgresDSN string // Connection string when Engine is postgres
	MaxOpenConn int    // Postgres pool size (default: 25)
}

// SQLitePath returns the database file inside DataPath.
func (s StorageConfig) SQLitePath() string {
	return filepath.Join(s.DataPath, "recall.db")
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	Mode           string   // development or production (default: development)
	APIToken       string   // Bearer token required on /api in production
	AllowedOrigins []string // WebSocket origin patterns (default: none beyond same host)
}

// RateLimitConfig sizes the per-client token bucket on /api.
type RateLimitConfig struct {
	Enabled           bool    // default: true
	RequestsPerSecond float64 // default: 20
	Burst             int     // default: 40
}

// EngineConfig tunes the decision layer.
type EngineConfig struct {
	AutoAcceptHighConfidence bool   // Accept suggestions at or above 0.95 during runs (default: false)
	RefreshTopK              bool   // Refresh memories returned by retrieval (default: true)
	DefaultLimit             int    // Retrieval limit when none is given (default: 20)
	MaxLimit                 int    // Retrieval limit cap (default: 100)
	NicknamesPath            string // YAML nickname dictionary override (default: embedded)
	NoiseListsPath           string // YAML noise lists override (default: embedded)
}

// LogConfig selects the zap logger.
type LogConfig struct {
	Env   string // production or development (default: development)
	Level string // debug, info, warn, error (default: per env)
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. envFiles are read first (default: ".env" when it exists).
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			envFiles = []string{".env"}
		}
	}
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("config: failed to load env file: %w", err)
		}
	}

	cfg := buildBaseConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch c.Storage.Engine {
	case StorageSQLite, StorageMemory:
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("config: RECALL_POSTGRES_DSN is required for the postgres engine")
		}
	default:
		return fmt.Errorf("config: unknown storage engine %q", c.Storage.Engine)
	}

	switch c.Security.Mode {
	case ModeDevelopment:
	case ModeProduction:
		if c.Security.APIToken == "" {
			return errors.New("config: RECALL_API_TOKEN is required in production mode")
		}
	default:
		return fmt.Errorf("config: unknown security mode %q", c.Security.Mode)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return errors.New("config: rate limit requires positive requests per second and burst")
	}
	if c.Engine.DefaultLimit <= 0 || c.Engine.MaxLimit < c.Engine.DefaultLimit {
		return fmt.Errorf("config: invalid retrieval limits default=%d max=%d",
			c.Engine.DefaultLimit, c.Engine.MaxLimit)
	}
	return nil
}

// IsProduction reports whether the security mode is production.
func (c *Config) IsProduction() bool {
	return c.Security.Mode == ModeProduction
}

func buildBaseConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnvInt("RECALL_PORT", 6464),
			Host:            getEnv("RECALL_HOST", "127.0.0.1"),
			ShutdownTimeout: getEnvDuration("RECALL_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Storage: StorageConfig{
			Engine:      strings.ToLower(getEnv("RECALL_STORAGE_ENGINE", StorageSQLite)),
			DataPath:    getEnv("RECALL_DATA_PATH", "./data"),
			PostgresDSN: getEnv("RECALL_POSTGRES_DSN", ""),
			MaxOpenConn: getEnvInt("RECALL_POSTGRES_MAX_OPEN_CONNS", 25),
		},
		Security: SecurityConfig{
			Mode:           strings.ToLower(getEnv("RECALL_SECURITY_MODE", ModeDevelopment)),
			APIToken:       getEnv("RECALL_API_TOKEN", ""),
			AllowedOrigins: getEnvList("RECALL_ALLOWED_ORIGINS"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnvBool("RECALL_RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getEnvFloat("RECALL_RATE_LIMIT_RPS", 20),
			Burst:             getEnvInt("RECALL_RATE_LIMIT_BURST", 40),
		},
		Engine: EngineConfig{
			AutoAcceptHighConfidence: getEnvBool("RECALL_AUTO_ACCEPT", false),
			RefreshTopK:              getEnvBool("RECALL_REFRESH_TOP_K", true),
			DefaultLimit:             getEnvInt("RECALL_DEFAULT_LIMIT", 20),
			MaxLimit:                 getEnvInt("RECALL_MAX_LIMIT", 100),
			NicknamesPath:            getEnv("RECALL_NICKNAMES_PATH", ""),
			NoiseListsPath:           getEnv("RECALL_NOISE_LISTS_PATH", ""),
		},
		Log: LogConfig{
			Env:   getEnv("RECALL_LOG_ENV", ModeDevelopment),
			Level: getEnv("RECALL_LOG_LEVEL", ""),
		},
	}
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
// It recognizes "true", "1", "yes" as true and "false", "0", "no" as false (case-insensitive).
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
