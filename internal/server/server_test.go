package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/scrypster/recall/internal/config"
	"github.com/scrypster/recall/internal/engine"
	"github.com/scrypster/recall/internal/server"
	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/internal/storage/memstore"
	"github.com/scrypster/recall/internal/storage/sqlite"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ShutdownTimeout: 2 * time.Second,
		},
		Security: config.SecurityConfig{Mode: config.ModeDevelopment},
		RateLimit: config.RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 100,
			Burst:             100,
		},
	}
}

func testDeps(t *testing.T, store storage.Store) server.Deps {
	t.Helper()
	logger := zaptest.NewLogger(t)
	reg := prometheus.NewRegistry()
	metrics := engine.NewMetrics(reg)

	memEngine, err := engine.NewMemoryEngine(store, engine.DefaultConfig(), logger)
	require.NoError(t, err)
	memEngine.SetMetrics(metrics)

	merges := engine.NewMergePipeline(store, nil, logger)
	merges.SetMetrics(metrics)

	return server.Deps{
		Store:    store,
		Memory:   memEngine,
		Merges:   merges,
		Registry: reg,
		Logger:   logger,
		Version:  "test",
	}
}

// startTestServer starts a server on a random port and returns its base URL.
// The server is shut down in t.Cleanup.
func startTestServer(t *testing.T, cfg *config.Config) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	srv, err := server.Start(ctx, cfg, testDeps(t, memstore.New()))
	require.NoError(t, err)

	t.Cleanup(func() {
		cancel()
		select {
		case <-srv.Done():
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
	})
	return "http://" + srv.Addr()
}

func TestServer_HealthEndpoint(t *testing.T) {
	base := startTestServer(t, testConfig())

	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestServer_APIRoundTrip(t *testing.T) {
	base := startTestServer(t, testConfig())

	resp, err := http.Post(base+"/api/users/u1/memories", "application/json",
		strings.NewReader(`{"content":"Likes green tea","category":"preference","source_kind":"chat"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(base + "/api/users/u1/memories")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Likes green tea")
}

func TestServer_ProductionModeRequiresAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Security.Mode = config.ModeProduction
	cfg.Security.APIToken = "s3cret"
	base := startTestServer(t, cfg)

	resp, err := http.Get(base + "/api/users/u1/memories")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, base+"/api/users/u1/memories", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health stays open")
}

func TestServer_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1
	base := startTestServer(t, cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := http.Get(base + "/api/users/u1/memories")
		require.NoError(t, err)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Contains(t, codes[1:], http.StatusTooManyRequests)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	base := startTestServer(t, testConfig())

	resp, err := http.Post(base+"/api/users/u1/merge-suggestions/run", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "recall_pipeline_duration_seconds")
}

func TestServer_NotFound(t *testing.T) {
	base := startTestServer(t, testConfig())

	resp, err := http.Get(base + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_GracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv, err := server.Start(ctx, testConfig(), testDeps(t, memstore.New()))
	require.NoError(t, err)

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()

	cancel()
	select {
	case <-srv.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	_, err = http.Get("http://" + srv.Addr() + "/healthz")
	assert.Error(t, err, "listener is closed after shutdown")
}

func TestStart_RequiresStoreAndEngine(t *testing.T) {
	_, err := server.Start(context.Background(), testConfig(), server.Deps{})
	assert.Error(t, err)
}

func TestHealth_UnhealthyWhenDatabaseClosed(t *testing.T) {
	store, err := sqlite.New(":memory:", zaptest.NewLogger(t))
	require.NoError(t, err)

	router, err := server.NewRouter(testConfig(), testDeps(t, store), nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, store.Close())
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unhealthy")
}
