package cli

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/scrypster/recall/internal/config"
	"github.com/scrypster/recall/internal/engine"
	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/internal/storage/memstore"
	"github.com/scrypster/recall/internal/storage/postgres"
	"github.com/scrypster/recall/internal/storage/sqlite"
	"github.com/scrypster/recall/pkg/logger"
)

// app is everything a command needs, built once from the configuration.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    storage.Store
	registry *prometheus.Registry
	metrics  *engine.Metrics
	scorer   *engine.MatchScorer
	noise    *engine.NoiseFilter
}

func loadConfig() (*config.Config, error) {
	if envFile != "" {
		return config.LoadConfig(envFile)
	}
	return config.LoadConfig()
}

// newApp loads configuration and opens the store. Callers must Close it.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	nicknames, err := engine.LoadNicknames(cfg.Engine.NicknamesPath)
	if err != nil {
		return nil, err
	}
	lists, err := engine.LoadNoiseLists(cfg.Engine.NoiseListsPath)
	if err != nil {
		return nil, err
	}
	noise, err := engine.NewNoiseFilter(lists)
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg, log)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &app{
		cfg:      cfg,
		logger:   log,
		store:    store,
		registry: reg,
		metrics:  engine.NewMetrics(reg),
		scorer:   engine.NewMatchScorer(nicknames),
		noise:    noise,
	}, nil
}

func openStore(cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	switch cfg.Storage.Engine {
	case config.StorageMemory:
		log.Warn("using in-memory storage, data is lost on exit")
		return memstore.New(), nil
	case config.StoragePostgres:
		return postgres.New(cfg.Storage.PostgresDSN, postgres.PoolConfig{MaxOpenConns: cfg.Storage.MaxOpenConn}, log)
	case config.StorageSQLite:
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return sqlite.New(cfg.Storage.SQLitePath(), log)
	}
	return nil, fmt.Errorf("unknown storage engine %q", cfg.Storage.Engine)
}

func (a *app) memoryEngine() (*engine.MemoryEngine, error) {
	ecfg := engine.DefaultConfig()
	ecfg.RefreshTopK = a.cfg.Engine.RefreshTopK
	ecfg.DefaultLimit = a.cfg.Engine.DefaultLimit
	ecfg.MaxLimit = a.cfg.Engine.MaxLimit

	e, err := engine.NewMemoryEngine(a.store, ecfg, a.logger)
	if err != nil {
		return nil, err
	}
	e.SetMetrics(a.metrics)
	return e, nil
}

func (a *app) mergePipeline() *engine.MergePipeline {
	p := engine.NewMergePipeline(a.store, a.scorer, a.logger)
	p.SetMetrics(a.metrics)
	return p
}

func (a *app) identityBuilder() *engine.IdentityBuilder {
	b := engine.NewIdentityBuilder(a.store, a.scorer, a.logger)
	b.SetMetrics(a.metrics)
	return b
}

// Close releases the store and flushes the logger.
func (a *app) Close() error {
	err := a.store.Close()
	_ = a.logger.Sync()
	return err
}
