package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/pkg/types"
)

// ErrShuttingDown is returned by retrievals issued after Shutdown started.
var ErrShuttingDown = errors.New("memory engine is shutting down")

// MemoryEngine is the memory-facing surface: it creates memories with
// their decay fields, ranks them at read time and refreshes the decay clock
// of what it returns.
//
// Refresh writes run in the background so a retrieval never waits on them.
// Shutdown (or Wait) drains them.
type MemoryEngine struct {
	config  Config
	store   storage.MemoryStore
	logger  *zap.Logger
	metrics *Metrics
	events  EventPublisher
	now     func() time.Time

	refreshes    sync.WaitGroup
	mu           sync.RWMutex
	shuttingDown bool
}

// NewMemoryEngine creates a memory engine over store.
// Use DefaultConfig() for sensible defaults.
func NewMemoryEngine(store storage.MemoryStore, cfg Config, logger *zap.Logger) (*MemoryEngine, error) {
	if store == nil {
		return nil, fmt.Errorf("memory store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryEngine{
		config: cfg,
		store:  store,
		logger: logger,
		events: nopPublisher{},
		now:    time.Now,
	}, nil
}

// SetMetrics attaches prometheus collectors.
func (e *MemoryEngine) SetMetrics(m *Metrics) {
	e.metrics = m
}

// SetPublisher attaches an event publisher.
func (e *MemoryEngine) SetPublisher(pub EventPublisher) {
	e.events = publisherOrNop(pub)
}

// Create builds a memory from input and persists it.
func (e *MemoryEngine) Create(ctx context.Context, in types.CreateMemoryInput) (*types.Memory, error) {
	m, err := types.NewMemory(in, e.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	if err := e.store.SaveMemory(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save memory: %w", err)
	}

	e.logger.Debug("memory created",
		zap.String("owner_id", m.OwnerID),
		zap.String("memory_id", m.ID),
		zap.String("category", string(m.Category)))
	e.events.Publish(newEvent(EventMemoryCreated, m.OwnerID, m))
	return m, nil
}

// CreateBatch validates every input before writing any, then persists the
// batch. The returned memories carry the IDs the store assigned.
func (e *MemoryEngine) CreateBatch(ctx context.Context, inputs []types.CreateMemoryInput) ([]*types.Memory, error) {
	now := e.now().UTC()
	memories := make([]*types.Memory, 0, len(inputs))
	for i, in := range inputs {
		m, err := types.NewMemory(in, now)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", storage.ErrInvalidInput, i, err)
		}
		memories = append(memories, m)
	}
	if len(memories) == 0 {
		return memories, nil
	}

	ids, err := e.store.SaveMemories(ctx, memories)
	if err != nil {
		return nil, fmt.Errorf("failed to save memories: %w", err)
	}
	if len(ids) != len(memories) {
		return nil, fmt.Errorf("store returned %d ids for %d memories", len(ids), len(memories))
	}
	for i, id := range ids {
		memories[i].ID = id
	}

	e.logger.Info("memory batch created", zap.Int("count", len(memories)))
	for _, m := range memories {
		e.events.Publish(newEvent(EventMemoryCreated, m.OwnerID, m))
	}
	return memories, nil
}

// Get returns a memory with its current strength, half-life and predicted
// decay date. It does not refresh the memory.
func (e *MemoryEngine) Get(ctx context.Context, ownerID, id string) (*MemoryDetails, error) {
	m, err := e.store.GetMemory(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	d := &MemoryDetails{ScoredMemory: Score(m, e.now().UTC())}
	if hl, err := HalfLife(m); err == nil {
		d.HalfLifeDays = &hl
	}
	if at, err := PredictDecayDate(m, e.config.DecayThreshold); err == nil {
		d.DecayDate = &at
	}
	return d, nil
}

// Delete soft-deletes a memory, or removes it when hard is set.
func (e *MemoryEngine) Delete(ctx context.Context, ownerID, id string, hard bool) error {
	var err error
	if hard {
		err = e.store.PurgeMemory(ctx, ownerID, id)
	} else {
		err = e.store.DeleteMemory(ctx, ownerID, id)
	}
	if err != nil {
		return err
	}

	e.logger.Debug("memory deleted",
		zap.String("owner_id", ownerID),
		zap.String("memory_id", id),
		zap.Bool("hard", hard))
	e.events.Publish(newEvent(EventMemoryDeleted, ownerID, map[string]any{"id": id, "hard": hard}))
	return nil
}

// Retrieve loads the owner's live memories, scores and filters them, and
// returns the best ones by relevance. Only the returned memories are
// refreshed, in the background.
func (e *MemoryEngine) Retrieve(ctx context.Context, ownerID string, opts RetrievalOptions) ([]ScoredMemory, error) {
	e.mu.RLock()
	closing := e.shuttingDown
	e.mu.RUnlock()
	if closing {
		return nil, ErrShuttingDown
	}
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", storage.ErrInvalidInput)
	}

	memories, err := e.store.ListMemories(ctx, ownerID, storage.MemoryListOptions{Categories: opts.Categories})
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}

	now := e.now().UTC()
	limit := e.limit(opts.Limit)
	results := make([]ScoredMemory, 0, min(limit, len(memories)))
	for _, sm := range RankByRelevance(memories, now) {
		if sm.Strength < opts.MinStrength ||
			sm.Memory.Confidence < opts.MinConfidence ||
			sm.Memory.Importance < opts.MinImportance {
			continue
		}
		results = append(results, sm)
		if len(results) == limit {
			break
		}
	}

	if e.config.RefreshTopK && len(results) > 0 {
		ids := make([]string, len(results))
		for i, sm := range results {
			ids[i] = sm.Memory.ID
		}
		e.refreshAsync(ctx, ownerID, ids, now)
	}
	return results, nil
}

func (e *MemoryEngine) limit(requested int) int {
	switch {
	case requested <= 0:
		return e.config.DefaultLimit
	case requested > e.config.MaxLimit:
		return e.config.MaxLimit
	}
	return requested
}

// refreshAsync writes last_accessed for ids without holding up the caller.
// The write outlives the request context but not RefreshTimeout.
func (e *MemoryEngine) refreshAsync(ctx context.Context, ownerID string, ids []string, at time.Time) {
	e.mu.RLock()
	if e.shuttingDown {
		e.mu.RUnlock()
		return
	}
	e.refreshes.Add(1)
	e.mu.RUnlock()

	go func() {
		defer e.refreshes.Done()

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.config.RefreshTimeout)
		defer cancel()

		if err := e.store.TouchMemories(rctx, ownerID, ids, at); err != nil {
			e.metrics.addRefreshes("error", len(ids))
			e.logger.Warn("failed to refresh retrieved memories",
				zap.String("owner_id", ownerID),
				zap.Int("count", len(ids)),
				zap.Error(err))
			return
		}
		e.metrics.addRefreshes("ok", len(ids))
	}()
}

// Wait blocks until every pending refresh has finished.
func (e *MemoryEngine) Wait() {
	e.refreshes.Wait()
}

// Shutdown stops accepting retrievals and waits for pending refreshes, or
// until ctx is done.
func (e *MemoryEngine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.shuttingDown = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.refreshes.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("memory engine shut down")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for refreshes: %w", ctx.Err())
	}
}
