// Package memstore provides an in-memory implementation of storage.Store.
// It is used by tests and by ephemeral runs (RECALL_STORAGE_ENGINE=memory).
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/pkg/types"
)

// Store implements storage.Store with maps guarded by a RWMutex.
// Values are copied on the way in and out so callers never share state
// with the store.
type Store struct {
	mu            sync.RWMutex
	memories      map[string]*types.Memory
	entities      map[string]*types.Entity
	aliases       []types.Alias
	suggestions   map[string]*types.MergeSuggestion
	suggestionKey map[string]string
	relationships map[string]*types.Relationship
	relKey        map[string]string
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		memories:      make(map[string]*types.Memory),
		entities:      make(map[string]*types.Entity),
		suggestions:   make(map[string]*types.MergeSuggestion),
		suggestionKey: make(map[string]string),
		relationships: make(map[string]*types.Relationship),
		relKey:        make(map[string]string),
	}
}

// prepareMemory validates memory and fills its defaults.
func prepareMemory(memory *types.Memory) error {
	if memory == nil || memory.OwnerID == "" {
		return fmt.Errorf("%w: memory with owner is required", storage.ErrInvalidInput)
	}
	if memory.ID == "" {
		memory.ID = uuid.New().String()
	}
	if memory.CreatedAt.IsZero() {
		memory.CreatedAt = time.Now().UTC()
	}
	if memory.UpdatedAt.IsZero() {
		memory.UpdatedAt = memory.CreatedAt
	}
	return nil
}

// checkMemoryOwner rejects overwriting another owner's memory. Callers hold s.mu.
func (s *Store) checkMemoryOwner(memory *types.Memory) error {
	if existing, ok := s.memories[memory.ID]; ok && existing.OwnerID != memory.OwnerID {
		return fmt.Errorf("%w: memory %s belongs to another owner", storage.ErrInvalidInput, memory.ID)
	}
	return nil
}

// SaveMemory inserts or updates a memory.
func (s *Store) SaveMemory(ctx context.Context, memory *types.Memory) error {
	if err := prepareMemory(memory); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkMemoryOwner(memory); err != nil {
		return err
	}
	s.memories[memory.ID] = copyMemory(memory)
	return nil
}

// SaveMemories inserts a batch, returning the assigned IDs in input order.
// Either every memory is stored or none is.
func (s *Store) SaveMemories(ctx context.Context, memories []*types.Memory) ([]string, error) {
	for _, m := range memories {
		if err := prepareMemory(m); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range memories {
		if err := s.checkMemoryOwner(m); err != nil {
			return nil, err
		}
	}
	ids := make([]string, len(memories))
	for i, m := range memories {
		s.memories[m.ID] = copyMemory(m)
		ids[i] = m.ID
	}
	return ids, nil
}

// GetMemory returns a copy of a live memory.
func (s *Store) GetMemory(ctx context.Context, ownerID, id string) (*types.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.memories[id]
	if !ok || m.OwnerID != ownerID || m.Deleted {
		return nil, storage.ErrNotFound
	}
	return copyMemory(m), nil
}

// ListMemories returns the owner's memories ordered by source date, newest first.
func (s *Store) ListMemories(ctx context.Context, ownerID string, opts storage.MemoryListOptions) ([]*types.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Memory, 0)
	for _, m := range s.memories {
		if m.OwnerID != ownerID {
			continue
		}
		if m.Deleted && !opts.IncludeDeleted {
			continue
		}
		if !opts.HasCategory(m.Category) {
			continue
		}
		out = append(out, copyMemory(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SourceDate.Equal(out[j].SourceDate) {
			return out[i].SourceDate.After(out[j].SourceDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// TouchMemories moves last_accessed forward for the given IDs.
func (s *Store) TouchMemories(ctx context.Context, ownerID string, ids []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		m, ok := s.memories[id]
		if !ok || m.OwnerID != ownerID {
			continue
		}
		t := at
		m.LastAccessed = &t
		m.UpdatedAt = at
	}
	return nil
}

// DeleteMemory soft-deletes a memory.
func (s *Store) DeleteMemory(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memories[id]
	if !ok || m.OwnerID != ownerID || m.Deleted {
		return storage.ErrNotFound
	}
	m.Deleted = true
	m.UpdatedAt = time.Now().UTC()
	return nil
}

// PurgeMemory removes a memory permanently.
func (s *Store) PurgeMemory(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memories[id]
	if !ok || m.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	delete(s.memories, id)
	return nil
}

// SaveEntity inserts or updates an entity.
func (s *Store) SaveEntity(ctx context.Context, entity *types.Entity) error {
	if entity == nil || entity.OwnerID == "" {
		return fmt.Errorf("%w: entity with owner is required", storage.ErrInvalidInput)
	}
	if entity.ID == "" {
		entity.ID = uuid.New().String()
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entities[entity.ID]; ok && existing.OwnerID != entity.OwnerID {
		return fmt.Errorf("%w: entity %s belongs to another owner", storage.ErrInvalidInput, entity.ID)
	}
	s.entities[entity.ID] = copyEntity(entity)
	return nil
}

// GetEntity returns a copy of an entity.
func (s *Store) GetEntity(ctx context.Context, ownerID, id string) (*types.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[id]
	if !ok || e.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	return copyEntity(e), nil
}

// ListEntities returns the owner's entities in creation order.
func (s *Store) ListEntities(ctx context.Context, ownerID string, filter storage.EntityFilter) ([]*types.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Entity, 0)
	for _, e := range s.entities {
		if e.OwnerID != ownerID || !filter.Matches(e) {
			continue
		}
		out = append(out, copyEntity(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SaveAlias records an alias.
func (s *Store) SaveAlias(ctx context.Context, alias *types.Alias) error {
	if alias == nil || alias.OwnerID == "" || alias.EntityValue == "" || alias.Alias == "" {
		return fmt.Errorf("%w: alias requires owner, value and alias", storage.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.aliases {
		if a.OwnerID == alias.OwnerID && a.EntityType == alias.EntityType &&
			strings.EqualFold(a.EntityValue, alias.EntityValue) && strings.EqualFold(a.Alias, alias.Alias) {
			return storage.ErrDuplicate
		}
	}
	s.aliases = append(s.aliases, *alias)
	return nil
}

// ListAliases returns the owner's alias table.
func (s *Store) ListAliases(ctx context.Context, ownerID string) ([]types.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Alias, 0)
	for _, a := range s.aliases {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}

// CreateMergeSuggestion inserts a suggestion unless the pair already exists.
func (s *Store) CreateMergeSuggestion(ctx context.Context, sg *types.MergeSuggestion) error {
	if sg == nil || sg.OwnerID == "" || sg.Entity1ID == "" || sg.Entity2ID == "" {
		return fmt.Errorf("%w: suggestion requires owner and both entities", storage.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := sg.OwnerID + "\x00" + sg.Entity1ID + "\x00" + sg.Entity2ID
	if _, exists := s.suggestionKey[key]; exists {
		return storage.ErrDuplicate
	}
	if sg.ID == "" {
		sg.ID = uuid.New().String()
	}
	if sg.CreatedAt.IsZero() {
		sg.CreatedAt = time.Now().UTC()
	}
	if sg.Status == "" {
		sg.Status = types.SuggestionPending
	}
	cp := *sg
	s.suggestions[sg.ID] = &cp
	s.suggestionKey[key] = sg.ID
	return nil
}

// ListMergeSuggestions returns suggestions ordered by confidence, highest first.
func (s *Store) ListMergeSuggestions(ctx context.Context, ownerID string, status types.SuggestionStatus) ([]*types.MergeSuggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.MergeSuggestion, 0)
	for _, sg := range s.suggestions {
		if sg.OwnerID != ownerID || (status != "" && sg.Status != status) {
			continue
		}
		cp := *sg
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetMergeSuggestion returns a copy of a suggestion.
func (s *Store) GetMergeSuggestion(ctx context.Context, ownerID, id string) (*types.MergeSuggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sg, ok := s.suggestions[id]
	if !ok || sg.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	cp := *sg
	return &cp, nil
}

// UpdateMergeSuggestionStatus records a review decision.
func (s *Store) UpdateMergeSuggestionStatus(ctx context.Context, ownerID, id string, status types.SuggestionStatus, reviewedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sg, ok := s.suggestions[id]
	if !ok || sg.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	sg.Status = status
	t := reviewedAt
	sg.ReviewedAt = &t
	return nil
}

// SaveRelationship inserts an edge unless the unordered pair already has one
// of the same type.
func (s *Store) SaveRelationship(ctx context.Context, rel *types.Relationship) error {
	if rel == nil || rel.OwnerID == "" || rel.SourceID == "" || rel.TargetID == "" || rel.Type == "" {
		return fmt.Errorf("%w: relationship requires owner, endpoints and type", storage.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lo, hi := rel.PairKey()
	key := rel.OwnerID + "\x00" + lo + "\x00" + hi + "\x00" + rel.Type
	if _, exists := s.relKey[key]; exists {
		return storage.ErrDuplicate
	}
	if rel.ID == "" {
		rel.ID = uuid.New().String()
	}
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}
	if rel.Status == "" {
		rel.Status = types.RelationshipActive
	}
	cp := *rel
	s.relationships[rel.ID] = &cp
	s.relKey[key] = rel.ID
	return nil
}

// ListRelationships returns the owner's edges in creation order.
func (s *Store) ListRelationships(ctx context.Context, ownerID string, relTypes ...string) ([]*types.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Relationship, 0)
	for _, r := range s.relationships {
		if r.OwnerID != ownerID || !typeAllowed(r.Type, relTypes) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func typeAllowed(t string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}

func copyMemory(m *types.Memory) *types.Memory {
	cp := *m
	if m.LastAccessed != nil {
		t := *m.LastAccessed
		cp.LastAccessed = &t
	}
	if m.ExpiresAt != nil {
		t := *m.ExpiresAt
		cp.ExpiresAt = &t
	}
	if m.Tags != nil {
		cp.Tags = append([]string(nil), m.Tags...)
	}
	if m.RelatedEntities != nil {
		cp.RelatedEntities = append([]types.EntityRef(nil), m.RelatedEntities...)
	}
	return &cp
}

func copyEntity(e *types.Entity) *types.Entity {
	cp := *e
	if e.MatchConfidence != nil {
		v := *e.MatchConfidence
		cp.MatchConfidence = &v
	}
	return &cp
}
