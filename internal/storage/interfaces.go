// Package storage defines the repository ports of the Recall decision layer.
//
// The scoring, matching and clustering code never talks to a database
// directly; it is handed small, focused interfaces that adapters (sqlite,
// postgres, memstore) implement. Every call is scoped to one owner: data of
// different users never meets inside a single query.
package storage

import (
	"context"
	"time"

	"github.com/scrypster/recall/pkg/types"
)

// MemoryStore persists memories.
type MemoryStore interface {
	// SaveMemory inserts or updates a memory. An empty ID is assigned by the
	// store and written back to memory.ID.
	SaveMemory(ctx context.Context, memory *types.Memory) error

	// SaveMemories inserts a batch and returns the IDs actually persisted,
	// in input order.
	SaveMemories(ctx context.Context, memories []*types.Memory) ([]string, error)

	// GetMemory returns ErrNotFound for unknown or soft-deleted memories.
	GetMemory(ctx context.Context, ownerID, id string) (*types.Memory, error)

	// ListMemories returns the owner's memories, excluding soft-deleted ones
	// unless opts.IncludeDeleted is set.
	ListMemories(ctx context.Context, ownerID string, opts MemoryListOptions) ([]*types.Memory, error)

	// TouchMemories sets last_accessed to at for the given IDs. Unknown IDs
	// are ignored.
	TouchMemories(ctx context.Context, ownerID string, ids []string, at time.Time) error

	// DeleteMemory sets the soft-delete flag.
	DeleteMemory(ctx context.Context, ownerID, id string) error

	// PurgeMemory physically removes a memory.
	PurgeMemory(ctx context.Context, ownerID, id string) error
}

// EntityStore persists entity mentions.
type EntityStore interface {
	// SaveEntity inserts or updates an entity. An empty ID is assigned.
	SaveEntity(ctx context.Context, entity *types.Entity) error

	// GetEntity returns ErrNotFound for unknown entities.
	GetEntity(ctx context.Context, ownerID, id string) (*types.Entity, error)

	// ListEntities returns the owner's entities matching filter.
	ListEntities(ctx context.Context, ownerID string, filter EntityFilter) ([]*types.Entity, error)
}

// AliasStore holds the user's known alias table.
type AliasStore interface {
	// SaveAlias records an alias; an identical record returns ErrDuplicate.
	SaveAlias(ctx context.Context, alias *types.Alias) error

	// ListAliases returns every alias record of the owner.
	ListAliases(ctx context.Context, ownerID string) ([]types.Alias, error)
}

// MergeSuggestionStore persists merge suggestions.
type MergeSuggestionStore interface {
	// CreateMergeSuggestion inserts a suggestion. A second record for the
	// same (owner, entity1, entity2) returns ErrDuplicate.
	CreateMergeSuggestion(ctx context.Context, s *types.MergeSuggestion) error

	// ListMergeSuggestions returns the owner's suggestions, optionally
	// filtered by status (empty = all), highest confidence first.
	ListMergeSuggestions(ctx context.Context, ownerID string, status types.SuggestionStatus) ([]*types.MergeSuggestion, error)

	// GetMergeSuggestion returns ErrNotFound for unknown suggestions.
	GetMergeSuggestion(ctx context.Context, ownerID, id string) (*types.MergeSuggestion, error)

	// UpdateMergeSuggestionStatus records a review decision.
	UpdateMergeSuggestionStatus(ctx context.Context, ownerID, id string, status types.SuggestionStatus, reviewedAt time.Time) error
}

// RelationshipStore persists entity relationships.
type RelationshipStore interface {
	// SaveRelationship inserts an edge. An edge with the same unordered
	// endpoint pair and type returns ErrDuplicate.
	SaveRelationship(ctx context.Context, rel *types.Relationship) error

	// ListRelationships returns the owner's edges, optionally restricted to
	// the given types.
	ListRelationships(ctx context.Context, ownerID string, relTypes ...string) ([]*types.Relationship, error)
}

// Store composes every port. Adapters implement it in full.
type Store interface {
	MemoryStore
	EntityStore
	AliasStore
	MergeSuggestionStore
	RelationshipStore

	// Close releases any resources held by the store.
	Close() error
}
