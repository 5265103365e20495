package storage

import (
	"errors"

	"github.com/scrypster/recall/pkg/types"
)

var (
	// ErrNotFound indicates that the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicate indicates a uniqueness constraint rejected the write.
	// Pipelines treat it as "already there" and move on.
	ErrDuplicate = errors.New("duplicate record")
)

// MemoryListOptions narrows ListMemories at the store boundary. Scoring
// filters (strength, confidence, importance) are applied by the engine.
type MemoryListOptions struct {
	// Categories restricts results to these categories. Empty means all.
	Categories []types.Category

	// IncludeDeleted includes soft-deleted memories.
	IncludeDeleted bool
}

// EntityFilter narrows ListEntities.
type EntityFilter struct {
	// Type restricts results to one entity type. Empty means all.
	Type types.EntityType

	// IdentityOnly restricts results to mentions flagged as the user.
	IdentityOnly bool
}

// Matches reports whether e passes the filter.
func (f EntityFilter) Matches(e *types.Entity) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.IdentityOnly && !e.IsIdentity {
		return false
	}
	return true
}

// HasCategory reports whether c passes the category restriction.
func (o MemoryListOptions) HasCategory(c types.Category) bool {
	if len(o.Categories) == 0 {
		return true
	}
	for _, want := range o.Categories {
		if want == c {
			return true
		}
	}
	return false
}
