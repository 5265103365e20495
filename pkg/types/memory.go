package types

import (
	"fmt"
	"strings"
	"time"
)

// DefaultConfidence is the extraction confidence assigned when none is given.
const DefaultConfidence = 0.8

// EntityRef is a typed reference from a memory to an entity it mentions.
type EntityRef struct {
	ID    string     `json:"id,omitempty"`
	Type  EntityType `json:"type"`
	Value string     `json:"value"`
}

// Memory is a single remembered fact about a user.
//
// Strength is never stored: it is recomputed from the decay fields at read
// time. LastAccessed is moved forward whenever the memory is retrieved.
type Memory struct {
	ID       string   `json:"id"`
	OwnerID  string   `json:"owner_id"`
	Content  string   `json:"content"`
	Category Category `json:"category"`

	Importance float64 `json:"importance"`
	DecayRate  float64 `json:"decay_rate"`
	Confidence float64 `json:"confidence"`

	SourceKind SourceKind `json:"source_kind"`
	SourceID   string     `json:"source_id,omitempty"`
	SourceDate time.Time  `json:"source_date"`

	LastAccessed *time.Time `json:"last_accessed,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`

	RelatedEntities []EntityRef `json:"related_entities,omitempty"`
	Tags            []string    `json:"tags,omitempty"`

	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReferenceDate is the start of the current decay window: the last access if
// any, otherwise the source date.
func (m *Memory) ReferenceDate() time.Time {
	if m.LastAccessed != nil && !m.LastAccessed.IsZero() {
		return *m.LastAccessed
	}
	return m.SourceDate
}

// CreateMemoryInput is what the extraction collaborator (or an explicit save)
// hands over to create a memory.
type CreateMemoryInput struct {
	OwnerID         string      `json:"owner_id" validate:"required"`
	Content         string      `json:"content" validate:"required"`
	Category        Category    `json:"category" validate:"required"`
	Importance      *float64    `json:"importance,omitempty" validate:"omitempty,gte=0,lte=1"`
	Confidence      *float64    `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	SourceKind      SourceKind  `json:"source_kind" validate:"required"`
	SourceID        string      `json:"source_id,omitempty"`
	SourceDate      *time.Time  `json:"source_date,omitempty"`
	RelatedEntities []EntityRef `json:"related_entities,omitempty"`
	Tags            []string    `json:"tags,omitempty"`
	ExpiresAt       *time.Time  `json:"expires_at,omitempty"`
}

// NewMemory builds a memory from an input, filling in the category decay
// rate and defaults. The ID is left empty for the store to assign.
func NewMemory(in CreateMemoryInput, now time.Time) (*Memory, error) {
	if strings.TrimSpace(in.OwnerID) == "" {
		return nil, fmt.Errorf("owner id is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("content is required")
	}
	profile, ok := ProfileFor(in.Category)
	if !ok {
		return nil, fmt.Errorf("unknown category %q", in.Category)
	}
	if !IsValidSourceKind(in.SourceKind) {
		return nil, fmt.Errorf("unknown source kind %q", in.SourceKind)
	}

	importance := profile.DefaultImportance
	if in.Importance != nil {
		importance = *in.Importance
	}
	if importance < 0 || importance > 1 {
		return nil, fmt.Errorf("importance %v outside [0,1]", importance)
	}

	confidence := DefaultConfidence
	if in.Confidence != nil {
		confidence = *in.Confidence
	}
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("confidence %v outside [0,1]", confidence)
	}

	sourceDate := now
	if in.SourceDate != nil && !in.SourceDate.IsZero() {
		sourceDate = *in.SourceDate
	}

	return &Memory{
		OwnerID:         in.OwnerID,
		Content:         in.Content,
		Category:        in.Category,
		Importance:      importance,
		DecayRate:       profile.DecayRate,
		Confidence:      confidence,
		SourceKind:      in.SourceKind,
		SourceID:        in.SourceID,
		SourceDate:      sourceDate,
		ExpiresAt:       in.ExpiresAt,
		RelatedEntities: in.RelatedEntities,
		Tags:            in.Tags,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}
