package handlers

import (
	"time"

	"github.com/scrypster/recall/internal/engine"
	"github.com/scrypster/recall/pkg/types"
)

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// CreateMemoryRequest is the body of POST /api/users/{owner}/memories.
// The owner comes from the path.
type CreateMemoryRequest struct {
	Content         string            `json:"content" validate:"required,max=10000"`
	Category        types.Category    `json:"category" validate:"required,oneof=preference fact event decision sentiment reminder relationship"`
	Importance      *float64          `json:"importance,omitempty" validate:"omitempty,gte=0,lte=1"`
	Confidence      *float64          `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	SourceKind      types.SourceKind  `json:"source_kind" validate:"required"`
	SourceID        string            `json:"source_id,omitempty" validate:"max=256"`
	SourceDate      *time.Time        `json:"source_date,omitempty"`
	RelatedEntities []types.EntityRef `json:"related_entities,omitempty" validate:"max=100"`
	Tags            []string          `json:"tags,omitempty" validate:"max=50,dive,required,max=64"`
	ExpiresAt       *time.Time        `json:"expires_at,omitempty"`
}

func (r CreateMemoryRequest) input(ownerID string) types.CreateMemoryInput {
	return types.CreateMemoryInput{
		OwnerID:         ownerID,
		Content:         r.Content,
		Category:        r.Category,
		Importance:      r.Importance,
		Confidence:      r.Confidence,
		SourceKind:      r.SourceKind,
		SourceID:        r.SourceID,
		SourceDate:      r.SourceDate,
		RelatedEntities: r.RelatedEntities,
		Tags:            r.Tags,
		ExpiresAt:       r.ExpiresAt,
	}
}

// BatchCreateMemoriesRequest is the body of POST .../memories/batch.
type BatchCreateMemoriesRequest struct {
	Memories []CreateMemoryRequest `json:"memories" validate:"required,min=1,max=500,dive"`
}

// MemoriesResponse wraps a list of scored memories.
type MemoriesResponse struct {
	Memories []engine.ScoredMemory `json:"memories"`
	Count    int                   `json:"count"`
}

// CreatedMemoriesResponse is returned by the batch endpoint.
type CreatedMemoriesResponse struct {
	Memories []*types.Memory `json:"memories"`
	Count    int             `json:"count"`
}

// EntityRequest is one extracted mention.
type EntityRequest struct {
	Type            types.EntityType    `json:"type" validate:"required,oneof=person company project tool topic location action_item date"`
	Value           string              `json:"value" validate:"required,max=512"`
	Normalized      string              `json:"normalized,omitempty" validate:"max=512"`
	Confidence      float64             `json:"confidence" validate:"gte=0,lte=1"`
	Source          types.MentionSource `json:"source,omitempty" validate:"omitempty,oneof=metadata subject body"`
	Context         string              `json:"context,omitempty" validate:"max=2000"`
	IsIdentity      bool                `json:"is_identity,omitempty"`
	MatchConfidence *float64            `json:"match_confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// entity builds the stored entity. Normalized defaults to the matcher's
// normalization of Value.
func (r EntityRequest) entity(ownerID string) *types.Entity {
	normalized := r.Normalized
	if normalized == "" {
		normalized = engine.NormalizeEntityValue(r.Value)
	}
	return &types.Entity{
		OwnerID:         ownerID,
		Type:            r.Type,
		Value:           r.Value,
		Normalized:      normalized,
		Confidence:      r.Confidence,
		Source:          r.Source,
		Context:         r.Context,
		IsIdentity:      r.IsIdentity,
		MatchConfidence: r.MatchConfidence,
	}
}

// SaveEntitiesRequest is the body of POST .../entities.
type SaveEntitiesRequest struct {
	Entities []EntityRequest `json:"entities" validate:"required,min=1,max=500,dive"`
}

// SaveEntitiesResponse reports which mentions were kept.
type SaveEntitiesResponse struct {
	Entities []*types.Entity `json:"entities"`
	Saved    int             `json:"saved"`
	// Dropped counts mentions removed as extraction noise.
	Dropped int `json:"dropped"`
}

// AliasRequest is the body of POST .../aliases.
type AliasRequest struct {
	EntityType  types.EntityType `json:"entity_type" validate:"required,oneof=person company project tool topic location action_item date"`
	EntityValue string           `json:"entity_value" validate:"required,max=512"`
	Alias       string           `json:"alias" validate:"required,max=512"`
}

// ReviewRequest is the body of POST .../merge-suggestions/{id}/review.
type ReviewRequest struct {
	Decision types.SuggestionStatus `json:"decision" validate:"required,oneof=accepted rejected"`
}

// SuggestionsResponse wraps a list of merge suggestions.
type SuggestionsResponse struct {
	Suggestions []*types.MergeSuggestion `json:"suggestions"`
	Count       int                      `json:"count"`
}
