package types

import "time"

// SuggestionStatus is the review state of a merge suggestion.
type SuggestionStatus string

// Merge suggestion status constants
const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionAccepted SuggestionStatus = "accepted"
	SuggestionRejected SuggestionStatus = "rejected"
)

// IsValidSuggestionStatus checks if the given status is valid.
func IsValidSuggestionStatus(s SuggestionStatus) bool {
	switch s {
	case SuggestionPending, SuggestionAccepted, SuggestionRejected:
		return true
	}
	return false
}

// MergeSuggestion is a persisted match awaiting (or past) review.
// (OwnerID, Entity1ID, Entity2ID) is unique; records are never deleted.
type MergeSuggestion struct {
	ID         string           `json:"id"`
	OwnerID    string           `json:"owner_id"`
	Entity1ID  string           `json:"entity1_id"`
	Entity2ID  string           `json:"entity2_id"`
	EntityType EntityType       `json:"entity_type"`
	Confidence float64          `json:"confidence"`
	Reason     string           `json:"reason"`
	Status     SuggestionStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	ReviewedAt *time.Time       `json:"reviewed_at,omitempty"`
}
