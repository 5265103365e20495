package types

import "time"

// RelSameAs asserts that two entity mentions are the same real-world thing.
const RelSameAs = "SAME_AS"

// Relationship status constants
const (
	RelationshipActive   = "active"
	RelationshipInactive = "inactive"
)

// Relationship is an edge between two entities of one owner.
// SAME_AS edges are symmetric and always active.
type Relationship struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	SourceID   string    `json:"source_id"`
	TargetID   string    `json:"target_id"`
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	Confidence float64   `json:"confidence"`
	Evidence   string    `json:"evidence,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// PairKey returns the endpoints in a canonical order so that an edge and its
// reverse share one key.
func (r *Relationship) PairKey() (string, string) {
	if r.SourceID <= r.TargetID {
		return r.SourceID, r.TargetID
	}
	return r.TargetID, r.SourceID
}

// Other returns the endpoint opposite id, and false if id is not an endpoint.
func (r *Relationship) Other(id string) (string, bool) {
	switch id {
	case r.SourceID:
		return r.TargetID, true
	case r.TargetID:
		return r.SourceID, true
	}
	return "", false
}
