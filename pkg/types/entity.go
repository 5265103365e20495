package types

import "time"

// Entity is a named mention extracted from a user's content. Different
// spellings of the same real-world thing are separate entities until a
// merge suggestion or a SAME_AS edge links them.
type Entity struct {
	ID         string        `json:"id"`
	OwnerID    string        `json:"owner_id"`
	Type       EntityType    `json:"type"`
	Value      string        `json:"value"`
	Normalized string        `json:"normalized,omitempty"`
	Confidence float64       `json:"confidence"`
	Source     MentionSource `json:"source,omitempty"`
	Context    string        `json:"context,omitempty"`

	// IsIdentity marks the mention as a known alias of the acting user.
	IsIdentity bool `json:"is_identity,omitempty"`

	// MatchConfidence is how sure extraction was that this identity mention
	// is the user. Nil means unknown.
	MatchConfidence *float64 `json:"match_confidence,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Alias records a known alternate spelling of an entity value for one user.
type Alias struct {
	OwnerID     string     `json:"owner_id"`
	EntityType  EntityType `json:"entity_type"`
	EntityValue string     `json:"entity_value"`
	Alias       string     `json:"alias"`
}

// MatchResult is the ephemeral outcome of comparing two entity mentions.
type MatchResult struct {
	Entity1    Entity  `json:"entity1"`
	Entity2    Entity  `json:"entity2"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}
