// Package types defines the core data structures for the Recall decision layer:
// memories with time-decayed relevance, entity mentions, aliases, merge
// suggestions and identity relationships.
package types

// Category classifies a memory. The set is closed; each category carries a
// fixed decay rate and default importance.
type Category string

// Memory category constants
const (
	CategoryPreference   Category = "preference"
	CategoryFact         Category = "fact"
	CategoryEvent        Category = "event"
	CategoryDecision     Category = "decision"
	CategorySentiment    Category = "sentiment"
	CategoryReminder     Category = "reminder"
	CategoryRelationship Category = "relationship"
)

// CategoryProfile holds the per-category decay parameters.
type CategoryProfile struct {
	// DecayRate is the base exponential decay rate in days⁻¹.
	DecayRate float64

	// DefaultImportance is used when a memory is created without an explicit importance.
	DefaultImportance float64
}

// categoryProfiles is unexported so the table cannot be mutated at runtime.
// Use ProfileFor / DecayRateFor to read it.
var categoryProfiles = map[Category]CategoryProfile{
	CategoryPreference:   {DecayRate: 0.01, DefaultImportance: 0.8},
	CategoryFact:         {DecayRate: 0.02, DefaultImportance: 0.7},
	CategoryRelationship: {DecayRate: 0.02, DefaultImportance: 0.7},
	CategoryDecision:     {DecayRate: 0.03, DefaultImportance: 0.6},
	CategoryEvent:        {DecayRate: 0.05, DefaultImportance: 0.5},
	CategorySentiment:    {DecayRate: 0.10, DefaultImportance: 0.4},
	CategoryReminder:     {DecayRate: 0.20, DefaultImportance: 0.6},
}

// ValidCategories is a slice of all valid memory categories for validation.
var ValidCategories = []Category{
	CategoryPreference,
	CategoryFact,
	CategoryEvent,
	CategoryDecision,
	CategorySentiment,
	CategoryReminder,
	CategoryRelationship,
}

// IsValidCategory checks if the given category is one of the fixed categories.
func IsValidCategory(c Category) bool {
	_, ok := categoryProfiles[c]
	return ok
}

// ProfileFor returns the decay profile of a category and whether it is known.
func ProfileFor(c Category) (CategoryProfile, bool) {
	p, ok := categoryProfiles[c]
	return p, ok
}

// DecayRateFor returns the fixed decay rate of a category, or 0 for an unknown one.
func DecayRateFor(c Category) float64 {
	return categoryProfiles[c].DecayRate
}

// DefaultImportanceFor returns the default importance of a category, or 0.5
// for an unknown one.
func DefaultImportanceFor(c Category) float64 {
	if p, ok := categoryProfiles[c]; ok {
		return p.DefaultImportance
	}
	return 0.5
}

// SourceKind identifies the connector a memory was extracted from.
type SourceKind string

// Memory source constants
const (
	SourceEmail    SourceKind = "email"
	SourceCalendar SourceKind = "calendar"
	SourceChat     SourceKind = "chat"
	SourceManual   SourceKind = "manual"
)

// ValidSourceKinds is a slice of all valid memory sources.
var ValidSourceKinds = []SourceKind{
	SourceEmail,
	SourceCalendar,
	SourceChat,
	SourceManual,
}

// IsValidSourceKind checks if the given source kind is valid.
func IsValidSourceKind(s SourceKind) bool {
	for _, valid := range ValidSourceKinds {
		if valid == s {
			return true
		}
	}
	return false
}

// EntityType is the kind of thing an entity mention refers to.
type EntityType string

// Entity type constants
const (
	EntityTypePerson     EntityType = "person"
	EntityTypeCompany    EntityType = "company"
	EntityTypeProject    EntityType = "project"
	EntityTypeTool       EntityType = "tool"
	EntityTypeTopic      EntityType = "topic"
	EntityTypeLocation   EntityType = "location"
	EntityTypeActionItem EntityType = "action_item"
	EntityTypeDate       EntityType = "date"
)

// ValidEntityTypes is a slice of all valid entity types for validation.
var ValidEntityTypes = []EntityType{
	EntityTypePerson,
	EntityTypeCompany,
	EntityTypeProject,
	EntityTypeTool,
	EntityTypeTopic,
	EntityTypeLocation,
	EntityTypeActionItem,
	EntityTypeDate,
}

// IsValidEntityType checks if the given entity type is valid.
func IsValidEntityType(t EntityType) bool {
	for _, valid := range ValidEntityTypes {
		if valid == t {
			return true
		}
	}
	return false
}

// MentionSource is the part of a message an entity mention was found in.
type MentionSource string

// Mention source constants
const (
	MentionSourceMetadata MentionSource = "metadata"
	MentionSourceSubject  MentionSource = "subject"
	MentionSourceBody     MentionSource = "body"
)
