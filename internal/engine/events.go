package engine

import "time"

// EventType names a change the engine announces to listeners.
type EventType string

// Event types
const (
	EventMemoryCreated       EventType = "memory.created"
	EventMemoryDeleted       EventType = "memory.deleted"
	EventSuggestionsCreated  EventType = "merge.suggestions_created"
	EventSuggestionReviewed  EventType = "merge.suggestion_reviewed"
	EventIdentityEdgesLinked EventType = "identity.edges_created"
)

// Event is a notification about one owner's data. Data is any
// JSON-serializable payload.
type Event struct {
	Type      EventType `json:"type"`
	OwnerID   string    `json:"owner_id"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventPublisher delivers events to interested listeners (review UIs).
// Publish must not block the caller.
type EventPublisher interface {
	Publish(event Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}

// publisherOrNop returns p, or a publisher that drops everything when p is nil.
func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

func newEvent(t EventType, ownerID string, data any) Event {
	return Event{Type: t, OwnerID: ownerID, Data: data, Timestamp: time.Now().UTC()}
}
