// Package messaging defines order domain events and the in-process bus that
// fans them out to handlers.
package messaging

import (
	"context"
	"encoding/json"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Event type constants for order domain events.
const (
	EventOrderCreated = "OrderCreated"
	EventOrderUpdated = "OrderUpdated"
	EventOrderDeleted = "OrderDeleted"
)

// Payload is the structured key-value data of an event.
type Payload map[string]any

// Event is an immutable record of something that happened. Construct it with
// NewEvent or one of the order event constructors.
type Event struct {
	id            string
	eventType     string
	payload       Payload
	timestamp     time.Time
	correlationID string
}

// NewEvent creates an event with a fresh id and the current UTC time.
// The payload is copied at the top level; callers must not mutate nested
// values afterwards.
func NewEvent(eventType string, payload Payload) Event {
	return Event{
		id:        uuid.NewString(),
		eventType: eventType,
		payload:   maps.Clone(payload),
		timestamp: time.Now().UTC(),
	}
}

func (e Event) ID() string           { return e.id }
func (e Event) Type() string         { return e.eventType }
func (e Event) Timestamp() time.Time { return e.timestamp }

// CorrelationID is empty when the event was not raised within a request.
func (e Event) CorrelationID() string { return e.correlationID }

// Payload returns a copy of the top-level payload map.
func (e Event) Payload() Payload {
	return maps.Clone(e.payload)
}

// Get returns a single payload value.
func (e Event) Get(key string) (any, bool) {
	v, ok := e.payload[key]
	return v, ok
}

// WithCorrelationID returns a copy of e carrying id.
func (e Event) WithCorrelationID(id string) Event {
	e.correlationID = id
	return e
}

type eventJSON struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	Data          Payload   `json:"data"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID *string   `json:"correlation_id"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := eventJSON{
		EventID:   e.id,
		EventType: e.eventType,
		Data:      e.payload,
		Timestamp: e.timestamp,
	}
	if e.correlationID != "" {
		out.CorrelationID = &e.correlationID
	}
	return json.Marshal(out)
}

// Handler reacts to the events it accepts. CanHandle must be free of side
// effects; it is evaluated for every published event. Handle may be called
// concurrently with other handlers for the same event.
type Handler interface {
	Name() string
	CanHandle(event Event) bool
	Handle(ctx context.Context, event Event) error
}

// Publisher is what order mutations publish their events to.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type correlationIDKey struct{}

// WithCorrelationID stores a correlation id in ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext returns the id stored by WithCorrelationID.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}
