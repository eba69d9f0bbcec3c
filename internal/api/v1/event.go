package v1

import (
	"fmt"
	"time"
)

// Event is the atomic unit of the system: one behavioral event reported by a
// client application. It is persisted locally first, then forwarded to the
// marketing provider on a best-effort basis.
type Event struct {
	// ID is assigned by the store on first save (UUID v4).
	ID string `json:"id"`

	// Name is the provider-side metric name this event increments
	// (e.g. "purchased", "viewed_product").
	Name string `json:"name"`

	// Attributes is the domain-specific event payload, forwarded verbatim
	// as the provider event properties.
	Attributes map[string]interface{} `json:"attributes,omitempty"`

	// ProfileAttributes identifies and enriches the profile the event belongs
	// to on the provider side (email, first_name, ...).
	ProfileAttributes map[string]interface{} `json:"profile_attributes,omitempty"`

	// CreatedAt is when the bridge received the event (server-side clock).
	// Set by the store, not the client.
	CreatedAt time.Time `json:"created_at"`
}

// Validate ensures the event carries the attributes required for forwarding.
func (e *Event) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// BulkEventsRequest is the body of the bulk ingestion endpoint.
type BulkEventsRequest struct {
	Events []Event `json:"events"`
}

// Validate checks the batch as a whole; a single invalid entry rejects the
// whole request before anything is persisted.
func (r *BulkEventsRequest) Validate() error {
	if len(r.Events) == 0 {
		return fmt.Errorf("events is required and must not be empty")
	}
	for i := range r.Events {
		if err := r.Events[i].Validate(); err != nil {
			return fmt.Errorf("events[%d]: %w", i, err)
		}
	}
	return nil
}
