package storage

import (
	"context"
	"time"

	v1 "github.com/netzet-lab/klaviyo-bridge/internal/api/v1"
)

// EventStore defines the interface for the durable event log.
// The bridge only appends and purges; the read side queries the provider, not
// the local store.
type EventStore interface {
	// SaveEvent persists an event and populates its ID and CreatedAt.
	SaveEvent(ctx context.Context, event *v1.Event) error

	// DeleteEventsBefore removes events created before the cutoff.
	// Returns the number of rows deleted. Used by the retention purger.
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
