// Package events defines the document events exchanged over the bus and
// re-exports the bus types so modules need a single import.
package events

import (
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/events"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/logger"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Publisher   = events.Publisher
	Subscriber  = events.Subscriber
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates the process-local bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// Operation names carried by DocumentChanged.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// =============================================================================
// Document Events
// =============================================================================

// DocumentChanged is published after every successful mutation of a document.
// It is the cache/view invalidation signal: list views and cached searchable
// fields for Collection are stale once it fires.
type DocumentChanged struct {
	BaseEvent
	Collection string `json:"collection"`
	DocumentID string `json:"documentId"`
	Operation  string `json:"operation"`
	// Origin identifies the API instance that performed the write. Events
	// relayed from other instances carry their origin and are not re-broadcast.
	Origin string `json:"origin,omitempty"`
}

func (e DocumentChanged) EventName() string { return "documents.changed" }

// SearchableFieldsRefreshed is published when the introspected searchable
// fields of a collection were recomputed.
type SearchableFieldsRefreshed struct {
	BaseEvent
	Collection string   `json:"collection"`
	Fields     []string `json:"fields"`
}

func (e SearchableFieldsRefreshed) EventName() string { return "documents.searchable_fields.refreshed" }
