// Package invalidation turns successful mutations into DocumentChanged events
// and fans them out: to SSE clients, to the searchable-fields cache and, over
// Redis pub/sub, to the other API instances.
package invalidation

import (
	"context"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/crud"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/events"
)

// BusInvalidator publishes every change on the in-process bus.
type BusInvalidator struct {
	bus    events.Publisher
	origin string
}

var _ crud.Invalidator = (*BusInvalidator)(nil)

func NewBusInvalidator(bus events.Publisher, origin string) *BusInvalidator {
	return &BusInvalidator{bus: bus, origin: origin}
}

// Invalidate publishes asynchronously and never blocks the write path.
func (b *BusInvalidator) Invalidate(ctx context.Context, change crud.Change) {
	b.bus.Publish(ctx, events.DocumentChanged{
		BaseEvent:  events.NewBaseEvent(),
		Collection: change.Collection,
		DocumentID: change.DocumentID,
		Operation:  string(change.Operation),
		Origin:     b.origin,
	})
}
