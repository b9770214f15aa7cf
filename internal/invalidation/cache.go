package invalidation

import (
	"context"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/entity"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/events"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/logger"
)

// Evictor drops the cached searchable fields of a collection.
type Evictor interface {
	Evict(ctx context.Context, collection string) error
}

// RefreshEnqueuer schedules a background refresh of a collection's
// searchable fields.
type RefreshEnqueuer interface {
	EnqueueRefresh(ctx context.Context, collection string) error
}

// CacheInvalidator evicts introspected searchable fields after a change and
// asks the worker to recompute them. Entities with declared search fields
// are never cached and are skipped.
type CacheInvalidator struct {
	cache    Evictor
	registry *entity.Registry
	enqueue  RefreshEnqueuer
	origin   string
	log      *logger.Logger
}

// NewCacheInvalidator creates the handler. enqueue may be nil when no worker
// is configured; the next read then reloads lazily.
func NewCacheInvalidator(cache Evictor, registry *entity.Registry, enqueue RefreshEnqueuer, origin string, log *logger.Logger) *CacheInvalidator {
	if log == nil {
		log = logger.Discard()
	}
	return &CacheInvalidator{cache: cache, registry: registry, enqueue: enqueue, origin: origin, log: log}
}

// Handle implements events.Handler for DocumentChanged.
func (ci *CacheInvalidator) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(events.DocumentChanged)
	if !ok {
		return nil
	}
	cfg, err := ci.registry.Get(e.Collection)
	if err != nil || cfg.HasDeclaredSearchFields() {
		return nil
	}

	if err := ci.cache.Evict(ctx, e.Collection); err != nil {
		ci.log.Warn("searchable fields eviction failed", "collection", e.Collection, "error", err)
	}

	// Only the instance that made the write schedules the refresh.
	if ci.enqueue == nil || e.Origin != ci.origin {
		return nil
	}
	return ci.enqueue.EnqueueRefresh(ctx, e.Collection)
}
