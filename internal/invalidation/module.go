package invalidation

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/entity"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/events"
	apphttp "github.com/Ruben-boon/CPM-crm-system-sub001/internal/http"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/logger"
)

// Options wires the subscribers. Redis and Enqueuer are optional.
type Options struct {
	// Origin identifies this API instance.
	Origin   string
	Cache    Evictor
	Registry *entity.Registry
	Enqueuer RefreshEnqueuer
	Redis    redis.UniversalClient
}

// Module owns the SSE hub and the change subscribers.
type Module struct {
	hub   *Hub
	cache *CacheInvalidator
	relay *Relay
	opts  Options
	log   *logger.Logger
}

func NewModule(opts Options, log *logger.Logger) *Module {
	if log == nil {
		log = logger.Discard()
	}
	m := &Module{hub: NewHub(log), opts: opts, log: log}
	if opts.Cache != nil && opts.Registry != nil {
		m.cache = NewCacheInvalidator(opts.Cache, opts.Registry, opts.Enqueuer, opts.Origin, log)
	}
	return m
}

func (m *Module) Name() string {
	return "events"
}

func (m *Module) Hub() *Hub {
	return m.hub
}

// RegisterHandlers subscribes the hub, the cache invalidator and the relay.
func (m *Module) RegisterHandlers(bus events.Bus) {
	name := events.DocumentChanged{}.EventName()
	bus.Subscribe(name, m.hub)
	if m.cache != nil {
		bus.Subscribe(name, m.cache)
	}
	if m.opts.Redis != nil {
		m.relay = NewRelay(m.opts.Redis, bus, m.opts.Origin, m.log)
		bus.Subscribe(name, m.relay)
	}
}

// Run receives changes from other instances until ctx is done. It returns
// immediately without Redis.
func (m *Module) Run(ctx context.Context) {
	if m.relay == nil {
		return
	}
	if err := m.relay.Run(ctx); err != nil {
		m.log.Error("document change relay stopped", "error", err)
	}
}

// Close disconnects the SSE clients.
func (m *Module) Close() {
	m.hub.Close()
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/events", m.hub.Handler())
}

var _ apphttp.Module = (*Module)(nil)
