package invalidation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/events"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/logger"
)

// Channel is the Redis pub/sub channel DocumentChanged events travel on.
const Channel = "crm:documents:changed"

// Relay forwards locally originated changes to Redis and republishes the
// changes of other instances on the local bus.
type Relay struct {
	rdb    redis.UniversalClient
	bus    events.Publisher
	origin string
	log    *logger.Logger
}

func NewRelay(rdb redis.UniversalClient, bus events.Publisher, origin string, log *logger.Logger) *Relay {
	if log == nil {
		log = logger.Discard()
	}
	return &Relay{rdb: rdb, bus: bus, origin: origin, log: log}
}

// Handle implements events.Handler for DocumentChanged.
func (r *Relay) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(events.DocumentChanged)
	if !ok || e.Origin != r.origin {
		return nil
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := r.rdb.Publish(ctx, Channel, raw).Err(); err != nil {
		return fmt.Errorf("relay document change: %w", err)
	}
	return nil
}

// Run listens for changes from other instances until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, Channel)
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", Channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var e events.DocumentChanged
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				r.log.Warn("relay message ignored", "error", err)
				continue
			}
			if e.Origin == r.origin {
				continue
			}
			r.bus.Publish(ctx, e)
		}
	}
}
