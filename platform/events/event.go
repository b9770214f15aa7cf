// Package events is the in-process publish/subscribe bus that carries
// document change notifications between modules.
package events

import (
	"context"
	"time"
)

// Event is anything published on the bus.
type Event interface {
	// EventName is the subscription key, e.g. "document.changed".
	EventName() string
	// OccurredAt is when the change happened, in UTC.
	OccurredAt() time.Time
}

// BaseEvent carries the occurrence time. Embed it to satisfy OccurredAt; the
// JSON form survives the Redis relay unchanged.
type BaseEvent struct {
	At time.Time `json:"occurredAt"`
}

func (e BaseEvent) OccurredAt() time.Time { return e.At }

// NewBaseEvent stamps an event with the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{At: time.Now().UTC()}
}

// Handler consumes events it subscribed to. A returned error is logged by
// Publish and joined into the result of PublishSync.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a plain function subscribe.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error { return f(ctx, event) }

// Publisher is the side of the bus that mutations and jobs see.
type Publisher interface {
	// Publish hands event to every subscriber in the background and returns
	// at once. Subscribers get a context that outlives ctx's cancellation.
	Publish(ctx context.Context, event Event)
	// PublishSync runs the subscribers on the caller's goroutine in
	// registration order and returns their joined errors.
	PublishSync(ctx context.Context, event Event) error
}

// Subscriber is the side of the bus that composition roots wire.
type Subscriber interface {
	// Subscribe adds handler for events whose EventName equals eventName.
	// Subscribing the same handler twice delivers every event twice.
	Subscribe(eventName string, handler Handler)
}

// Bus is both sides.
type Bus interface {
	Publisher
	Subscriber
}
