package crud

import "context"

// Operation names a mutation.
type Operation string

const (
	OpCreated Operation = "created"
	OpUpdated Operation = "updated"
	OpDeleted Operation = "deleted"
)

// Change describes one successful mutation.
type Change struct {
	Collection string
	DocumentID string
	Operation  Operation
}

// Invalidator is told about every successful mutation so that cached views
// of the collection can be dropped. It must not block.
type Invalidator interface {
	Invalidate(ctx context.Context, change Change)
}

// InvalidatorFunc adapts a function to Invalidator.
type InvalidatorFunc func(ctx context.Context, change Change)

func (f InvalidatorFunc) Invalidate(ctx context.Context, change Change) { f(ctx, change) }

// NopInvalidator ignores every change.
type NopInvalidator struct{}

func (NopInvalidator) Invalidate(context.Context, Change) {}
