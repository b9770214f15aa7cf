// Package store defines the document store contract the CRUD orchestrator
// runs against. Backends live in sub-packages: memory, mongostore, pgstore.
package store

import (
	"context"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/document"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/query"
)

// FindOptions shapes a Find call.
type FindOptions struct {
	// Projection keeps only these paths (plus _id). Empty keeps everything.
	Projection []string
	// Limit caps the number of returned documents. Zero means no cap.
	Limit int
}

// UpdateResult reports the outcome of an UpdateByID call.
type UpdateResult struct {
	// Matched is false when no document carries the identifier.
	Matched bool
	// Document is the post-update record when the backend returns it. Nil
	// means the caller has to re-read.
	Document document.Document
}

// Store is a collection-addressed document store. Identifiers are passed and
// returned in their string form. A string that is not a valid identifier for
// the backend names no document: FindByID reports NotFound, UpdateByID an
// unmatched result and DeleteByID zero. A write the backend did not
// acknowledge fails with an Unacknowledged error.
type Store interface {
	// InsertOne stores doc and returns the assigned identifier.
	InsertOne(ctx context.Context, collection string, doc document.Document) (string, error)
	// FindByID returns the document or a NotFound error.
	FindByID(ctx context.Context, collection, id string) (document.Document, error)
	// UpdateByID applies dotted-path assignments to one document.
	UpdateByID(ctx context.Context, collection, id string, set []document.Field) (UpdateResult, error)
	// DeleteByID removes one document and returns how many were removed.
	DeleteByID(ctx context.Context, collection, id string) (int64, error)
	// Find returns documents matching filter in insertion order.
	Find(ctx context.Context, collection string, filter query.Filter, opts FindOptions) ([]document.Document, error)
	// Count returns the number of documents matching filter.
	Count(ctx context.Context, collection string, filter query.Filter) (int64, error)
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}
