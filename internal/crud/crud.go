// Package crud is the generic, collection-addressed CRUD orchestrator. It
// timestamps writes, re-reads what it wrote, serializes results for transport
// and signals invalidation after every successful mutation.
package crud

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/document"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/query"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/store"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/apperr"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/logger"
)

// DefaultLimit caps search results when the caller passes no limit.
const DefaultLimit = 10

// SearchOptions shapes a Search call.
type SearchOptions struct {
	Projection []string
	Limit      int
}

// SearchResult is one page of serialized matches plus the total match count.
type SearchResult struct {
	Total   int64
	Results []document.Document
}

// Service is stateless apart from its collaborators and safe for concurrent use.
type Service struct {
	store        store.Store
	inv          Invalidator
	log          *logger.Logger
	now          func() time.Time
	defaultLimit int
}

// New creates a Service. A nil invalidator or logger disables that concern.
func New(st store.Store, inv Invalidator, log *logger.Logger) *Service {
	if inv == nil {
		inv = NopInvalidator{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{store: st, inv: inv, log: log, now: time.Now, defaultLimit: DefaultLimit}
}

// WithClock replaces the time source used for timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithDefaultLimit replaces the search cap used when callers pass none.
func (s *Service) WithDefaultLimit(limit int) *Service {
	if limit > 0 {
		s.defaultLimit = limit
	}
	return s
}

// Create stores doc with fresh createdAt/updatedAt stamps and returns the
// stored record as read back from the store. A client-supplied _id is
// dropped; the store assigns identifiers.
func (s *Service) Create(ctx context.Context, collection string, doc document.Document) (document.Document, error) {
	now := s.timestamp()
	toInsert := doc.Without(document.IDField, document.CreatedAtField, document.UpdatedAtField)
	toInsert = append(toInsert,
		document.Field{Key: document.CreatedAtField, Value: now},
		document.Field{Key: document.UpdatedAtField, Value: now},
	)

	id, err := s.store.InsertOne(ctx, collection, toInsert)
	if err != nil {
		s.log.DocumentOp("create", collection, "", err)
		return nil, apperr.Ensure(err)
	}
	s.inv.Invalidate(ctx, Change{Collection: collection, DocumentID: id, Operation: OpCreated})

	stored, err := s.store.FindByID(ctx, collection, id)
	if err != nil {
		s.log.DocumentOp("create", collection, id, err)
		return nil, uncertain("create", collection, id, err)
	}

	out, err := document.Serialize(stored)
	s.log.DocumentOp("create", collection, id, err)
	return out, err
}

// Get returns one serialized document.
func (s *Service) Get(ctx context.Context, collection, id string) (document.Document, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.MissingIdentifier().WithOp("crud.Get")
	}
	doc, err := s.store.FindByID(ctx, collection, id)
	if err != nil {
		return nil, apperr.Ensure(err)
	}
	return document.Serialize(doc)
}

// Update merges doc into the stored record as dotted-path assignments, so
// keys doc does not mention are left untouched, and stamps updatedAt.
// Identifier and createdAt in doc are ignored.
func (s *Service) Update(ctx context.Context, collection, id string, doc document.Document) (document.Document, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.MissingIdentifier().WithOp("crud.Update")
	}

	set := document.Flatten(doc.Without(document.IDField, document.CreatedAtField, document.UpdatedAtField))
	set = append(set, document.Field{Key: document.UpdatedAtField, Value: s.timestamp()})

	res, err := s.store.UpdateByID(ctx, collection, id, set)
	if err != nil {
		s.log.DocumentOp("update", collection, id, err)
		return nil, apperr.Ensure(err)
	}
	if !res.Matched {
		err := notFound("crud.Update", collection, id)
		s.log.DocumentOp("update", collection, id, err)
		return nil, err
	}
	s.inv.Invalidate(ctx, Change{Collection: collection, DocumentID: id, Operation: OpUpdated})

	updated := res.Document
	if updated == nil {
		updated, err = s.store.FindByID(ctx, collection, id)
		if apperr.Is(err, apperr.KindNotFound) {
			err = notFound("crud.Update", collection, id)
			s.log.DocumentOp("update", collection, id, err)
			return nil, err
		}
		if err != nil {
			s.log.DocumentOp("update", collection, id, err)
			return nil, uncertain("update", collection, id, err)
		}
	}

	out, err := document.Serialize(updated)
	s.log.DocumentOp("update", collection, id, err)
	return out, err
}

// Delete removes one document. Deleting nothing is a NotFound error.
func (s *Service) Delete(ctx context.Context, collection, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.MissingIdentifier().WithOp("crud.Delete")
	}

	n, err := s.store.DeleteByID(ctx, collection, id)
	if err == nil && n == 0 {
		err = notFound("crud.Delete", collection, id)
	}
	s.log.DocumentOp("delete", collection, id, err)
	if err != nil {
		return apperr.Ensure(err)
	}

	s.inv.Invalidate(ctx, Change{Collection: collection, DocumentID: id, Operation: OpDeleted})
	return nil
}

// Search returns up to the limit of serialized documents matching filter and
// the total number of matches. The page and the count are fetched
// concurrently.
func (s *Service) Search(ctx context.Context, collection string, filter query.Filter, opts SearchOptions) (SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}

	var (
		docs  []document.Document
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		docs, err = s.store.Find(gctx, collection, filter, store.FindOptions{Projection: opts.Projection, Limit: limit})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.Count(gctx, collection, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return SearchResult{}, apperr.Ensure(err)
	}

	results, err := document.SerializeAll(docs)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{Total: total, Results: results}, nil
}

// Sample returns the first stored document of collection, unserialized, for
// searchable-field introspection. ok is false for an empty collection.
func (s *Service) Sample(ctx context.Context, collection string) (doc document.Document, ok bool, err error) {
	docs, err := s.store.Find(ctx, collection, query.MatchAll(), store.FindOptions{Limit: 1})
	if err != nil {
		return nil, false, apperr.Ensure(err)
	}
	if len(docs) == 0 {
		return nil, false, nil
	}
	return docs[0], true, nil
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func notFound(op, collection, id string) error {
	return apperr.NotFound("document not found").
		WithOp(op).
		WithDetails(map[string]string{"collection": collection, "id": id})
}

// uncertain marks a failure after an acknowledged write: the data may have
// persisted, the caller should verify by fetching it again.
func uncertain(op, collection, id string, err error) error {
	return apperr.Wrap(apperr.KindUnknown, apperr.CodeUnknown, op+" succeeded but the result could not be read back: "+err.Error(), err).
		WithOp("crud." + op).
		WithDetails(map[string]any{"collection": collection, "id": id, "uncertainOutcome": true})
}
