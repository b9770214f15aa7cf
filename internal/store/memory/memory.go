// Package memory is an in-process Store used by tests, the CLI's dry runs and
// DOCUMENT_STORE=memory development setups.
package memory

import (
	"context"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/document"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/query"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/store"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/apperr"
)

// Store keeps documents per collection in insertion order. New identifiers
// are ObjectID hex strings; lookups accept any string.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]document.Document
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{collections: make(map[string][]document.Document)}
}

func (s *Store) InsertOne(_ context.Context, collection string, doc document.Document) (string, error) {
	id := primitive.NewObjectID().Hex()
	stored := append(document.Document{{Key: document.IDField, Value: id}}, doc.Without(document.IDField).Clone()...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = append(s.collections[collection], stored)
	return id, nil
}

func (s *Store) FindByID(_ context.Context, collection, id string) (document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(collection, id); i >= 0 {
		return s.collections[collection][i].Clone(), nil
	}
	return nil, apperr.NotFound("document not found").WithDetails(map[string]string{"collection": collection, "id": id})
}

// UpdateByID merges set into the stored document. It reports the match but,
// like a plain update command, does not return the updated record.
func (s *Store) UpdateByID(_ context.Context, collection, id string, set []document.Field) (store.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(collection, id)
	if i < 0 {
		return store.UpdateResult{}, nil
	}
	docs := s.collections[collection]
	docs[i] = document.ApplySet(docs[i], cloneFields(set))
	return store.UpdateResult{Matched: true}, nil
}

func (s *Store) DeleteByID(_ context.Context, collection, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(collection, id)
	if i < 0 {
		return 0, nil
	}
	docs := s.collections[collection]
	s.collections[collection] = append(docs[:i:i], docs[i+1:]...)
	return 1, nil
}

func (s *Store) Find(_ context.Context, collection string, filter query.Filter, opts store.FindOptions) ([]document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []document.Document{}
	for _, d := range s.collections[collection] {
		if !Matches(d, filter) {
			continue
		}
		out = append(out, document.Project(d, opts.Projection).Clone())
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) Count(_ context.Context, collection string, filter query.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, d := range s.collections[collection] {
		if Matches(d, filter) {
			n++
		}
	}
	return n, nil
}

func (s *Store) Ping(context.Context) error { return nil }

// Len returns the number of documents in collection.
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func (s *Store) indexOf(collection, id string) int {
	for i, d := range s.collections[collection] {
		if d.ID() == id {
			return i
		}
	}
	return -1
}

// Matches reports whether doc satisfies every clause of filter. A clause
// matches a string value, or any string element of an array value, that
// contains the pattern.
func Matches(doc document.Document, filter query.Filter) bool {
	for path, m := range filter {
		v, ok := document.GetNestedValue(doc, path)
		if !ok || !matchValue(v, m) {
			return false
		}
	}
	return true
}

func matchValue(v any, m query.Match) bool {
	switch x := v.(type) {
	case string:
		if m.CaseInsensitive {
			return strings.Contains(strings.ToLower(x), strings.ToLower(m.Pattern))
		}
		return strings.Contains(x, m.Pattern)
	case []any:
		for _, item := range x {
			if str, ok := item.(string); ok && matchValue(str, m) {
				return true
			}
		}
	}
	return false
}

func cloneFields(set []document.Field) []document.Field {
	out := make([]document.Field, len(set))
	for i, f := range set {
		out[i] = document.Field{Key: f.Key, Value: document.CloneValue(f.Value)}
	}
	return out
}
