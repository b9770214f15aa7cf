// Package mongostore implements store.Store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/document"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/query"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/store"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/apperr"
)

// Store reads and writes one MongoDB database. Each entity collection maps to
// the MongoDB collection of the same name.
type Store struct {
	db *mongo.Database
}

var _ store.Store = (*Store)(nil)

// New wraps db.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) InsertOne(ctx context.Context, collection string, doc document.Document) (string, error) {
	res, err := s.db.Collection(collection).InsertOne(ctx, ToBSON(doc.Without(document.IDField)))
	if err != nil {
		return "", mapError("insert", err)
	}
	switch id := res.InsertedID.(type) {
	case primitive.ObjectID:
		return id.Hex(), nil
	case string:
		return id, nil
	default:
		return "", apperr.Internal("unexpected inserted id type").WithOp("mongostore.InsertOne")
	}
}

func (s *Store) FindByID(ctx context.Context, collection, id string) (document.Document, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, mapError("find", mongo.ErrNoDocuments)
	}
	var raw bson.D
	if err := s.db.Collection(collection).FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&raw); err != nil {
		return nil, mapError("find", err)
	}
	return FromBSON(raw), nil
}

// UpdateByID issues a findOneAndUpdate with $set and returns the post-update
// document, so callers never need a second round trip.
func (s *Store) UpdateByID(ctx context.Context, collection, id string, set []document.Field) (store.UpdateResult, error) {
	oid, err := ParseID(id)
	if err != nil {
		return store.UpdateResult{}, nil
	}

	update := bson.D{{Key: "$set", Value: setToBSON(set)}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var raw bson.D
	err = s.db.Collection(collection).FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, update, opts).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.UpdateResult{}, nil
	}
	if err != nil {
		return store.UpdateResult{}, mapError("update", err)
	}
	return store.UpdateResult{Matched: true, Document: FromBSON(raw)}, nil
}

func (s *Store) DeleteByID(ctx context.Context, collection, id string) (int64, error) {
	oid, err := ParseID(id)
	if err != nil {
		return 0, nil
	}
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return 0, mapError("delete", err)
	}
	return res.DeletedCount, nil
}

func (s *Store) Find(ctx context.Context, collection string, filter query.Filter, opts store.FindOptions) ([]document.Document, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if len(opts.Projection) > 0 {
		findOpts.SetProjection(ProjectionToBSON(opts.Projection))
	}

	cur, err := s.db.Collection(collection).Find(ctx, FilterToBSON(filter), findOpts)
	if err != nil {
		return nil, mapError("find", err)
	}
	var raws []bson.D
	if err := cur.All(ctx, &raws); err != nil {
		return nil, mapError("find", err)
	}

	out := make([]document.Document, len(raws))
	for i, raw := range raws {
		out[i] = FromBSON(raw)
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, collection string, filter query.Filter) (int64, error) {
	n, err := s.db.Collection(collection).CountDocuments(ctx, FilterToBSON(filter))
	if err != nil {
		return 0, mapError("count", err)
	}
	return n, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

// ParseID converts a hex string into an ObjectID. The by-id methods treat a
// string it rejects as an id no document can have.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.InvalidIdentifier(id)
	}
	return oid, nil
}

// FilterToBSON turns a query filter into regex clauses. The pattern is quoted
// so every character is matched literally.
func FilterToBSON(filter query.Filter) bson.D {
	out := bson.D{}
	for _, path := range filter.Paths() {
		m := filter[path]
		opts := ""
		if m.CaseInsensitive {
			opts = "i"
		}
		out = append(out, bson.E{Key: path, Value: primitive.Regex{Pattern: regexp.QuoteMeta(m.Pattern), Options: opts}})
	}
	return out
}

// ProjectionToBSON includes each path.
func ProjectionToBSON(paths []string) bson.D {
	out := make(bson.D, 0, len(paths))
	for _, p := range paths {
		out = append(out, bson.E{Key: p, Value: 1})
	}
	return out
}

func setToBSON(set []document.Field) bson.D {
	out := make(bson.D, 0, len(set))
	for _, f := range set {
		out = append(out, bson.E{Key: f.Key, Value: toBSONValue(f.Value)})
	}
	return out
}

// ToBSON converts a document into an ordered BSON document.
func ToBSON(doc document.Document) bson.D {
	out := make(bson.D, 0, len(doc))
	for _, f := range doc {
		out = append(out, bson.E{Key: f.Key, Value: toBSONValue(f.Value)})
	}
	return out
}

func toBSONValue(v any) any {
	switch x := v.(type) {
	case document.Document:
		return ToBSON(x)
	case []any:
		out := make(bson.A, len(x))
		for i := range x {
			out[i] = toBSONValue(x[i])
		}
		return out
	default:
		return v
	}
}

// FromBSON converts a decoded BSON document back into a Document. Driver
// types such as ObjectID and DateTime are kept for the serializer.
func FromBSON(raw bson.D) document.Document {
	out := make(document.Document, 0, len(raw))
	for _, e := range raw {
		out = append(out, document.Field{Key: e.Key, Value: fromBSONValue(e.Value)})
	}
	return out
}

func fromBSONValue(v any) any {
	switch x := v.(type) {
	case bson.D:
		return FromBSON(x)
	case bson.M:
		return document.FromMap(map[string]any(x))
	case bson.A:
		out := make([]any, len(x))
		for i := range x {
			out[i] = fromBSONValue(x[i])
		}
		return out
	default:
		return v
	}
}

func mapError(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.NotFound("document not found").WithOp("mongostore." + op)
	case errors.Is(err, mongo.ErrUnacknowledgedWrite):
		return apperr.Unacknowledged("write was not acknowledged").WithOp("mongostore." + op)
	default:
		return apperr.Unknown(err).WithOp("mongostore." + op)
	}
}
