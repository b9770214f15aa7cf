package mongostore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/document"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/query"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/apperr"
)

func TestParseID(t *testing.T) {
	oid := primitive.NewObjectID()
	got, err := ParseID(oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, oid, got)

	_, err = ParseID("ID-missing")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidIdentifierFormat))
}

func TestMalformedIDNamesNoDocument(t *testing.T) {
	st := New(nil)
	ctx := context.Background()

	_, err := st.FindByID(ctx, "contacts", "ID-missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	res, err := st.UpdateByID(ctx, "contacts", "ID-missing", []document.Field{{Key: "general.lastName", Value: "Lee"}})
	require.NoError(t, err)
	assert.False(t, res.Matched)

	n, err := st.DeleteByID(ctx, "contacts", "ID-missing")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFilterToBSONQuotesPattern(t *testing.T) {
	f := query.Filter{
		"general.email":     {Pattern: "a.b+c", CaseInsensitive: true},
		"general.firstName": {Pattern: "ann", CaseInsensitive: true},
	}
	got := FilterToBSON(f)
	assert.Equal(t, bson.D{
		{Key: "general.email", Value: primitive.Regex{Pattern: `a\.b\+c`, Options: "i"}},
		{Key: "general.firstName", Value: primitive.Regex{Pattern: "ann", Options: "i"}},
	}, got)

	assert.Empty(t, FilterToBSON(query.MatchAll()))
}

func TestBSONRoundTripKeepsOrder(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	doc := document.Document{
		{Key: "general", Value: document.Document{
			{Key: "lastName", Value: "Lee"},
			{Key: "firstName", Value: "Ann"},
		}},
		{Key: "tags", Value: []any{"a", document.Document{{Key: "k", Value: "v"}}}},
		{Key: "createdAt", Value: ts},
	}

	raw := ToBSON(doc)
	assert.Equal(t, "general", raw[0].Key)
	nested, ok := raw[0].Value.(bson.D)
	require.True(t, ok)
	assert.Equal(t, "lastName", nested[0].Key)
	arr, ok := raw[1].Value.(bson.A)
	require.True(t, ok)
	assert.IsType(t, bson.D{}, arr[1])

	assert.Equal(t, doc, FromBSON(raw))
}

func TestBSONMarshalPreservesOrder(t *testing.T) {
	doc := document.Document{{Key: "z", Value: "1"}, {Key: "a", Value: document.Document{{Key: "y", Value: 2.0}}}}
	b, err := bson.Marshal(ToBSON(doc))
	require.NoError(t, err)

	var back bson.D
	require.NoError(t, bson.Unmarshal(b, &back))
	assert.Equal(t, doc, FromBSON(back))
}

func TestProjectionToBSON(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "general.name", Value: 1}, {Key: "currency", Value: 1}},
		ProjectionToBSON([]string{"general.name", "currency"}))
}

func TestMapError(t *testing.T) {
	assert.True(t, apperr.Is(mapError("find", mongo.ErrNoDocuments), apperr.KindNotFound))
	assert.True(t, apperr.HasCode(mapError("insert", mongo.ErrUnacknowledgedWrite), apperr.CodeUnacknowledged))

	err := mapError("find", errors.New("connection reset"))
	assert.True(t, apperr.HasCode(err, apperr.CodeUnknown))
	assert.Contains(t, err.Error(), "connection reset")
}
