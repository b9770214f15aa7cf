package formfield

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/document"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/apperr"
)

var contactLayout = []FormField{
	{ID: ObjectIDField, Type: TypeHidden},
	{ID: "general.firstName", Label: "First name", Type: TypeText, Required: true},
	{ID: "general.birthday", Label: "Birthday", Type: TypeDate},
	{ID: "rate", Label: "Rate", Type: TypeNumber},
	{ID: "tags", Label: "Tags", Type: TypeReferenceArray},
	{ID: "status", Label: "Status", Type: TypeDropdown, DropdownFields: []string{"open", "closed"}},
}

func TestToDocumentNestsDottedIDs(t *testing.T) {
	doc, err := ToDocument([]FormField{
		{ID: "general.firstName", Value: "Bo"},
		{ID: "general.lastName", Value: "Lee"},
		{ID: "currency", Value: "EUR"},
	}, OmitEmpty)
	require.NoError(t, err)

	assert.Equal(t, document.Document{
		{Key: "general", Value: document.Document{
			{Key: "firstName", Value: "Bo"},
			{Key: "lastName", Value: "Lee"},
		}},
		{Key: "currency", Value: "EUR"},
	}, doc)
}

func TestToDocumentCoercesTypes(t *testing.T) {
	doc, err := ToDocument([]FormField{
		{ID: "general.birthday", Type: TypeDate, Value: "1990-05-01"},
		{ID: "checkIn", Type: TypeDate, Value: "2024-03-01T10:00:00Z"},
		{ID: "rate", Type: TypeNumber, Value: "12.5"},
		{ID: "hotels", Type: TypeReferenceArray, Value: "a, b,,c"},
		{ID: "phone", Type: TypeTel, Value: "+31 6 1234"},
	}, OmitEmpty)
	require.NoError(t, err)

	v, _ := document.GetNestedValue(doc, "general.birthday")
	assert.Equal(t, time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC), v)
	v, _ = doc.Lookup("checkIn")
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), v)
	v, _ = doc.Lookup("rate")
	assert.Equal(t, 12.5, v)
	v, _ = doc.Lookup("hotels")
	assert.Equal(t, []any{"a", "b", "c"}, v)
	v, _ = doc.Lookup("phone")
	assert.Equal(t, "+31 6 1234", v)
}

func TestToDocumentEmptyPolicy(t *testing.T) {
	fields := []FormField{
		{ID: "general.firstName", Value: "Bo"},
		{ID: "general.lastName", Value: ""},
		{ID: "rate", Type: TypeNumber, Value: ""},
		{ID: "since", Type: TypeDate, Value: ""},
		{ID: "hotels", Type: TypeReferenceArray, Value: ""},
	}

	omitted, err := ToDocument(fields, OmitEmpty)
	require.NoError(t, err)
	assert.Equal(t, []string{"general"}, omitted.Keys())
	_, ok := document.GetNestedValue(omitted, "general.lastName")
	assert.False(t, ok)

	written, err := ToDocument(fields, WriteEmpty)
	require.NoError(t, err)
	v, ok := document.GetNestedValue(written, "general.lastName")
	require.True(t, ok)
	assert.Equal(t, "", v)
	v, ok = written.Lookup("rate")
	require.True(t, ok)
	assert.Nil(t, v)
	v, ok = written.Lookup("since")
	require.True(t, ok)
	assert.Nil(t, v)
	v, _ = written.Lookup("hotels")
	assert.Equal(t, []any{}, v)
}

func TestToDocumentSkipsIdentifiers(t *testing.T) {
	doc, err := ToDocument([]FormField{
		{ID: ObjectIDField, Value: "65f000000000000000000001"},
		{ID: "_id", Value: "x"},
		{ID: "name", Value: "Hotel"},
	}, WriteEmpty)
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, doc.Keys())
}

func TestToDocumentRejectsDeepAndInvalid(t *testing.T) {
	_, err := ToDocument([]FormField{
		{ID: "a.b.c", Value: "x"},
		{ID: "rate", Type: TypeNumber, Value: "ten"},
		{ID: "since", Type: TypeDate, Value: "yesterday"},
		{ID: "ok", Value: "fine"},
	}, OmitEmpty)
	require.Error(t, err)

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	details, ok := appErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Len(t, details, 3)
	assert.Contains(t, details, "a.b.c")
	assert.Contains(t, details, "rate")
	assert.Contains(t, details, "since")
}

func TestFromDocumentRendersForDisplay(t *testing.T) {
	doc := document.Document{
		{Key: "_id", Value: "65f000000000000000000001"},
		{Key: "general", Value: document.Document{
			{Key: "firstName", Value: "Ann"},
			{Key: "birthday", Value: "1990-05-01T00:00:00.000Z"},
		}},
		{Key: "rate", Value: 12.0},
		{Key: "tags", Value: []any{"a", "b"}},
		{Key: "unlisted", Value: "ignored"},
	}

	fields := FromDocument(doc, contactLayout)
	values := Values(fields)

	assert.Equal(t, "65f000000000000000000001", values[ObjectIDField])
	assert.Equal(t, "Ann", values["general.firstName"])
	assert.Equal(t, "1990-05-01", values["general.birthday"])
	assert.Equal(t, "12", values["rate"])
	assert.Equal(t, "a,b", values["tags"])
	assert.Equal(t, "", values["status"])
	assert.Len(t, fields, len(contactLayout))

	f, ok := Find(fields, "status")
	require.True(t, ok)
	assert.Equal(t, []string{"open", "closed"}, f.DropdownFields)
}

func TestRoundTripOnLayoutFields(t *testing.T) {
	original := document.Document{
		{Key: "general", Value: document.Document{
			{Key: "firstName", Value: "Ann"},
			{Key: "birthday", Value: time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)},
			{Key: "nickname", Value: "not in layout"},
		}},
		{Key: "rate", Value: 12.5},
		{Key: "tags", Value: []any{"a", "b"}},
		{Key: "status", Value: "open"},
		{Key: "extra", Value: "not in layout"},
	}

	back, err := ToDocument(FromDocument(original, contactLayout), OmitEmpty)
	require.NoError(t, err)

	for _, f := range contactLayout {
		if f.ID == ObjectIDField {
			continue
		}
		want, ok := document.GetNestedValue(original, f.ID)
		require.True(t, ok, f.ID)
		got, ok := document.GetNestedValue(back, f.ID)
		require.True(t, ok, f.ID)
		assert.Equal(t, want, got, f.ID)
	}
	_, ok := back.Lookup("extra")
	assert.False(t, ok)
	_, ok = document.GetNestedValue(back, "general.nickname")
	assert.False(t, ok)
}

func TestBlankClearsValues(t *testing.T) {
	layout := []FormField{{ID: "name", Value: "stale", PopulatedData: &Populated{One: &Option{Label: "x", Value: "y"}}}}
	blank := Blank(layout)
	assert.Equal(t, "", blank[0].Value)
	assert.Nil(t, blank[0].PopulatedData)
	assert.Equal(t, "stale", layout[0].Value)
}

func TestPopulatedJSON(t *testing.T) {
	var one Populated
	require.NoError(t, json.Unmarshal([]byte(`{"label":"Acme","value":"c1"}`), &one))
	require.NotNil(t, one.One)
	assert.Equal(t, "Acme", one.One.Label)

	var many Populated
	require.NoError(t, json.Unmarshal([]byte(`[{"label":"A","value":"1"},{"label":"B","value":"2"}]`), &many))
	assert.Nil(t, many.One)
	assert.Len(t, many.Many, 2)

	out, err := json.Marshal(FormField{ID: "companyId", Value: "c1", PopulatedData: &one})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"companyId","value":"c1","populatedData":{"label":"Acme","value":"c1"}}`, string(out))
}

func TestIsKnownType(t *testing.T) {
	assert.True(t, IsKnownType(""))
	assert.True(t, IsKnownType(TypeReferenceArray))
	assert.False(t, IsKnownType("checkbox"))
}
