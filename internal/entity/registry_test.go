package entity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/formfield"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/query"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/apperr"
)

func TestLoadRegistryBuiltins(t *testing.T) {
	r, err := LoadRegistry("")
	require.NoError(t, err)

	assert.Equal(t, []string{"bookings", "companies", "contacts", "hotels", "stays"}, r.Names())
	assert.Equal(t, []string{"stays"}, r.Introspected())

	contacts, err := r.Get("contacts")
	require.NoError(t, err)
	assert.Equal(t, "general", contacts.DefaultGroup)

	path, err := query.ResolvePath(contacts.SearchConfig(), "")
	require.NoError(t, err)
	assert.Equal(t, "general.firstName", path)

	phone, ok := contacts.Field("general.phone")
	require.True(t, ok)
	assert.Equal(t, NormalizeE164, phone.Normalize)

	rel, ok := contacts.Relation("companyId")
	require.True(t, ok)
	assert.Equal(t, "companies", rel.Collection)
}

func TestGetUnknownCollection(t *testing.T) {
	r, err := LoadRegistry("")
	require.NoError(t, err)

	_, err = r.Get("invoices")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnknownCollection))
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestLayoutLeadsWithObjectID(t *testing.T) {
	r, err := LoadRegistry("")
	require.NoError(t, err)
	hotels, err := r.Get("hotels")
	require.NoError(t, err)

	layout := hotels.Layout()
	require.Len(t, layout, len(hotels.Fields)+1)
	assert.Equal(t, formfield.ObjectIDField, layout[0].ID)
	assert.Equal(t, formfield.TypeHidden, layout[0].Type)
	assert.Equal(t, "general.name", layout[1].ID)
	assert.True(t, layout[1].Required)
}

func TestLoadRegistryOverridesFromDir(t *testing.T) {
	dir := t.TempDir()
	override := `
name: hotels
displayName: Partner hotels
defaultGroup: general
defaultSearchField: name
fields:
  - id: general.name
    label: Name
    type: text
searchFields:
  - label: Name
    value: name
    path: general.name
`
	extra := `
name: invoices
displayName: Invoices
fields:
  - id: number
    label: Number
  - id: bookingId
    label: Booking
    type: reference
relationFields:
  - field: bookingId
    collection: bookings
    displayField: general.confirmationNo
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hotels.yaml"), []byte(override), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "invoices.yml"), []byte(extra), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o600))

	r, err := LoadRegistry(dir)
	require.NoError(t, err)

	hotels, err := r.Get("hotels")
	require.NoError(t, err)
	assert.Equal(t, "Partner hotels", hotels.DisplayName)
	assert.Len(t, hotels.Fields, 1)

	_, err = r.Get("invoices")
	assert.NoError(t, err)
}

func TestLoadRegistryRejectsUnknownYAMLKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.yaml"), []byte("name: x\ndisplayName: X\nfeilds: []\n"), 0o600))
	_, err := LoadRegistry(dir)
	assert.Error(t, err)
}

func TestNewRegistryValidation(t *testing.T) {
	base := func() Config {
		return Config{
			Name:        "things",
			DisplayName: "Things",
			Fields: []FieldConfig{
				{ID: "general.name", Label: "Name", Type: formfield.TypeText},
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"deep path", func(c *Config) {
			c.Fields = append(c.Fields, FieldConfig{ID: "a.b.c", Label: "Deep"})
		}},
		{"duplicate field", func(c *Config) {
			c.Fields = append(c.Fields, FieldConfig{ID: "general.name", Label: "Again"})
		}},
		{"leaf is also group", func(c *Config) {
			c.Fields = append(c.Fields, FieldConfig{ID: "general", Label: "General"})
		}},
		{"bad path chars", func(c *Config) {
			c.Fields = append(c.Fields, FieldConfig{ID: "general.$name", Label: "X"})
		}},
		{"unknown type", func(c *Config) {
			c.Fields[0].Type = "checkbox"
		}},
		{"e164 on text", func(c *Config) {
			c.Fields[0].Normalize = NormalizeE164
		}},
		{"unresolvable default search", func(c *Config) {
			c.DefaultSearchField = "nothing"
		}},
		{"relation to unknown collection", func(c *Config) {
			c.Fields = append(c.Fields, FieldConfig{ID: "ownerId", Label: "Owner", Type: formfield.TypeReference})
			c.RelationFields = []RelationField{{Field: "ownerId", Collection: "owners", DisplayField: "name"}}
		}},
		{"relation on non-reference", func(c *Config) {
			c.RelationFields = []RelationField{{Field: "general.name", Collection: "things", DisplayField: "name"}}
		}},
		{"bad collection name", func(c *Config) {
			c.Name = "Things!"
		}},
		{"dropdown without options", func(c *Config) {
			c.Fields[0].Type = formfield.TypeDropdown
		}},
	}

	_, err := NewRegistry(base())
	require.NoError(t, err)

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(&c)
			_, err := NewRegistry(c)
			assert.Error(t, err)
		})
	}
}

func TestNewRegistryRejectsDuplicateNames(t *testing.T) {
	c := Config{Name: "things", DisplayName: "Things", Fields: []FieldConfig{{ID: "name", Label: "Name"}}}
	_, err := NewRegistry(c, c)
	assert.Error(t, err)
}

func TestLimit(t *testing.T) {
	c := Config{SearchLimit: 8}
	assert.Equal(t, 3, c.Limit(3, 10))
	assert.Equal(t, 8, c.Limit(0, 10))
	assert.Equal(t, 10, Config{}.Limit(0, 10))
	assert.Equal(t, DefaultSearchLimit, Config{}.Limit(0, 0))
}
