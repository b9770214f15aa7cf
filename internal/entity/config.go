// Package entity holds the declarative entity configurations that drive the
// generic mapper, search and CRUD layer.
package entity

import (
	"slices"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/formfield"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/query"
)

// NormalizeE164 marks a field whose value is normalized to E.164 before
// persistence.
const NormalizeE164 = "e164"

// DefaultSearchLimit caps search results when neither the entity nor the
// caller sets a limit.
const DefaultSearchLimit = 10

// FieldConfig declares one form field of an entity.
type FieldConfig struct {
	ID             string              `yaml:"id" json:"id" validate:"required,fieldpath"`
	Label          string              `yaml:"label" json:"label" validate:"required"`
	Type           formfield.FieldType `yaml:"type" json:"type"`
	Required       bool                `yaml:"required" json:"required,omitempty"`
	DropdownFields []string            `yaml:"dropdownFields" json:"dropdownFields,omitempty"`
	Normalize      string              `yaml:"normalize" json:"normalize,omitempty" validate:"omitempty,oneof=e164"`
}

// RelationField resolves a reference field against another collection.
type RelationField struct {
	Field        string `yaml:"field" json:"field" validate:"required,fieldpath"`
	Collection   string `yaml:"collection" json:"collection" validate:"required,collection"`
	DisplayField string `yaml:"displayField" json:"displayField" validate:"required,fieldpath"`
}

// Config describes one entity kind: its form layout, its search behavior and
// its relations to other collections.
type Config struct {
	Name               string                  `yaml:"name" json:"name" validate:"required,collection"`
	DisplayName        string                  `yaml:"displayName" json:"displayName" validate:"required"`
	Fields             []FieldConfig           `yaml:"fields" json:"fields" validate:"required,min=1,dive"`
	SearchFields       []query.SearchableField `yaml:"searchFields" json:"searchFields,omitempty"`
	DefaultSearchField string                  `yaml:"defaultSearchField" json:"defaultSearchField,omitempty"`
	DefaultGroup       string                  `yaml:"defaultGroup" json:"defaultGroup,omitempty" validate:"omitempty,fieldpath,excludesall=."`
	RelationFields     []RelationField         `yaml:"relationFields" json:"relationFields,omitempty" validate:"dive"`
	ListFields         []string                `yaml:"listFields" json:"listFields,omitempty" validate:"dive,fieldpath"`
	SearchLimit        int                     `yaml:"searchLimit" json:"searchLimit,omitempty" validate:"gte=0,lte=100"`
}

// Layout returns the form template of the entity, led by the hidden objectId
// field that carries the identifier of the record being edited.
func (c Config) Layout() []formfield.FormField {
	out := make([]formfield.FormField, 0, len(c.Fields)+1)
	out = append(out, formfield.FormField{ID: formfield.ObjectIDField, Type: formfield.TypeHidden})
	for _, f := range c.Fields {
		out = append(out, formfield.FormField{
			ID:             f.ID,
			Label:          f.Label,
			Type:           f.Type,
			Required:       f.Required,
			DropdownFields: slices.Clone(f.DropdownFields),
		})
	}
	return out
}

// SearchConfig returns the part of c the query builder needs.
func (c Config) SearchConfig() query.Config {
	return query.Config{
		SearchFields:       c.SearchFields,
		DefaultSearchField: c.DefaultSearchField,
		DefaultGroup:       c.DefaultGroup,
		KnownPaths:         c.FieldPaths(),
	}
}

// FieldPaths returns the declared field ids in order.
func (c Config) FieldPaths() []string {
	paths := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		paths[i] = f.ID
	}
	return paths
}

// HasDeclaredSearchFields reports whether search fields are configured.
// Entities without them fall back to introspection of a sample document.
func (c Config) HasDeclaredSearchFields() bool {
	return len(c.SearchFields) > 0
}

// DeclaredSearchPaths returns the storage paths of the declared search fields.
func (c Config) DeclaredSearchPaths() []string {
	out := make([]string, len(c.SearchFields))
	for i, f := range c.SearchFields {
		out[i] = f.StoragePath()
	}
	return out
}

// Field returns the field declared with id.
func (c Config) Field(id string) (FieldConfig, bool) {
	for _, f := range c.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return FieldConfig{}, false
}

// Relation returns the relation declared for field.
func (c Config) Relation(field string) (RelationField, bool) {
	for _, r := range c.RelationFields {
		if r.Field == field {
			return r, true
		}
	}
	return RelationField{}, false
}

// Limit returns the effective result cap: requested when positive, otherwise
// the entity's own limit, otherwise fallback.
func (c Config) Limit(requested, fallback int) int {
	switch {
	case requested > 0:
		return requested
	case c.SearchLimit > 0:
		return c.SearchLimit
	case fallback > 0:
		return fallback
	default:
		return DefaultSearchLimit
	}
}
