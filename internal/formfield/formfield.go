// Package formfield maps flat lists of UI form fields onto nested documents
// and back.
package formfield

import (
	"bytes"
	"encoding/json"
)

// FieldType is the UI input kind of a form field.
type FieldType string

const (
	TypeText           FieldType = "text"
	TypeEmail          FieldType = "email"
	TypeTel            FieldType = "tel"
	TypeNumber         FieldType = "number"
	TypeURL            FieldType = "url"
	TypeDropdown       FieldType = "dropdown"
	TypeDate           FieldType = "date"
	TypeHidden         FieldType = "hidden"
	TypeReference      FieldType = "reference"
	TypeReferenceArray FieldType = "reference-array"
)

var knownTypes = map[FieldType]struct{}{
	TypeText:           {},
	TypeEmail:          {},
	TypeTel:            {},
	TypeNumber:         {},
	TypeURL:            {},
	TypeDropdown:       {},
	TypeDate:           {},
	TypeHidden:         {},
	TypeReference:      {},
	TypeReferenceArray: {},
}

// IsKnownType reports whether t is one of the supported input kinds. The
// empty type is treated as text.
func IsKnownType(t FieldType) bool {
	if t == "" {
		return true
	}
	_, ok := knownTypes[t]
	return ok
}

// ObjectIDField is the pseudo-field that carries the target identifier of an
// update. It is never written into a document.
const ObjectIDField = "objectId"

// Option is a resolved reference: the display label and the referenced id.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Populated holds the resolved display data of a reference field. Exactly one
// of One or Many is set; on the wire it is an object or an array.
type Populated struct {
	One  *Option
	Many []Option
}

func (p Populated) MarshalJSON() ([]byte, error) {
	if p.One != nil {
		return json.Marshal(p.One)
	}
	if p.Many == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.Many)
}

func (p *Populated) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		p.One = nil
		return json.Unmarshal(b, &p.Many)
	}
	var one Option
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	p.One, p.Many = &one, nil
	return nil
}

// FormField is one editable unit of a document. ID is a flat key or a
// parent.child path.
type FormField struct {
	ID             string     `json:"id"`
	Label          string     `json:"label,omitempty"`
	Value          string     `json:"value"`
	Type           FieldType  `json:"type,omitempty"`
	Required       bool       `json:"required,omitempty"`
	DropdownFields []string   `json:"dropdownFields,omitempty"`
	PopulatedData  *Populated `json:"populatedData,omitempty"`
}

// Find returns the field with the given id.
func Find(fields []FormField, id string) (FormField, bool) {
	for _, f := range fields {
		if f.ID == id {
			return f, true
		}
	}
	return FormField{}, false
}

// Values indexes the field values by id.
func Values(fields []FormField) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.ID] = f.Value
	}
	return out
}
