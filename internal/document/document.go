// Package document defines the ordered document model shared by the mapper,
// the query layer and every store backend, plus the path resolver, the
// transport serializer and the searchable-field introspector that operate on it.
package document

import (
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Well-known top-level keys.
const (
	IDField        = "_id"
	CreatedAtField = "createdAt"
	UpdatedAtField = "updatedAt"
)

// Field is one key/value pair of a Document.
type Field struct {
	Key   string
	Value any
}

// Document is an ordered record. Nested records are Documents, arrays are
// []any. Key order is insertion order and survives storage and JSON.
type Document []Field

// Lookup returns the value stored under key.
func (d Document) Lookup(key string) (any, bool) {
	if i := d.Index(key); i >= 0 {
		return d[i].Value, true
	}
	return nil, false
}

// Index returns the position of key or -1.
func (d Document) Index(key string) int {
	for i := range d {
		if d[i].Key == key {
			return i
		}
	}
	return -1
}

// Keys returns the top-level keys in order.
func (d Document) Keys() []string {
	keys := make([]string, len(d))
	for i, f := range d {
		keys[i] = f.Key
	}
	return keys
}

// Put replaces the value under key in place, appending the key if absent.
func (d *Document) Put(key string, value any) {
	if i := d.Index(key); i >= 0 {
		(*d)[i].Value = value
		return
	}
	*d = append(*d, Field{Key: key, Value: value})
}

// Without returns a copy of d lacking the given top-level keys.
func (d Document) Without(keys ...string) Document {
	out := make(Document, 0, len(d))
	for _, f := range d {
		drop := false
		for _, k := range keys {
			if f.Key == k {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, f)
		}
	}
	return out
}

// ID returns the string form of the document identifier, or "".
func (d Document) ID() string {
	v, ok := d.Lookup(IDField)
	if !ok {
		return ""
	}
	switch id := v.(type) {
	case string:
		return id
	case primitive.ObjectID:
		return id.Hex()
	default:
		return ""
	}
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for i, f := range d {
		out[i] = Field{Key: f.Key, Value: cloneValue(f.Value)}
	}
	return out
}

// CloneValue deep-copies a document value.
func CloneValue(v any) any { return cloneValue(v) }

func cloneValue(v any) any {
	switch x := v.(type) {
	case Document:
		return x.Clone()
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	case []byte:
		out := make([]byte, len(x))
		copy(out, x)
		return out
	default:
		return v
	}
}

// FromMap converts m into a Document with keys sorted, recursing into nested
// maps and slices. Go maps carry no order, so sorting is the only stable choice.
func FromMap(m map[string]any) Document {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(Document, 0, len(m))
	for _, k := range keys {
		out = append(out, Field{Key: k, Value: normalizeValue(m[k])})
	}
	return out
}

// Map converts d into nested plain maps. Key order is lost.
func (d Document) Map() map[string]any {
	out := make(map[string]any, len(d))
	for _, f := range d {
		out[f.Key] = toPlain(f.Value)
	}
	return out
}

func toPlain(v any) any {
	switch x := v.(type) {
	case Document:
		return x.Map()
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = toPlain(x[i])
		}
		return out
	default:
		return v
	}
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return FromMap(x)
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = normalizeValue(x[i])
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i := range x {
			out[i] = x[i]
		}
		return out
	default:
		return v
	}
}

func asDocument(v any) (Document, bool) {
	switch x := v.(type) {
	case Document:
		return x, true
	case map[string]any:
		return FromMap(x), true
	default:
		return nil, false
	}
}
