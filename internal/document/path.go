package document

import "strings"

// GetNestedValue walks doc along the dot separated path. The second result is
// false as soon as a segment is missing or an intermediate is not a document.
func GetNestedValue(doc Document, path string) (any, bool) {
	var cur any = doc
	for _, seg := range strings.Split(path, ".") {
		d, ok := asDocument(cur)
		if !ok {
			return nil, false
		}
		v, ok := d.Lookup(seg)
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// SetFieldValue returns a copy of doc with value stored at path. Missing
// intermediates are created; an intermediate holding a non-document value is
// replaced by a new document. doc itself is never modified.
func SetFieldValue(doc Document, path string, value any) Document {
	return setPath(doc, strings.Split(path, "."), value)
}

func setPath(d Document, segs []string, value any) Document {
	out := make(Document, len(d), len(d)+1)
	copy(out, d)

	if len(segs) == 1 {
		out.Put(segs[0], value)
		return out
	}

	existing, _ := out.Lookup(segs[0])
	child, ok := asDocument(existing)
	if !ok {
		child = Document{}
	}
	out.Put(segs[0], setPath(child, segs[1:], value))
	return out
}

// Flatten turns nested documents into dotted paths, the shape of a partial
// `$set` update. Arrays and empty documents are leaves.
func Flatten(doc Document) []Field {
	var out []Field
	flattenInto(&out, "", doc)
	return out
}

func flattenInto(out *[]Field, prefix string, doc Document) {
	for _, f := range doc {
		key := prefix + f.Key
		if nested, ok := f.Value.(Document); ok && len(nested) > 0 {
			flattenInto(out, key+".", nested)
			continue
		}
		*out = append(*out, Field{Key: key, Value: f.Value})
	}
}

// ApplySet merges dotted assignments into doc. Keys that are not assigned
// keep their values.
func ApplySet(doc Document, set []Field) Document {
	out := doc
	for _, f := range set {
		out = SetFieldValue(out, f.Key, f.Value)
	}
	return out
}

// Project keeps only the given paths (plus _id), in document order. An empty
// path list keeps everything.
func Project(doc Document, paths []string) Document {
	if len(paths) == 0 {
		return doc
	}
	out := Document{}
	for _, f := range doc {
		if f.Key == IDField {
			out = append(out, f)
			continue
		}
		var sub []string
		whole := false
		for _, p := range paths {
			if p == f.Key {
				whole = true
				break
			}
			if rest, ok := strings.CutPrefix(p, f.Key+"."); ok {
				sub = append(sub, rest)
			}
		}
		switch {
		case whole:
			out = append(out, f)
		case len(sub) > 0:
			if nested, ok := f.Value.(Document); ok {
				if projected := Project(nested, sub).Without(IDField); len(projected) > 0 {
					out = append(out, Field{Key: f.Key, Value: projected})
				}
			}
		}
	}
	return out
}
