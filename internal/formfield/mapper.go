package formfield

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/document"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/apperr"
)

// DateLayout is the display and input form of date fields.
const DateLayout = "2006-01-02"

// EmptyPolicy decides what happens to fields whose value is empty.
type EmptyPolicy int

const (
	// OmitEmpty leaves empty fields out of the document. Used on create.
	OmitEmpty EmptyPolicy = iota
	// WriteEmpty writes empty fields as their cleared value (null for dates
	// and numbers, "" for text, an empty list for reference arrays). Used on
	// update so a user can clear a field.
	WriteEmpty
)

// ToDocument builds a nested document from fields. A dotted id writes
// doc[parent][child]; ids nesting deeper than that are rejected. The objectId
// pseudo-field and _id are skipped. All coercion failures are reported
// together in the error details, keyed by field id.
func ToDocument(fields []FormField, policy EmptyPolicy) (document.Document, error) {
	doc := document.Document{}
	problems := map[string]string{}

	for _, f := range fields {
		if f.ID == ObjectIDField || f.ID == document.IDField {
			continue
		}

		segs := strings.Split(f.ID, ".")
		if msg := checkSegments(segs); msg != "" {
			problems[f.ID] = msg
			continue
		}
		if f.Value == "" && policy == OmitEmpty {
			continue
		}

		v, err := coerce(f)
		if err != nil {
			problems[f.ID] = err.Error()
			continue
		}

		if len(segs) == 1 {
			doc.Put(segs[0], v)
			continue
		}
		existing, _ := doc.Lookup(segs[0])
		group, ok := existing.(document.Document)
		if !ok {
			group = document.Document{}
		}
		group.Put(segs[1], v)
		doc.Put(segs[0], group)
	}

	if len(problems) > 0 {
		return nil, apperr.Validation("invalid form fields").
			WithOp("formfield.ToDocument").
			WithDetails(problems)
	}
	return doc, nil
}

func checkSegments(segs []string) string {
	if len(segs) > 2 {
		return "field id nests deeper than parent.child"
	}
	for _, s := range segs {
		if s == "" {
			return "field id has an empty path segment"
		}
	}
	return ""
}

func coerce(f FormField) (any, error) {
	switch f.Type {
	case TypeDate:
		return parseDate(f.Value)
	case TypeNumber:
		if strings.TrimSpace(f.Value) == "" {
			return nil, nil
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(f.Value), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("invalid number %q", f.Value)
		}
		return n, nil
	case TypeReferenceArray:
		return splitIDs(f.Value), nil
	default:
		return f.Value, nil
	}
}

func parseDate(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation(DateLayout, raw, time.UTC); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	return nil, fmt.Errorf("invalid date %q", raw)
}

func splitIDs(raw string) []any {
	out := []any{}
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// FromDocument fills a copy of layout with values read from doc. Values are
// rendered for display: dates as YYYY-MM-DD, numbers in shortest decimal form
// and arrays as comma separated lists. Document keys outside the layout are
// ignored.
func FromDocument(doc document.Document, layout []FormField) []FormField {
	out := make([]FormField, len(layout))
	for i, f := range layout {
		out[i] = f
		out[i].PopulatedData = nil
		if f.ID == ObjectIDField {
			out[i].Value = doc.ID()
			continue
		}
		v, ok := document.GetNestedValue(doc, f.ID)
		if !ok {
			out[i].Value = ""
			continue
		}
		out[i].Value = display(f.Type, v)
	}
	return out
}

// Blank returns layout with every value cleared, the create-mode form.
func Blank(layout []FormField) []FormField {
	out := make([]FormField, len(layout))
	for i, f := range layout {
		out[i] = f
		out[i].Value = ""
		out[i].PopulatedData = nil
	}
	return out
}

func display(t FieldType, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		if t == TypeDate {
			return displayDateString(x)
		}
		return x
	case time.Time:
		if t == TypeDate {
			return x.UTC().Format(DateLayout)
		}
		return document.FormatTimestamp(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			if s := display(TypeText, item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ",")
	case document.Document:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func displayDateString(s string) string {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC().Format(DateLayout)
	}
	return s
}
