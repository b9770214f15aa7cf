package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TimestampLayout is the ISO-8601 form with millisecond precision in UTC.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// MarshalJSON writes the document as a JSON object, keeping key order.
func (d Document) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	if err := writeDocument(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeDocument(buf *bytes.Buffer, d Document) error {
	buf.WriteByte('{')
	for i, f := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := writeValue(buf, f.Value); err != nil {
			return fmt.Errorf("field %q: %w", f.Key, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeValue(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case Document:
		if x == nil {
			buf.WriteString("null")
			return nil
		}
		return writeDocument(buf, x)
	case []any:
		buf.WriteByte('[')
		for i := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, x[i]); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case time.Time:
		return writeJSON(buf, FormatTimestamp(x))
	case primitive.DateTime:
		return writeJSON(buf, FormatTimestamp(x.Time()))
	default:
		return writeJSON(buf, v)
	}
}

func writeJSON(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// UnmarshalJSON reads a JSON object, keeping key order. Numbers decode as
// float64. A repeated key keeps its first position and its last value.
func (d *Document) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	v, err := decodeValue(dec)
	if err != nil {
		return err
	}
	if v == nil {
		*d = nil
		return nil
	}
	doc, ok := v.(Document)
	if !ok {
		return fmt.Errorf("document: expected JSON object, got %T", v)
	}
	*d = doc
	return nil
}

// ParseJSON decodes raw into a Document.
func ParseJSON(raw []byte) (Document, error) {
	var d Document
	if err := d.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return d, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		doc := Document{}
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("document: unexpected object key %v", kt)
			}
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			doc.Put(key, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return doc, nil
	case '[':
		arr := []any{}
		for dec.More() {
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("document: unexpected delimiter %v", delim)
	}
}
