package document

import (
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/apperr"
)

// Serialize converts store-native values into transport-safe ones: object
// identifiers become hex strings, binary blobs become UTF-8 text, timestamps
// become ISO-8601 strings and decimals become their string form. It walks
// nested documents and arrays, never mutates doc and is idempotent.
func Serialize(doc Document) (Document, error) {
	if doc == nil {
		return nil, nil
	}
	out := make(Document, len(doc))
	for i, f := range doc {
		v, err := serializeValue(f.Value)
		if err != nil {
			if _, ok := apperr.As(err); ok {
				return nil, err
			}
			return nil, apperr.Serialization("cannot serialize field " + f.Key).
				WithOp("document.Serialize").
				WithDetails(map[string]any{"field": f.Key, "type": reflect.TypeOf(f.Value).String()})
		}
		out[i] = Field{Key: f.Key, Value: v}
	}
	return out, nil
}

// SerializeAll serializes every document of a result set.
func SerializeAll(docs []Document) ([]Document, error) {
	out := make([]Document, len(docs))
	for i, d := range docs {
		s, err := Serialize(d)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

type unsupportedValueError struct{ t reflect.Type }

func (e unsupportedValueError) Error() string { return "unsupported value of type " + e.t.String() }

func serializeValue(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v, nil
	case Document:
		return Serialize(x)
	case map[string]any:
		return Serialize(FromMap(x))
	case []any:
		out := make([]any, len(x))
		for i := range x {
			s, err := serializeValue(x[i])
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	case []string:
		return normalizeValue(x), nil
	case primitive.ObjectID:
		return x.Hex(), nil
	case uuid.UUID:
		return x.String(), nil
	case primitive.Binary:
		return strings.ToValidUTF8(string(x.Data), "�"), nil
	case []byte:
		return strings.ToValidUTF8(string(x), "�"), nil
	case time.Time:
		return FormatTimestamp(x), nil
	case primitive.DateTime:
		return FormatTimestamp(x.Time()), nil
	case primitive.Timestamp:
		return FormatTimestamp(time.Unix(int64(x.T), 0)), nil
	case primitive.Decimal128:
		return x.String(), nil
	case primitive.Null, primitive.Undefined:
		return nil, nil
	}

	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Func, reflect.Chan, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return nil, unsupportedValueError{t: rv.Type()}
	default:
		return v, nil
	}
}
