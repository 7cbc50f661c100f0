package response

import (
	"encoding/json"
	"reflect"

	"github.com/vyrodovalexey/apimorph/internal/model"
)

// ShapeKind enumerates the value shapes the pipeline dispatches on.
type ShapeKind int

// Shape kinds in dispatch priority order.
const (
	ShapeOpaque ShapeKind = iota
	ShapeRecord
	ShapeCollection
	ShapeStructured
	ShapeString
)

// String returns the shape name used in logs and metrics.
func (k ShapeKind) String() string {
	switch k {
	case ShapeRecord:
		return "record"
	case ShapeCollection:
		return "collection"
	case ShapeStructured:
		return "structured"
	case ShapeString:
		return "string"
	default:
		return "opaque"
	}
}

// Shape is a classified value. Exactly the field matching Kind is set.
type Shape struct {
	Kind       ShapeKind
	Record     model.Record
	Collection model.Collection
	Value      any
	Text       []byte
}

// Classify determines the shape of v. Records win over collections, which
// win over structured values (maps, slices, arrays, pointers to those and
// model.Arrayable values), which win over strings. Everything else,
// including nil, typed nil pointers, maps and slices, scalars and plain
// structs, is opaque.
func Classify(v any) Shape {
	if v == nil {
		return Shape{Kind: ShapeOpaque}
	}
	if model.IsNil(v) {
		return Shape{Kind: ShapeOpaque, Value: v}
	}

	switch t := v.(type) {
	case model.Record:
		return Shape{Kind: ShapeRecord, Record: t}
	case model.Collection:
		return Shape{Kind: ShapeCollection, Collection: t}
	case model.Arrayable:
		return Shape{Kind: ShapeStructured, Value: t}
	case string:
		return Shape{Kind: ShapeString, Text: []byte(t)}
	case []byte:
		return Shape{Kind: ShapeString, Text: t}
	case json.RawMessage:
		return Shape{Kind: ShapeString, Text: t}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return Shape{Kind: ShapeStructured, Value: v}
	case reflect.Pointer:
		switch rv.Elem().Kind() {
		case reflect.Map, reflect.Slice, reflect.Array:
			return Shape{Kind: ShapeStructured, Value: v}
		}
	case reflect.String:
		return Shape{Kind: ShapeString, Text: []byte(rv.String())}
	}

	return Shape{Kind: ShapeOpaque, Value: v}
}
