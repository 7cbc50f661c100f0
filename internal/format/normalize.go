package format

import (
	"encoding/json"
	"fmt"
	"reflect"
	"unicode/utf8"

	"github.com/vyrodovalexey/apimorph/internal/model"
)

// maxDepth bounds the walk over self-referencing Arrayable values.
const maxDepth = 64

// normalizer converts records, collections and Arrayable values nested
// anywhere inside a value into their array form.
type normalizer struct {
	// generic also turns structs and typed maps/slices into map[string]any,
	// []any and scalars, for encoders that only understand those.
	generic bool

	// flattenMeta renders *model.Meta as a plain map, dropping its order.
	flattenMeta bool
}

func (n normalizer) value(v any) any {
	return n.walk(v, 0)
}

func (n normalizer) walk(v any, depth int) any {
	if v == nil || depth > maxDepth {
		return v
	}

	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Map || rv.Kind() == reflect.Slice) && rv.IsNil() {
		return nil
	}

	switch t := v.(type) {
	case *model.Meta:
		return n.walkMeta(t, depth)
	case model.Record:
		return n.walk(t.Attributes(), depth+1)
	case model.Collection:
		records := t.Records()
		out := make([]any, 0, len(records))
		for _, rec := range records {
			if model.IsNil(rec) {
				continue
			}
			out = append(out, n.walk(rec.Attributes(), depth+1))
		}
		return out
	case model.Arrayable:
		return n.walk(t.ToArray(), depth+1)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = n.walk(val, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = n.walk(val, depth+1)
		}
		return out
	case string, bool, int, int64, float64, json.Number, []byte:
		return t
	}

	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Pointer, reflect.Interface:
		return n.walk(rv.Elem().Interface(), depth+1)
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = n.walk(iter.Value().Interface(), depth+1)
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = n.walk(rv.Index(i).Interface(), depth+1)
		}
		return out
	case reflect.Struct:
		if n.generic {
			return viaJSON(v)
		}
	}

	return v
}

func (n normalizer) walkMeta(m *model.Meta, depth int) any {
	if n.flattenMeta {
		out := make(map[string]any, m.Len())
		for _, k := range m.Keys() {
			val, _ := m.Get(k)
			out[k] = n.walk(val, depth+1)
		}
		return out
	}

	out := model.NewMeta()
	for _, k := range m.Keys() {
		val, _ := m.Get(k)
		out.Add(k, n.walk(val, depth+1))
	}
	return out
}

// viaJSON converts a struct into its generic JSON form so that struct tags
// drive field naming across every format. Values that cannot be marshaled
// or hold invalid UTF-8 are returned unchanged and fail later in the target
// encoder or in validateUTF8.
func viaJSON(v any) any {
	if validateValueUTF8(reflect.ValueOf(v), 0) != nil {
		return v
	}
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// validateUTF8 reports the first string (value or key) in a normalized
// value that is not valid UTF-8.
func validateUTF8(v any) error {
	switch t := v.(type) {
	case string:
		if !utf8.ValidString(t) {
			return fmt.Errorf("%w: %q", ErrInvalidUTF8, t)
		}
	case map[string]any:
		for k, val := range t {
			if err := validateUTF8(k); err != nil {
				return err
			}
			if err := validateUTF8(val); err != nil {
				return err
			}
		}
	case []any:
		for _, val := range t {
			if err := validateUTF8(val); err != nil {
				return err
			}
		}
	case *model.Meta:
		for _, k := range t.Keys() {
			if err := validateUTF8(k); err != nil {
				return err
			}
			val, _ := t.Get(k)
			if err := validateUTF8(val); err != nil {
				return err
			}
		}
	case nil, bool, int, int64, float64, json.Number, []byte:
	default:
		return validateValueUTF8(reflect.ValueOf(v), 0)
	}
	return nil
}

// validateValueUTF8 checks the strings reachable from rv, including the
// exported fields of structs that encoders serialize.
func validateValueUTF8(rv reflect.Value, depth int) error {
	if !rv.IsValid() || depth > maxDepth {
		return nil
	}

	switch rv.Kind() {
	case reflect.String:
		if !utf8.ValidString(rv.String()) {
			return fmt.Errorf("%w: %q", ErrInvalidUTF8, rv.String())
		}
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return validateValueUTF8(rv.Elem(), depth+1)
	case reflect.Struct:
		rt := rv.Type()
		for i := range rt.NumField() {
			field := rt.Field(i)
			if (!field.IsExported() && !field.Anonymous) || field.Tag.Get("json") == "-" {
				continue
			}
			if err := validateValueUTF8(rv.Field(i), depth+1); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			if err := validateValueUTF8(iter.Key(), depth+1); err != nil {
				return err
			}
			if err := validateValueUTF8(iter.Value(), depth+1); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil
		}
		for i := range rv.Len() {
			if err := validateValueUTF8(rv.Index(i), depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
