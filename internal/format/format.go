// Package format provides the formatter catalog and the built-in wire
// formats (JSON, JSONP, XML, YAML, CBOR and Protocol Buffers) used to
// morph response content.
package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/apimorph/internal/model"
)

// Shape names used in errors and metrics.
const (
	ShapeRecord     = "record"
	ShapeCollection = "collection"
	ShapeStructured = "structured"
)

// Formatter serializes the recognized value shapes into one wire format.
// Implementations hold no per-call state and are safe for concurrent use.
type Formatter interface {
	// ContentType returns the content type of the output. An empty string
	// means the response header must not be overridden.
	ContentType() string

	// FormatRecord renders a single record.
	FormatRecord(rec model.Record, opts Options) ([]byte, error)

	// FormatCollection renders a record collection.
	FormatCollection(coll model.Collection, opts Options) ([]byte, error)

	// FormatStructured renders maps, slices and model.Arrayable values.
	FormatStructured(v any, opts Options) ([]byte, error)
}

// ContentTyper is implemented by formatters whose content type depends on
// their options.
type ContentTyper interface {
	ContentTypeFor(opts Options) string
}

// ContentTypeOf returns the content type f produces under opts.
func ContentTypeOf(f Formatter, opts Options) string {
	if ct, ok := f.(ContentTyper); ok {
		return ct.ContentTypeFor(opts)
	}
	return f.ContentType()
}

// Options is the option bag handed to a formatter on each call.
type Options map[string]any

// Clone returns a shallow copy. The copy of a nil Options is empty, not nil.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Merge returns a copy of o with every entry of over applied on top.
func (o Options) Merge(over Options) Options {
	out := o.Clone()
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Bool reads a boolean option. Strings such as "true" or "1" are accepted.
func (o Options) Bool(key string, def bool) bool {
	switch v := o[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Int reads an integer option.
func (o Options) Int(key string, def int) int {
	switch v := o[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case uint64:
		return int(v)
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// String reads a string option.
func (o Options) String(key, def string) string {
	switch v := o[key].(type) {
	case string:
		if v != "" {
			return v
		}
	case fmt.Stringer:
		return v.String()
	}
	return def
}

// indentFor builds the indent unit from the indent_style and indent_size
// options.
func indentFor(opts Options) string {
	size := opts.Int("indent_size", 2)
	if size <= 0 {
		size = 2
	}
	if strings.EqualFold(opts.String("indent_style", "space"), "tab") {
		return strings.Repeat("\t", size)
	}
	return strings.Repeat(" ", size)
}

// recordEnvelope builds the ordered wire form of a record:
// {<key>: attributes, meta: {...}}.
func recordEnvelope(rec model.Record, n normalizer) *model.Meta {
	env := model.NewMeta()
	env.Add(rec.ResourceKey(), n.value(rec.Attributes()))
	addMeta(env, rec, n)
	return env
}

// collectionEnvelope builds the ordered wire form of a collection. An empty
// collection renders as an empty list.
func collectionEnvelope(coll model.Collection, n normalizer) any {
	records := coll.Records()
	if len(records) == 0 {
		return []any{}
	}

	items := make([]any, 0, len(records))
	for _, rec := range records {
		if model.IsNil(rec) {
			continue
		}
		items = append(items, n.value(rec.Attributes()))
	}

	env := model.NewMeta()
	env.Add(coll.CollectionKey(), items)
	addMeta(env, coll, n)
	return env
}

func addMeta(env *model.Meta, v any, n normalizer) {
	mc, ok := v.(model.MetaCarrier)
	if !ok || mc.Meta().Len() == 0 {
		return
	}
	env.Add("meta", n.value(mc.Meta()))
}
