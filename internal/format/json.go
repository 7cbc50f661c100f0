package format

import (
	"bytes"
	"encoding/json"
	"regexp"

	"github.com/vyrodovalexey/apimorph/internal/model"
)

// Content types of the JSON family.
const (
	ContentTypeJSON       = "application/json"
	ContentTypeJavaScript = "application/javascript"
)

// jsonFormatter renders JSON.
//
// Options:
//   - pretty_print (bool): indent the output
//   - indent_style ("space"|"tab") and indent_size (int): indent unit
type jsonFormatter struct {
	n normalizer
}

// NewJSONFormatter creates the JSON formatter.
func NewJSONFormatter() Formatter {
	return &jsonFormatter{}
}

// ContentType returns the JSON content type.
func (f *jsonFormatter) ContentType() string { return ContentTypeJSON }

// FormatRecord renders {"<key>": {...}}.
func (f *jsonFormatter) FormatRecord(rec model.Record, opts Options) ([]byte, error) {
	return f.encode(recordEnvelope(rec, f.n), opts, ShapeRecord)
}

// FormatCollection renders {"<plural key>": [...]} or [] when empty.
func (f *jsonFormatter) FormatCollection(coll model.Collection, opts Options) ([]byte, error) {
	return f.encode(collectionEnvelope(coll, f.n), opts, ShapeCollection)
}

// FormatStructured renders the value with every nested Arrayable converted.
func (f *jsonFormatter) FormatStructured(v any, opts Options) ([]byte, error) {
	return f.encode(f.n.value(v), opts, ShapeStructured)
}

func (f *jsonFormatter) encode(v any, opts Options, shape string) ([]byte, error) {
	data, err := encodeJSON(v, opts)
	if err != nil {
		return nil, serializationError("json", shape, err)
	}
	return data, nil
}

func encodeJSON(v any, opts Options) ([]byte, error) {
	if err := validateUTF8(v); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if opts.Bool("pretty_print", false) {
		encoder.SetIndent("", indentFor(opts))
	}

	if err := encoder.Encode(v); err != nil {
		return nil, err
	}

	// Remove trailing newline added by encoder
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// callbackPattern matches JavaScript identifiers and dotted paths.
var callbackPattern = regexp.MustCompile(`^[A-Za-z_$][0-9A-Za-z_$]*(\.[A-Za-z_$][0-9A-Za-z_$]*)*$`)

// jsonpFormatter renders JSON wrapped in a callback invocation. Without a
// valid "callback" option it behaves exactly like the JSON formatter.
type jsonpFormatter struct {
	jsonFormatter
}

// NewJSONPFormatter creates the JSONP formatter.
func NewJSONPFormatter() Formatter {
	return &jsonpFormatter{}
}

// ContentType returns the JavaScript content type.
func (f *jsonpFormatter) ContentType() string { return ContentTypeJavaScript }

// ContentTypeFor falls back to JSON when no usable callback is configured.
func (f *jsonpFormatter) ContentTypeFor(opts Options) string {
	if _, ok := callbackOf(opts); ok {
		return ContentTypeJavaScript
	}
	return ContentTypeJSON
}

func (f *jsonpFormatter) FormatRecord(rec model.Record, opts Options) ([]byte, error) {
	return f.wrap(f.jsonFormatter.FormatRecord(rec, opts))(opts)
}

func (f *jsonpFormatter) FormatCollection(coll model.Collection, opts Options) ([]byte, error) {
	return f.wrap(f.jsonFormatter.FormatCollection(coll, opts))(opts)
}

func (f *jsonpFormatter) FormatStructured(v any, opts Options) ([]byte, error) {
	return f.wrap(f.jsonFormatter.FormatStructured(v, opts))(opts)
}

func (f *jsonpFormatter) wrap(data []byte, err error) func(Options) ([]byte, error) {
	return func(opts Options) ([]byte, error) {
		if err != nil {
			return nil, err
		}
		callback, ok := callbackOf(opts)
		if !ok {
			return data, nil
		}
		out := make([]byte, 0, len(data)+len(callback)+8)
		out = append(out, "/**/"...)
		out = append(out, callback...)
		out = append(out, '(')
		out = append(out, data...)
		out = append(out, ");"...)
		return out, nil
	}
}

func callbackOf(opts Options) (string, bool) {
	callback := opts.String("callback", "")
	if callback == "" || !callbackPattern.MatchString(callback) {
		return "", false
	}
	return callback, true
}
