package format

import (
	"fmt"
	"sort"
)

// Built-in formatter kinds.
const (
	KindJSON     = "json"
	KindJSONP    = "jsonp"
	KindXML      = "xml"
	KindYAML     = "yaml"
	KindCBOR     = "cbor"
	KindProtobuf = "protobuf"
)

var builtins = map[string]func() (Formatter, error){
	KindJSON:     func() (Formatter, error) { return NewJSONFormatter(), nil },
	KindJSONP:    func() (Formatter, error) { return NewJSONPFormatter(), nil },
	KindXML:      func() (Formatter, error) { return NewXMLFormatter(), nil },
	KindYAML:     func() (Formatter, error) { return NewYAMLFormatter(), nil },
	KindCBOR:     NewCBORFormatter,
	KindProtobuf: func() (Formatter, error) { return NewProtobufFormatter(), nil },
}

// New creates a built-in formatter by kind.
func New(kind string) (Formatter, error) {
	build, ok := builtins[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return build()
}

// Kinds returns the built-in kinds in lexical order.
func Kinds() []string {
	kinds := make([]string, 0, len(builtins))
	for k := range builtins {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// RegisterBuiltins registers every built-in formatter under its kind name.
func RegisterBuiltins(c *Catalog) error {
	for _, kind := range Kinds() {
		f, err := New(kind)
		if err != nil {
			return err
		}
		if err := c.Register(kind, f, nil); err != nil {
			return err
		}
	}
	return nil
}

// WithContentType wraps f so that it reports contentType instead of its own
// content type. An empty contentType returns f unchanged.
func WithContentType(f Formatter, contentType string) Formatter {
	if contentType == "" {
		return f
	}
	return &contentTypeOverride{Formatter: f, contentType: contentType}
}

type contentTypeOverride struct {
	Formatter
	contentType string
}

func (o *contentTypeOverride) ContentType() string { return o.contentType }

// ContentTypeFor keeps the override even for formatters that switch content
// type on their options.
func (o *contentTypeOverride) ContentTypeFor(Options) string { return o.contentType }
