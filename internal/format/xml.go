package format

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/apimorph/internal/model"
)

// ContentTypeXML is the XML content type.
const ContentTypeXML = "application/xml"

// elementNamePattern is the subset of XML names accepted for map keys.
var elementNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9._-]*$`)

// xmlFormatter renders XML. Every payload is written below a single root
// element; records and collections keep their key as the first child.
//
// Options:
//   - root (string): root element name, default "response"
//   - item (string): element name for list members, default "item"
//   - indent (int): spaces per level, 0 disables indentation, default 2
type xmlFormatter struct {
	n normalizer
}

// NewXMLFormatter creates the XML formatter.
func NewXMLFormatter() Formatter {
	return &xmlFormatter{n: normalizer{generic: true}}
}

// ContentType returns the XML content type.
func (f *xmlFormatter) ContentType() string { return ContentTypeXML }

// FormatRecord renders <response><key>...</key></response>.
func (f *xmlFormatter) FormatRecord(rec model.Record, opts Options) ([]byte, error) {
	return f.encode(recordEnvelope(rec, f.n), opts, ShapeRecord)
}

// FormatCollection renders <response><keys><item>...</item></keys></response>.
func (f *xmlFormatter) FormatCollection(coll model.Collection, opts Options) ([]byte, error) {
	return f.encode(collectionEnvelope(coll, f.n), opts, ShapeCollection)
}

// FormatStructured renders the value below the root element.
func (f *xmlFormatter) FormatStructured(v any, opts Options) ([]byte, error) {
	return f.encode(f.n.value(v), opts, ShapeStructured)
}

func (f *xmlFormatter) encode(v any, opts Options, shape string) ([]byte, error) {
	if err := validateUTF8(v); err != nil {
		return nil, serializationError("xml", shape, err)
	}

	root := opts.String("root", "response")
	w := &xmlWriter{item: opts.String("item", "item")}
	for _, name := range []string{root, w.item} {
		if !elementNamePattern.MatchString(name) {
			return nil, serializationError("xml", shape, fmt.Errorf("%w: %q", ErrInvalidElementName, name))
		}
	}

	var buf bytes.Buffer

	// Add XML header
	buf.WriteString(xml.Header)

	w.enc = xml.NewEncoder(&buf)
	if indent := opts.Int("indent", 2); indent > 0 {
		w.enc.Indent("", strings.Repeat(" ", indent))
	}

	if err := w.element(root, v); err != nil {
		return nil, serializationError("xml", shape, err)
	}
	if err := w.enc.Flush(); err != nil {
		return nil, serializationError("xml", shape, err)
	}

	return buf.Bytes(), nil
}

// xmlWriter streams a normalized value as XML tokens.
type xmlWriter struct {
	enc  *xml.Encoder
	item string
}

func (w *xmlWriter) element(name string, v any) error {
	if !elementNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidElementName, name)
	}

	start := xml.StartElement{Name: xml.Name{Local: name}}
	if err := w.enc.EncodeToken(start); err != nil {
		return err
	}
	if err := w.content(v); err != nil {
		return err
	}
	return w.enc.EncodeToken(start.End())
}

func (w *xmlWriter) content(v any) error {
	switch t := v.(type) {
	case nil:
		return nil
	case *model.Meta:
		for _, k := range t.Keys() {
			val, _ := t.Get(k)
			if err := w.element(k, val); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := w.element(k, t[k]); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for _, val := range t {
			if err := w.element(w.item, val); err != nil {
				return err
			}
		}
		return nil
	case []byte:
		return w.enc.EncodeToken(xml.CharData(base64.StdEncoding.EncodeToString(t)))
	case string:
		return w.enc.EncodeToken(xml.CharData(t))
	case json.Number:
		return w.enc.EncodeToken(xml.CharData(t.String()))
	}

	text, ok := scalarText(reflect.ValueOf(v))
	if !ok {
		return fmt.Errorf("unsupported value of type %T", v)
	}
	return w.enc.EncodeToken(xml.CharData(text))
}

func scalarText(rv reflect.Value) (string, bool) {
	switch rv.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	case reflect.String:
		return rv.String(), true
	default:
		return "", false
	}
}
