package format

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/vyrodovalexey/apimorph/internal/model"
)

// ContentTypeYAML is the YAML content type.
const ContentTypeYAML = "application/yaml"

// yamlFormatter renders YAML documents.
//
// Options:
//   - indent (int): spaces per level, default 2
type yamlFormatter struct {
	n normalizer
}

// NewYAMLFormatter creates the YAML formatter.
func NewYAMLFormatter() Formatter {
	return &yamlFormatter{n: normalizer{generic: true}}
}

// ContentType returns the YAML content type.
func (f *yamlFormatter) ContentType() string { return ContentTypeYAML }

func (f *yamlFormatter) FormatRecord(rec model.Record, opts Options) ([]byte, error) {
	return f.encode(recordEnvelope(rec, f.n), opts, ShapeRecord)
}

func (f *yamlFormatter) FormatCollection(coll model.Collection, opts Options) ([]byte, error) {
	return f.encode(collectionEnvelope(coll, f.n), opts, ShapeCollection)
}

func (f *yamlFormatter) FormatStructured(v any, opts Options) ([]byte, error) {
	return f.encode(f.n.value(v), opts, ShapeStructured)
}

func (f *yamlFormatter) encode(v any, opts Options, shape string) ([]byte, error) {
	if err := validateUTF8(v); err != nil {
		return nil, serializationError("yaml", shape, err)
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	indent := opts.Int("indent", 2)
	if indent <= 0 {
		indent = 2
	}
	encoder.SetIndent(indent)

	if err := encoder.Encode(v); err != nil {
		return nil, serializationError("yaml", shape, err)
	}
	if err := encoder.Close(); err != nil {
		return nil, serializationError("yaml", shape, err)
	}

	return buf.Bytes(), nil
}
