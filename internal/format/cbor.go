package format

import (
	cbor "github.com/fxamacker/cbor/v2"

	"github.com/vyrodovalexey/apimorph/internal/model"
)

// ContentTypeCBOR is the CBOR content type.
const ContentTypeCBOR = "application/cbor"

// cborFormatter renders CBOR (RFC 8949).
//
// Options:
//   - canonical (bool): deterministic core encoding with sorted map keys,
//     default true
type cborFormatter struct {
	n         normalizer
	canonical cbor.EncMode
	plain     cbor.EncMode
}

// NewCBORFormatter creates the CBOR formatter.
func NewCBORFormatter() (Formatter, error) {
	canonical, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	plain, err := cbor.EncOptions{}.EncMode()
	if err != nil {
		return nil, err
	}
	return &cborFormatter{
		n:         normalizer{generic: true, flattenMeta: true},
		canonical: canonical,
		plain:     plain,
	}, nil
}

// ContentType returns the CBOR content type.
func (f *cborFormatter) ContentType() string { return ContentTypeCBOR }

func (f *cborFormatter) FormatRecord(rec model.Record, opts Options) ([]byte, error) {
	return f.encode(recordEnvelope(rec, f.n), opts, ShapeRecord)
}

func (f *cborFormatter) FormatCollection(coll model.Collection, opts Options) ([]byte, error) {
	return f.encode(collectionEnvelope(coll, f.n), opts, ShapeCollection)
}

func (f *cborFormatter) FormatStructured(v any, opts Options) ([]byte, error) {
	return f.encode(v, opts, ShapeStructured)
}

func (f *cborFormatter) encode(v any, opts Options, shape string) ([]byte, error) {
	mode := f.plain
	if opts.Bool("canonical", true) {
		mode = f.canonical
	}

	data, err := mode.Marshal(f.n.value(v))
	if err != nil {
		return nil, serializationError("cbor", shape, err)
	}
	return data, nil
}
