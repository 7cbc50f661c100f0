package format

import (
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vyrodovalexey/apimorph/internal/model"
)

// ContentTypeProtobuf is the Protocol Buffers content type.
const ContentTypeProtobuf = "application/x-protobuf"

// protobufFormatter renders a google.protobuf.Value message.
//
// Options:
//   - json (bool): emit the canonical protojson form instead of wire bytes
//   - pretty_print (bool): multiline protojson output
type protobufFormatter struct {
	n normalizer
}

// NewProtobufFormatter creates the Protocol Buffers formatter.
func NewProtobufFormatter() Formatter {
	return &protobufFormatter{n: normalizer{generic: true, flattenMeta: true}}
}

// ContentType returns the protobuf content type.
func (f *protobufFormatter) ContentType() string { return ContentTypeProtobuf }

// ContentTypeFor reports JSON when the json option is set.
func (f *protobufFormatter) ContentTypeFor(opts Options) string {
	if opts.Bool("json", false) {
		return ContentTypeJSON
	}
	return ContentTypeProtobuf
}

func (f *protobufFormatter) FormatRecord(rec model.Record, opts Options) ([]byte, error) {
	return f.encode(recordEnvelope(rec, f.n), opts, ShapeRecord)
}

func (f *protobufFormatter) FormatCollection(coll model.Collection, opts Options) ([]byte, error) {
	return f.encode(collectionEnvelope(coll, f.n), opts, ShapeCollection)
}

func (f *protobufFormatter) FormatStructured(v any, opts Options) ([]byte, error) {
	return f.encode(v, opts, ShapeStructured)
}

func (f *protobufFormatter) encode(v any, opts Options, shape string) ([]byte, error) {
	msg, err := structpb.NewValue(f.n.value(v))
	if err != nil {
		return nil, serializationError("protobuf", shape, err)
	}

	var data []byte
	if opts.Bool("json", false) {
		marshaler := protojson.MarshalOptions{}
		if opts.Bool("pretty_print", false) {
			marshaler.Multiline = true
			marshaler.Indent = indentFor(opts)
		}
		data, err = marshaler.Marshal(msg)
	} else {
		data, err = proto.MarshalOptions{Deterministic: true}.Marshal(msg)
	}
	if err != nil {
		return nil, serializationError("protobuf", shape, err)
	}

	return data, nil
}
