// Package transform reshapes domain records into their public
// representation before they are serialized, and collects response
// metadata along the way.
package transform

import (
	"context"

	"github.com/vyrodovalexey/apimorph/internal/model"
)

// Transformer maps one record to its public form. Returning a nil record
// drops it from the enclosing collection.
type Transformer interface {
	Transform(ctx context.Context, rec model.Record, scope *Scope) (model.Record, error)
}

// TransformerFunc adapts a function to the Transformer interface.
type TransformerFunc func(ctx context.Context, rec model.Record, scope *Scope) (model.Record, error)

// Transform calls f.
func (f TransformerFunc) Transform(ctx context.Context, rec model.Record, scope *Scope) (model.Record, error) {
	return f(ctx, rec, scope)
}

// Resolver decides whether content can be transformed and transforms it.
type Resolver interface {
	// Transformable reports whether a rule exists for the content.
	Transformable(v any) bool

	// Transform returns the transformed content. Metadata produced by rules
	// is written into b only.
	Transform(ctx context.Context, v any, b *Binding) (any, error)
}

// Accepts reports whether content bound by b will be transformed: the
// binding carries its own transformer for a record or non-empty collection,
// or r has rules for it.
func Accepts(r Resolver, v any, b *Binding) bool {
	if b == nil {
		return false
	}
	if b.Transformer() != nil && transformableShape(v) {
		return true
	}
	return r != nil && r.Transformable(v)
}

func transformableShape(v any) bool {
	if model.IsNil(v) {
		return false
	}
	switch t := v.(type) {
	case model.Record:
		return true
	case model.Collection:
		return len(t.Records()) > 0
	default:
		return false
	}
}

// maxNesting bounds Scope.Nested recursion.
const maxNesting = 16

// Scope is handed to a transformer for one call. It gives access to the
// binding's metadata and to nested transformation of related records.
type Scope struct {
	factory *Factory
	binding *Binding
	depth   int
	member  bool
}

// Binding returns the binding metadata is written to.
func (s *Scope) Binding() *Binding { return s.binding }

// Depth returns the nesting level, 0 for the bound content.
func (s *Scope) Depth() int { return s.depth }

// Member reports whether the record being transformed belongs to a
// collection.
func (s *Scope) Member() bool { return s.member }

// AddMeta adds a metadata entry to the binding.
func (s *Scope) AddMeta(key string, value any) {
	s.binding.AddMeta(key, value)
}

// Nested transforms a related record or collection with its registered
// rule. Values without a rule are returned unchanged.
func (s *Scope) Nested(ctx context.Context, v any) (any, error) {
	if s.factory == nil || !s.factory.Transformable(v) {
		return v, nil
	}
	if s.depth+1 > maxNesting {
		return nil, ErrNestingTooDeep
	}

	child := &Scope{factory: s.factory, binding: s.binding, depth: s.depth + 1}
	return s.factory.apply(ctx, v, child, nil)
}
