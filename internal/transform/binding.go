package transform

import "github.com/vyrodovalexey/apimorph/internal/model"

// Binding ties response content to its transformation: an optional
// transformer used instead of the registered rules, and the metadata
// accumulated for the response.
type Binding struct {
	content     any
	transformer Transformer
	meta        *model.Meta
}

// BindingOption is a functional option for configuring a binding.
type BindingOption func(*Binding)

// WithTransformer makes the binding use t for its content.
func WithTransformer(t Transformer) BindingOption {
	return func(b *Binding) {
		b.transformer = t
	}
}

// WithMeta seeds the binding's metadata.
func WithMeta(meta map[string]any) BindingOption {
	return func(b *Binding) {
		b.meta.Set(meta)
	}
}

// NewBinding creates a binding for content.
func NewBinding(content any, opts ...BindingOption) *Binding {
	b := &Binding{content: content, meta: model.NewMeta()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Content returns the bound content.
func (b *Binding) Content() any {
	if b == nil {
		return nil
	}
	return b.content
}

// Transformer returns the binding's own transformer, if any.
func (b *Binding) Transformer() Transformer {
	if b == nil {
		return nil
	}
	return b.transformer
}

// AddMeta adds or replaces a metadata entry. New keys are appended.
func (b *Binding) AddMeta(key string, value any) {
	b.meta.Add(key, value)
}

// SetMeta replaces all metadata.
func (b *Binding) SetMeta(meta map[string]any) {
	b.meta.Set(meta)
}

// Meta returns the metadata. It is nil for a nil binding.
func (b *Binding) Meta() *model.Meta {
	if b == nil {
		return nil
	}
	return b.meta
}
