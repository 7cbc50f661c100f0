// Package model defines the value shapes the morph pipeline recognizes:
// single records, record collections, and values that can convert
// themselves into a generic structured form.
package model

import (
	"reflect"
	"strings"
)

// IsNil reports whether v is nil or a typed nil pointer, map, slice,
// interface, channel or func.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

// Record is a single domain entity.
type Record interface {
	// ResourceKey is the singular wire name of the record type (e.g. "user").
	// It also identifies the transformation rule registered for the type.
	ResourceKey() string

	// Attributes returns the record's fields.
	Attributes() map[string]any
}

// Collection is an ordered group of records.
type Collection interface {
	// CollectionKey is the plural wire name of the collection (e.g. "users").
	CollectionKey() string

	// Records returns the members in order.
	Records() []Record
}

// Arrayable is implemented by values that expose a generic structured form
// (maps, slices and scalars) of themselves.
type Arrayable interface {
	ToArray() any
}

// MetaCarrier is implemented by values that carry response metadata to be
// rendered next to their payload.
type MetaCarrier interface {
	Meta() *Meta
}

// Pagination describes the page a collection represents.
type Pagination struct {
	Total       int               `json:"total" yaml:"total"`
	Count       int               `json:"count" yaml:"count"`
	PerPage     int               `json:"per_page" yaml:"per_page"`
	CurrentPage int               `json:"current_page" yaml:"current_page"`
	TotalPages  int               `json:"total_pages" yaml:"total_pages"`
	Links       map[string]string `json:"links,omitempty" yaml:"links,omitempty"`
}

// ToArray returns the pagination as a generic map.
func (p Pagination) ToArray() any {
	m := map[string]any{
		"total":        p.Total,
		"count":        p.Count,
		"per_page":     p.PerPage,
		"current_page": p.CurrentPage,
		"total_pages":  p.TotalPages,
	}
	if len(p.Links) > 0 {
		links := make(map[string]any, len(p.Links))
		for k, v := range p.Links {
			links[k] = v
		}
		m["links"] = links
	}
	return m
}

// Paginated is implemented by collections that represent one page of a
// larger result set.
type Paginated interface {
	Pagination() (Pagination, bool)
}

// Resource is a generic Record backed by a field map.
type Resource struct {
	Key    string
	Fields map[string]any
	meta   *Meta
}

// NewResource creates a resource of the given type.
func NewResource(key string, fields map[string]any) *Resource {
	if fields == nil {
		fields = make(map[string]any)
	}
	return &Resource{Key: key, Fields: fields}
}

// ResourceKey implements Record.
func (r *Resource) ResourceKey() string { return r.Key }

// Attributes implements Record.
func (r *Resource) Attributes() map[string]any { return r.Fields }

// ToArray implements Arrayable.
func (r *Resource) ToArray() any { return r.Fields }

// Meta implements MetaCarrier.
func (r *Resource) Meta() *Meta { return r.meta }

// WithMeta attaches metadata to the resource and returns it.
func (r *Resource) WithMeta(m *Meta) *Resource {
	r.meta = m
	return r
}

// List is a generic Collection.
type List struct {
	Key   string
	Items []Record
	Page  *Pagination
	meta  *Meta
}

// NewList creates a list. An empty key is derived from the first item.
func NewList(key string, items ...Record) *List {
	return &List{Key: key, Items: items}
}

// CollectionKey implements Collection.
func (l *List) CollectionKey() string {
	if l.Key != "" {
		return l.Key
	}
	if len(l.Items) > 0 {
		return Plural(l.Items[0].ResourceKey())
	}
	return ""
}

// Records implements Collection.
func (l *List) Records() []Record { return l.Items }

// ToArray implements Arrayable. Lists are both collections and array
// convertible; the pipeline treats them as collections.
func (l *List) ToArray() any {
	out := make([]any, 0, len(l.Items))
	for _, item := range l.Items {
		out = append(out, item.Attributes())
	}
	return out
}

// Pagination implements Paginated.
func (l *List) Pagination() (Pagination, bool) {
	if l.Page == nil {
		return Pagination{}, false
	}
	return *l.Page, true
}

// Meta implements MetaCarrier.
func (l *List) Meta() *Meta { return l.meta }

// WithMeta attaches metadata to the list and returns it.
func (l *List) WithMeta(m *Meta) *List {
	l.meta = m
	return l
}

// Plural returns a naive English plural of a resource key.
func Plural(key string) string {
	switch {
	case key == "":
		return ""
	case strings.HasSuffix(key, "y") && len(key) > 1 && !strings.ContainsAny(key[len(key)-2:len(key)-1], "aeiou"):
		return key[:len(key)-1] + "ies"
	case strings.HasSuffix(key, "s"), strings.HasSuffix(key, "x"),
		strings.HasSuffix(key, "ch"), strings.HasSuffix(key, "sh"):
		return key + "es"
	default:
		return key + "s"
	}
}
