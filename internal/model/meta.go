package model

import (
	"bytes"
	"encoding/json"
	"sort"

	"gopkg.in/yaml.v3"
)

// Meta is an insertion-ordered metadata map with unique keys.
// The zero value is not usable; use NewMeta. Methods reading a nil *Meta
// behave as on an empty map.
type Meta struct {
	keys   []string
	values map[string]any
}

// NewMeta creates an empty metadata map.
func NewMeta() *Meta {
	return &Meta{values: make(map[string]any)}
}

// Add sets key to value. New keys are appended; existing keys keep their
// position.
func (m *Meta) Add(key string, value any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Set replaces all entries. Keys are ordered lexically since Go maps carry
// no order of their own.
func (m *Meta) Set(values map[string]any) {
	m.keys = make([]string, 0, len(values))
	m.values = make(map[string]any, len(values))
	for k := range values {
		m.keys = append(m.keys, k)
	}
	sort.Strings(m.keys)
	for k, v := range values {
		m.values[k] = v
	}
}

// Merge adds every entry of other, in other's order.
func (m *Meta) Merge(other *Meta) {
	for _, k := range other.Keys() {
		m.Add(k, other.values[k])
	}
}

// Get returns the value stored under key.
func (m *Meta) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Meta) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of entries.
func (m *Meta) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Map returns an unordered copy of the entries.
func (m *Meta) Map() map[string]any {
	out := make(map[string]any, m.Len())
	if m == nil {
		return out
	}
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// MarshalJSON renders the entries as a JSON object in insertion order.
func (m *Meta) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML renders the entries as a YAML mapping in insertion order.
func (m *Meta) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range m.Keys() {
		var val yaml.Node
		if err := val.Encode(m.values[k]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&val,
		)
	}
	return node, nil
}
