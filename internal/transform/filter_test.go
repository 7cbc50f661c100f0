package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want []string
	}{
		{path: "name", want: []string{"name"}},
		{path: "user.name", want: []string{"user", "name"}},
		{path: "items[].id", want: []string{"items", "[]", "id"}},
		{path: ".a..b.", want: []string{"a", "b"}},
		{path: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, splitPath(tt.path))
		})
	}
}

func TestAllowFields(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"id":    1,
		"name":  "Ann",
		"email": "ann@example.com",
		"address": map[string]any{
			"city": "Oslo",
			"zip":  "0150",
		},
		"posts": []any{
			map[string]any{"id": 1, "title": "a", "draft": true},
			map[string]any{"id": 2, "title": "b", "draft": false},
			"scalar",
		},
	}

	tests := []struct {
		name  string
		paths []string
		want  map[string]any
	}{
		{
			name:  "empty keeps everything",
			paths: nil,
			want:  data,
		},
		{
			name:  "top level",
			paths: []string{"id", "name"},
			want:  map[string]any{"id": 1, "name": "Ann"},
		},
		{
			name:  "nested",
			paths: []string{"address.city"},
			want:  map[string]any{"address": map[string]any{"city": "Oslo"}},
		},
		{
			name:  "whole nested map",
			paths: []string{"address"},
			want:  map[string]any{"address": map[string]any{"city": "Oslo", "zip": "0150"}},
		},
		{
			name:  "list elements",
			paths: []string{"posts[].title"},
			want: map[string]any{"posts": []any{
				map[string]any{"title": "a"},
				map[string]any{"title": "b"},
				"scalar",
			}},
		},
		{
			name:  "wildcard",
			paths: []string{"*"},
			want:  data,
		},
		{
			name:  "missing path",
			paths: []string{"address.street"},
			want:  map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, allowFields(copyMap(data), tt.paths))
		})
	}
}

func TestDenyFields(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"id":       1,
		"password": "secret",
		"profile":  map[string]any{"token": "t", "bio": "hi"},
		"keys":     []any{map[string]any{"id": 1, "secret": "s"}, 5},
	}

	got := denyFields(copyMap(data), []string{"password", "profile.token", "keys[].secret"})
	assert.Equal(t, map[string]any{
		"id":      1,
		"profile": map[string]any{"bio": "hi"},
		"keys":    []any{map[string]any{"id": 1}, 5},
	}, got)

	assert.Equal(t, data, denyFields(data, nil))
}

func TestRenameField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		from, to string
		want     map[string]any
	}{
		{
			name: "top level",
			from: "name", to: "full_name",
			want: map[string]any{"full_name": "Ann", "meta": map[string]any{"age": 30}},
		},
		{
			name: "into nested",
			from: "name", to: "profile.name",
			want: map[string]any{"profile": map[string]any{"name": "Ann"}, "meta": map[string]any{"age": 30}},
		},
		{
			name: "out of nested",
			from: "meta.age", to: "age",
			want: map[string]any{"name": "Ann", "age": 30, "meta": map[string]any{}},
		},
		{
			name: "missing source",
			from: "nope", to: "x",
			want: map[string]any{"name": "Ann", "meta": map[string]any{"age": 30}},
		},
		{
			name: "blocked target",
			from: "meta.age", to: "name.age",
			want: map[string]any{"name": "Ann", "meta": map[string]any{"age": 30}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data := map[string]any{"name": "Ann", "meta": map[string]any{"age": 30}}
			renameField(data, tt.from, tt.to)
			assert.Equal(t, tt.want, data)
		})
	}
}

func TestCopyMap(t *testing.T) {
	t.Parallel()

	src := map[string]any{"a": map[string]any{"b": []any{1}}}
	dst := copyMap(src)
	dst["a"].(map[string]any)["b"].([]any)[0] = 2

	assert.Equal(t, 1, src["a"].(map[string]any)["b"].([]any)[0])
}
