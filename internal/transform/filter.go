package transform

import "strings"

// pathTree is a set of field paths split into segments. "[]" descends into
// every element of a list.
//
// ["user.name", "items[].id"] becomes
//
//	{"user": {"name": {}}, "items": {"[]": {"id": {}}}}
type pathTree map[string]pathTree

func newPathTree(paths []string) pathTree {
	tree := make(pathTree)
	for _, path := range paths {
		node := tree
		for _, part := range splitPath(path) {
			next, ok := node[part]
			if !ok {
				next = make(pathTree)
				node[part] = next
			}
			node = next
		}
	}
	return tree
}

// allowFields keeps only the listed paths. A path that names a nested map or
// list keeps it whole unless deeper segments narrow it. "*" keeps every key
// at its level.
func allowFields(data map[string]any, paths []string) map[string]any {
	if len(paths) == 0 {
		return data
	}
	return newPathTree(paths).allow(data)
}

func (t pathTree) allow(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for key, value := range data {
		sub, ok := t[key]
		if !ok {
			if sub, ok = t["*"]; !ok {
				continue
			}
		}
		if len(sub) == 0 {
			out[key] = value
			continue
		}
		if kept, ok := sub.allowValue(value); ok {
			out[key] = kept
		}
	}
	return out
}

func (t pathTree) allowValue(value any) (any, bool) {
	switch v := value.(type) {
	case map[string]any:
		kept := t.allow(v)
		return kept, len(kept) > 0
	case []any:
		elem, ok := t["[]"]
		if !ok {
			return v, true
		}
		out := make([]any, 0, len(v))
		for _, item := range v {
			m, isMap := item.(map[string]any)
			if !isMap || len(elem) == 0 {
				out = append(out, item)
				continue
			}
			if kept := elem.allow(m); len(kept) > 0 {
				out = append(out, kept)
			}
		}
		return out, len(out) > 0
	default:
		return value, true
	}
}

// denyFields removes the listed paths.
func denyFields(data map[string]any, paths []string) map[string]any {
	if len(paths) == 0 {
		return data
	}
	denied := make(map[string]bool, len(paths))
	for _, p := range paths {
		denied[strings.Join(splitPath(p), ".")] = true
	}
	return deny(data, denied, "")
}

func deny(data map[string]any, denied map[string]bool, prefix string) map[string]any {
	out := make(map[string]any, len(data))
	for key, value := range data {
		path := joinPath(prefix, key)
		if denied[path] {
			continue
		}
		switch v := value.(type) {
		case map[string]any:
			out[key] = deny(v, denied, path)
		case []any:
			items := make([]any, len(v))
			for i, item := range v {
				if m, ok := item.(map[string]any); ok {
					items[i] = deny(m, denied, path+".[]")
				} else {
					items[i] = item
				}
			}
			out[key] = items
		default:
			out[key] = value
		}
	}
	return out
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// splitPath splits a field path into segments.
// Example: "items[].name" -> ["items", "[]", "name"]
func splitPath(path string) []string {
	var parts []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
	}

	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '.':
			flush()
		case '[':
			flush()
			if i+1 < len(path) && path[i+1] == ']' {
				parts = append(parts, "[]")
				i++
			}
		case ']':
			// consumed with '['
		default:
			current.WriteByte(path[i])
		}
	}
	flush()

	return parts
}

// renameField moves the value at the dotted path from to the dotted path
// to, creating intermediate maps. Missing sources and targets blocked by a
// non-map value leave data unchanged.
func renameField(data map[string]any, from, to string) {
	src, dst := splitPath(from), splitPath(to)
	if len(src) == 0 || len(dst) == 0 {
		return
	}

	parent := descend(data, src[:len(src)-1], false)
	if parent == nil {
		return
	}
	value, ok := parent[src[len(src)-1]]
	if !ok {
		return
	}

	target := descend(data, dst[:len(dst)-1], true)
	if target == nil {
		return
	}
	delete(parent, src[len(src)-1])
	target[dst[len(dst)-1]] = value
}

func descend(data map[string]any, parts []string, create bool) map[string]any {
	current := data
	for _, part := range parts {
		next, ok := current[part].(map[string]any)
		if !ok {
			if !create {
				return nil
			}
			if _, exists := current[part]; exists {
				return nil
			}
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	return current
}

// copyMap deep-copies nested maps and lists so rules never modify
// caller-owned attributes.
func copyMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = copyValue(v)
	}
	return dst
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
