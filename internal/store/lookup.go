package store

import (
	"strconv"
	"strings"
)

// Get resolves a dotted path and returns def when any segment is missing or
// the path descends into a value that has no children.
func (s *Store) Get(path string, def any) any {
	if value, ok := s.Lookup(path); ok {
		return value
	}
	return def
}

// Lookup resolves a dotted path. The first segment selects the logical name;
// the rest navigate maps by key and sequences by decimal index. Composite
// results are copies, so callers cannot modify the store.
func (s *Store) Lookup(path string) (any, bool) {
	st := s.state.Load()
	if st == nil {
		return nil, false
	}

	segments := strings.Split(path, ".")
	current, ok := st.table[segments[0]]
	if !ok {
		return nil, false
	}
	for _, segment := range segments[1:] {
		if current, ok = child(current, segment); !ok {
			return nil, false
		}
	}
	return deepCopy(current), true
}

func child(value any, segment string) (any, bool) {
	switch v := value.(type) {
	case map[string]any:
		item, ok := v[segment]
		return item, ok
	case []any:
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 || idx >= len(v) || strconv.Itoa(idx) != segment {
			return nil, false
		}
		return v[idx], true
	default:
		return nil, false
	}
}

func deepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = deepCopy(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = deepCopy(item)
		}
		return out
	default:
		return value
	}
}
