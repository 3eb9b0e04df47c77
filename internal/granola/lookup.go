package granola

import "strings"

// lookup walks nested objects by key. A missing key, an explicit null, or a
// non-object intermediate all resolve to (nil, false).
func lookup(node any, keys ...string) (any, bool) {
	current := node
	for _, key := range keys {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, exists := obj[key]
		if !exists || next == nil {
			return nil, false
		}
		current = next
	}
	if current == nil {
		return nil, false
	}
	return current, true
}

func lookupString(node any, keys ...string) string {
	value, ok := lookup(node, keys...)
	if !ok {
		return ""
	}
	s, _ := value.(string)
	return strings.TrimSpace(s)
}

func lookupBool(node any, keys ...string) bool {
	value, ok := lookup(node, keys...)
	if !ok {
		return false
	}
	b, _ := value.(bool)
	return b
}

func lookupSlice(node any, keys ...string) []any {
	value, ok := lookup(node, keys...)
	if !ok {
		return nil
	}
	items, _ := value.([]any)
	return items
}
