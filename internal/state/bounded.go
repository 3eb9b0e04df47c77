package state

import "slices"

// appendBounded appends id when absent and evicts from the front until the
// slice fits limit.
func appendBounded(ids []string, id string, limit int) []string {
	ids = appendUnique(ids, id)
	if limit > 0 && len(ids) > limit {
		ids = append([]string(nil), ids[len(ids)-limit:]...)
	}
	return ids
}

func appendUnique(ids []string, id string) []string {
	if id == "" || contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func contains(ids []string, id string) bool {
	return slices.Contains(ids, id)
}

func remove(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(candidate string) bool { return candidate == id })
}
