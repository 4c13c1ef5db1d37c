// Package store holds the in-process repositories for predictions,
// alerts, rules and notification state. Each store is a mutex-guarded
// map with the manual indices the engine's invariants depend on; the
// check-then-insert paths are atomic within a store's lock.
package store

// Paginate returns the zero-based (page, size) window over items.
// page*size is the start offset, truncated at the slice length.
func Paginate[T any](items []T, page, size int) []T {
	if page < 0 || size <= 0 {
		return items
	}
	start := page * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
