// Package state persists which meetings have been handled and which are
// waiting for another attempt.
//
// The store keeps two bounded, insertion-ordered identifier sets in a single
// JSON file. Every mutating call reads the file, applies the change and writes
// it back atomically; nothing is cached between calls. The store has no locking
// of its own and relies on the run lock to keep writers exclusive.
package state
