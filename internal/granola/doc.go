// Package granola reads the notes app's local cache file and normalizes it
// into typed meeting documents.
//
// The vendor controls the cache layout and has changed it between releases:
// the file name carries a schema version, the payload may be wrapped in a
// JSON-encoded string, and the meeting state may sit under a "state" key or at
// the top level. Reader hides all of that behind Snapshot. Shape detection is
// an ordered chain of EnvelopeDecoder values so new layouts can be added
// without touching callers.
package granola
