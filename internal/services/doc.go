// Package services defines shared utilities consumed by the pipeline and its
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run and meeting identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can tell an
//     expired credential from a transient outage with errors.Is.
//
// The concrete integrations live in subpackages (granola, llm, gmail).
package services
