// Package workflow runs one pipeline invocation end to end.
//
// A Runner takes the run lock, waits for the notes cache to settle, reads the
// cache snapshot, obtains a provider token, and then walks the eligible
// meetings newest first. Each meeting ends in exactly one of success,
// skipped, deferred, or failed; a meeting's failure never aborts the batch.
//
// Environmental problems (lock held, cache unreadable, auth unavailable) end
// the run early without touching state and are reported through
// Summary.Outcome rather than as errors. Run returns an error only when the
// lock itself cannot be operated or the context is cancelled.
//
// Every collaborator is an interface declared here so tests can drive the
// full state machine with fakes; NewRunnerFromConfig wires the concrete
// implementations.
package workflow
