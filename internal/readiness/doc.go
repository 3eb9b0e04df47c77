// Package readiness waits for the notes provider to finish producing a
// meeting's content and validates it before drafting.
//
// Poller runs a bounded number of attempts separated by a fixed interval,
// tracking elapsed wait explicitly so tests drive it with a fake Clock. After
// the loop runs out it makes exactly one final attempt. Content that never
// reaches the minimum length yields ErrNotReady; a transcript that cannot be
// attributed to speakers yields ErrContentUnusable. Neither ever returns
// partial content.
package readiness
