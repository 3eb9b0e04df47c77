// Package content turns provider payloads into the plain text handed to the
// draft model: structured note panels become markdown-ish text and raw
// transcript segments become speaker-attributed turns.
package content
