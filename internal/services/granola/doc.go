// Package granola talks to the notes provider's HTTP API: it fetches
// AI-generated note panels and transcripts for a meeting and keeps the
// locally stored access token valid.
//
// Responses may arrive gzip-compressed regardless of the Content-Encoding
// header, so bodies are sniffed before decoding. Every request is a single
// attempt; the readiness poller owns retry policy.
package granola
