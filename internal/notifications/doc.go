// Package notifications delivers pipeline events via pluggable notifiers.
//
// NewService combines a desktop transport (osascript on macOS, notify-send
// elsewhere) with an optional ntfy topic from config.toml, and degrades to a
// no-op when both are disabled. Per-event toggles silence each kind of notice
// independently.
//
// Callers treat Publish as fire-and-forget: they log a returned error and move
// on. All workflow code depends only on the small Service interface.
package notifications
