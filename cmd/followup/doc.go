// Package main hosts the followup CLI entrypoint and command graph.
//
// "followup run" is the trigger entry point: a file watcher, launchd agent or
// cron job invokes it whenever the notes app may have finished a meeting, and
// the run lock turns overlapping triggers into no-ops. "followup watch" is a
// self-contained alternative that watches the cache directory itself. The
// remaining commands inspect state, history and configuration.
//
// Keep this package lean: behaviour lives in the internal packages and is
// surfaced here through commands and flags.
package main
