// Package preflight provides readiness checks for the files, credentials and
// services followup depends on.
//
// The CLI "followup doctor" command runs RunAll and renders each Result. The
// checks never mutate state: token files are read but not refreshed, and the
// LLM check is a single un-retried request.
//
// Each check is gated by its config toggle; disabled features report as
// passed with a "Disabled" detail.
package preflight
