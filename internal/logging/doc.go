// Package logging assembles structured slog loggers and formatting helpers used
// across followup.
//
// It owns the configurable console/JSON handlers, fans output to stdout and the
// log file in the state directory, and exposes context-aware helpers so
// pipeline code automatically tags log lines with run and meeting identifiers.
// The package also provides a no-op logger for tests and wiring code that
// cannot fail.
package logging
