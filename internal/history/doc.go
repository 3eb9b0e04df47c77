// Package history keeps a SQLite ledger of pipeline runs and the outcome of
// every meeting each run touched.
//
// The ledger is diagnostic only: processed and deferred bookkeeping lives in
// the JSON state file, and a missing or broken history database never blocks
// a run. Schema changes ship as embedded migrations applied on Open.
package history
