// Package logs reads the pipeline log file for the "followup logs" command.
//
// Last returns the final lines with bounded memory; Follow polls for lines
// appended afterwards until its context ends. Both accept a substring filter
// so a single run can be isolated by its run_id field.
package logs
