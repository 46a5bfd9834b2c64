// Package logs reads the daemon log file incrementally for the CLI logs
// command.
//
// The daemon appends to a single pointer file, so tailing reduces to offset
// bookkeeping: callers pass the offset returned by the previous call and
// receive the complete lines written since, either immediately or after a
// bounded wait in follow mode. A negative offset requests the last N lines.
// Callers supply context deadlines so follow polling shuts down cleanly when
// the CLI exits.
package logs
