// Package logging assembles the structured slog loggers shared by the
// launcher daemon and the CLI.
//
// It owns the console and JSON handlers, level and output plumbing, log file
// retention, and the attribute helpers that keep field names consistent
// across components. A no-op logger is provided for tests and for wiring
// code that must not fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits lines with the same shape. The relay client's own stdout/stderr are
// protocol surfaces and never route through here.
package logging
