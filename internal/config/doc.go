// Package config loads, validates, and normalizes trebuchet's TOML
// configuration.
//
// It owns the search order for config files, tilde and environment
// expansion, per-section defaults, and the derived filesystem locations
// (launch socket, control socket, history database, lock and pid files)
// that the daemon and CLI must agree on. A commented sample config is
// embedded and written by `trebuchet config init`.
//
// Keep derivations here rather than recomputing paths in callers; the CLI,
// daemon, and tests all resolve locations through this package so a single
// config value moves everything together.
package config
