// Package main hosts the trebuchet CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into launch
// requests against the daemon's Unix socket, control-plane RPC calls for
// lifecycle and history inspection, and configuration scaffolding. It
// centralizes configuration resolution and socket discovery so subcommands
// can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
