// Package daemon coordinates the long-running trebuchet process.
//
// It wires configuration, the run history store, and the launcher into a
// single lifecycle with flock-based locking to prevent multiple instances.
// The daemon exposes status snapshots and history access for the control
// plane.
//
// Keep orchestration logic here: request handling lives in the launcher while
// the daemon focuses on startup, shutdown, and high level coordination.
package daemon
