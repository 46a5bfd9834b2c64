// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns control socket lifecycle management and the request/response DTOs
// for status, history, and shutdown. The control socket lives next to the
// launch socket (launch path plus ".ctl") so one configured path addresses
// both planes.
//
// Reuse these types when adding new RPC endpoints to keep the protocol stable
// and compatible with existing command implementations.
package ipc
