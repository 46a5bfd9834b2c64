// Package relay implements the client side of the launch protocol: one
// connection, one encoded request, then a verbatim copy of the response
// stream until the launcher closes the connection.
//
// It owns connection lifetime (the socket is closed exactly once on every
// path), the full-write send loop, and the bounded-chunk relay loop. Bytes
// are forwarded untouched; the response may contain NULs or partial lines
// and is never interpreted here.
//
// Callers map failures to exit codes by call site: dialing, sending, and
// relaying are separate methods so the phase of a failure is always known.
package relay
