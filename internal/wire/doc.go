// Package wire implements the flat launch protocol spoken between relay
// clients and the launcher daemon.
//
// A request is a single escaped string: the caller's working directory, then
// each argument, joined by unescaped spaces. Backslash and space are the only
// escaped characters, each prefixed with one backslash. The stream carries no
// length prefix or terminator, so encoded requests are bounded by an explicit
// size limit. The response direction is opaque bytes and never touches this
// package.
//
// Client and daemon must not drift: encode with Encode, parse with Decode,
// and validate socket paths with ValidateSocketPath before dialing or
// listening. The format is a fixed compatibility contract; extending it means
// breaking every deployed peer.
package wire
