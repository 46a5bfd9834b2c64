// Package launcher accepts launch requests on a Unix domain socket and runs
// the configured worker command for each one.
//
// A fixed pool of accept workers shares one listener. Each connection carries
// a single escaped request: the caller's working directory followed by the
// arguments to forward. The launcher validates that the request names a
// module (-m), executes the worker command in the caller's directory, and
// streams combined output back over the same connection. A client that goes
// away mid-run gets its run canceled.
package launcher
