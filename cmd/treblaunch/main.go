// Command treblaunch is the minimal launch client: it forwards its arguments
// to a trebuchet daemon over a Unix stream socket and relays the response to
// stdout, byte for byte, until the daemon closes the connection.
//
// Usage:
//
//	treblaunch <socket> -m <module> [args...]
//
// The caller's working directory is prepended to the request so the daemon
// runs the module from the right location. Requests larger than the 8 KiB
// wire cap are rejected before connecting rather than silently truncated.
//
// Exit codes:
//
//	0  response relayed to completion
//	1  connecting to the socket or sending the request failed
//	2  request could not be built: bad invocation, oversized request, or
//	   unusable socket path
//	3  the response stream broke before the daemon closed it
package main

import (
	"fmt"
	"io"
	"os"

	"trebuchet/internal/relay"
	"trebuchet/internal/wire"
)

const (
	exitOK      = 0
	exitSend    = 1
	exitUsage   = 2
	exitReceive = 3
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 3 {
		prog := "treblaunch"
		if len(args) > 0 && args[0] != "" {
			prog = args[0]
		}
		fmt.Fprintf(stdout, "Example usage:\n\n\t%s sockfile -m sb.noop --flags flag\n", prog)
		return exitUsage
	}

	socketPath := args[1]
	if err := wire.ValidateSocketPath(socketPath); err != nil {
		fmt.Fprintf(stderr, "treblaunch: %v\n", err)
		return exitUsage
	}

	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "treblaunch: determine working directory: %v\n", err)
		return exitUsage
	}

	msg, err := wire.Encode(wire.Request{Dir: dir, Args: args[2:]}, 0)
	if err != nil {
		fmt.Fprintf(stderr, "treblaunch: %v\n", err)
		return exitUsage
	}

	client, err := relay.Dial(socketPath)
	if err != nil {
		fmt.Fprintf(stderr, "treblaunch: %v\n", err)
		return exitSend
	}
	defer client.Close()

	if err := client.Send(msg); err != nil {
		fmt.Fprintf(stderr, "treblaunch: %v\n", err)
		return exitSend
	}

	if _, err := client.Relay(stdout); err != nil {
		fmt.Fprintf(stderr, "treblaunch: %v\n", err)
		return exitReceive
	}
	return exitOK
}
