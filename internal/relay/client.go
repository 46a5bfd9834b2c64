package relay

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"trebuchet/internal/wire"
)

// DefaultDialTimeout bounds connection establishment. Unix socket connects
// resolve immediately when a listener exists; the timeout guards against a
// daemon with a saturated accept backlog.
const DefaultDialTimeout = 2 * time.Second

// chunkSize is the relay read granularity. Bytes are forwarded as soon as a
// chunk arrives, so the value only bounds per-read memory, not latency.
const chunkSize = 1024

// Client is a single-shot connection to the launcher daemon.
type Client struct {
	conn      net.Conn
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to the launch socket at path using DefaultDialTimeout.
func Dial(path string) (*Client, error) {
	return DialTimeout(path, DefaultDialTimeout)
}

// DialTimeout validates the socket path and connects synchronously. There is
// no retry; an absent daemon is a caller-visible condition, not a transient.
func DialTimeout(path string, timeout time.Duration) (*Client, error) {
	if err := wire.ValidateSocketPath(path); err != nil {
		return nil, err
	}
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial unix socket: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Send writes the encoded request, looping until every byte is on the wire.
// A write that reports progress of zero without an error is treated as a
// failure rather than risking a silent partial request.
func (c *Client) Send(msg []byte) error {
	for len(msg) > 0 {
		n, err := c.conn.Write(msg)
		if err != nil {
			return fmt.Errorf("send request: %w", err)
		}
		if n <= 0 {
			return errors.New("send request: connection accepted no bytes")
		}
		msg = msg[n:]
	}
	return nil
}

// Relay copies the response stream to out in bounded chunks until the peer
// closes the connection. It returns the number of bytes forwarded. A socket
// read failure and an output write failure surface as distinct errors; a
// clean close returns nil.
func (c *Client) Relay(out io.Writer) (int64, error) {
	buf := make([]byte, chunkSize)
	var total int64
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			written, werr := out.Write(buf[:n])
			total += int64(written)
			if werr != nil {
				return total, fmt.Errorf("write output: %w", werr)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return total, nil
			}
			return total, fmt.Errorf("read response: %w", err)
		}
	}
}

// Close releases the connection. Safe to call on every exit path; only the
// first call touches the socket.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// Run performs one full exchange against the launcher at path: encode req,
// connect, send, and relay the response to out. The connection is closed
// before returning on every path.
func Run(path string, req wire.Request, limit int, out io.Writer) error {
	msg, err := wire.Encode(req, limit)
	if err != nil {
		return err
	}
	client, err := Dial(path)
	if err != nil {
		return err
	}
	defer client.Close()
	if err := client.Send(msg); err != nil {
		return err
	}
	if _, err := client.Relay(out); err != nil {
		return err
	}
	return nil
}
