package relay_test

import (
	"bytes"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"

	"trebuchet/internal/relay"
	"trebuchet/internal/wire"
)

// startPeer runs fn for the first connection accepted on a fresh socket and
// returns the socket path.
func startPeer(t *testing.T, fn func(conn net.Conn)) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "launch.sock")
	listener, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		fn(conn)
	}()
	return path
}

func TestSendAndRelayRoundTrip(t *testing.T) {
	req := wire.Request{Dir: "/data/my corpus", Args: []string{"-m", "sb.noop", "--flags", "flag"}}
	msg, err := wire.Encode(req, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	received := make(chan []byte, 1)
	response := []byte("module output\nwith a second line\n")
	path := startPeer(t, func(conn net.Conn) {
		buf := make([]byte, wire.DefaultMaxRequest)
		n, err := conn.Read(buf)
		if err != nil {
			received <- nil
			return
		}
		received <- append([]byte(nil), buf[:n]...)
		if _, err := conn.Write(response); err != nil {
			t.Errorf("peer write: %v", err)
		}
	})

	client, err := relay.Dial(path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if err := client.Send(msg); err != nil {
		t.Fatalf("send: %v", err)
	}

	var out bytes.Buffer
	n, err := client.Relay(&out)
	if err != nil {
		t.Fatalf("relay: %v", err)
	}
	if n != int64(len(response)) {
		t.Fatalf("relayed %d bytes, want %d", n, len(response))
	}
	if !bytes.Equal(out.Bytes(), response) {
		t.Fatalf("output %q, want %q", out.Bytes(), response)
	}
	if got := <-received; !bytes.Equal(got, msg) {
		t.Fatalf("peer received %q, want %q", got, msg)
	}
}

func TestRelayForwardsBytesExactlyAcrossChunking(t *testing.T) {
	// Response larger than the relay chunk, including NUL and high bytes,
	// delivered in awkward segment sizes.
	payload := make([]byte, 5000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	path := startPeer(t, func(conn net.Conn) {
		buf := make([]byte, wire.DefaultMaxRequest)
		if _, err := conn.Read(buf); err != nil {
			return
		}
		for _, size := range []int{1, 7, 1023, 1024, 1025} {
			if _, err := conn.Write(payload[:size]); err != nil {
				return
			}
			payload = payload[size:]
		}
		if _, err := conn.Write(payload); err != nil {
			return
		}
	})

	client, err := relay.Dial(path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if err := client.Send([]byte("/tmp -m sb.noop")); err != nil {
		t.Fatalf("send: %v", err)
	}
	var out bytes.Buffer
	if _, err := client.Relay(&out); err != nil {
		t.Fatalf("relay: %v", err)
	}

	want := make([]byte, 5000)
	for i := range want {
		want[i] = byte(i % 251)
	}
	if !bytes.Equal(out.Bytes(), want) {
		t.Fatalf("relayed bytes diverge at %d", firstDiff(out.Bytes(), want))
	}
}

func firstDiff(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return min(len(a), len(b))
}

func TestRelayCleanCloseReturnsNil(t *testing.T) {
	path := startPeer(t, func(conn net.Conn) {
		// Close without writing anything.
	})

	client, err := relay.Dial(path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	var out bytes.Buffer
	n, err := client.Relay(&out)
	if err != nil {
		t.Fatalf("relay after clean close: %v", err)
	}
	if n != 0 || out.Len() != 0 {
		t.Fatalf("expected empty relay, got %d bytes", out.Len())
	}
}

func TestDialMissingSocketFails(t *testing.T) {
	_, err := relay.Dial(filepath.Join(t.TempDir(), "missing.sock"))
	if err == nil {
		t.Fatal("expected dial error for missing socket")
	}
}

func TestDialRejectsOverlongPath(t *testing.T) {
	_, err := relay.Dial("/tmp/" + strings.Repeat("p", 200) + ".sock")
	if err == nil || !strings.Contains(err.Error(), "sockaddr") {
		t.Fatalf("expected sockaddr limit error, got %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("sink full") }

func TestRelayReportsOutputWriteFailure(t *testing.T) {
	path := startPeer(t, func(conn net.Conn) {
		if _, err := conn.Write([]byte("data")); err != nil {
			return
		}
	})

	client, err := relay.Dial(path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	_, err = client.Relay(failingWriter{})
	if err == nil || !strings.Contains(err.Error(), "write output") {
		t.Fatalf("expected output write error, got %v", err)
	}
}

func TestRunEndToEnd(t *testing.T) {
	response := []byte("ok\n")
	path := startPeer(t, func(conn net.Conn) {
		buf := make([]byte, wire.DefaultMaxRequest)
		if _, err := conn.Read(buf); err != nil {
			return
		}
		if _, err := conn.Write(response); err != nil {
			return
		}
	})

	var out bytes.Buffer
	err := relay.Run(path, wire.Request{Dir: "/tmp", Args: []string{"-m", "sb.noop"}}, 0, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !bytes.Equal(out.Bytes(), response) {
		t.Fatalf("output %q", out.Bytes())
	}
}
