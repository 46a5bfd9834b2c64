package wire

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// DefaultMaxRequest bounds encoded request size when no explicit limit is
// configured. Matches the buffer the original launcher reads into, so larger
// requests would be cut mid-field on the receiving side.
const DefaultMaxRequest = 8192

// ErrRequestTooLarge reports that an encoded request would exceed the size
// limit. Nothing is sent in that case; truncating would silently drop
// trailing arguments.
var ErrRequestTooLarge = errors.New("request exceeds size limit")

// ErrEmptyRequest reports a zero-length message, which cannot carry even a
// working directory.
var ErrEmptyRequest = errors.New("empty request")

// maxSocketPath is the sun_path capacity minus the trailing NUL.
var maxSocketPath = len(unix.RawSockaddrUnix{}.Path) - 1

// Request is one launch invocation: the directory the worker should run in
// and the argument vector forwarded to it.
type Request struct {
	Dir  string
	Args []string
}

// Escape prefixes every backslash and space in s with a backslash. All other
// bytes pass through unchanged, so the result is safe to join with unescaped
// spaces.
func Escape(s string) string {
	if !strings.ContainsAny(s, "\\ ") {
		return s
	}
	return string(appendEscaped(make([]byte, 0, len(s)+8), s))
}

// Unescape applies the inverse rule: each backslash is removed and the byte
// following it passes through untouched. A trailing lone backslash is kept
// as-is.
func Unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		out = append(out, s[i])
	}
	return string(out)
}

func appendEscaped(dst []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' || c == ' ' {
			dst = append(dst, '\\')
		}
		dst = append(dst, c)
	}
	return dst
}

// Encode serializes req into one message: escaped dir, then a space and the
// escaped argument for each argument. A limit of zero or less applies
// DefaultMaxRequest. Oversized requests return ErrRequestTooLarge.
func Encode(req Request, limit int) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxRequest
	}
	buf := appendEscaped(make([]byte, 0, 256), req.Dir)
	for _, arg := range req.Args {
		buf = append(buf, ' ')
		buf = appendEscaped(buf, arg)
	}
	if len(buf) > limit {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrRequestTooLarge, len(buf), limit)
	}
	return buf, nil
}

// Decode parses a raw message back into a Request. The first field is the
// working directory; the rest are arguments.
func Decode(data []byte) (Request, error) {
	if len(data) == 0 {
		return Request{}, ErrEmptyRequest
	}
	fields := SplitFields(string(data))
	req := Request{Dir: Unescape(fields[0])}
	if len(fields) > 1 {
		req.Args = make([]string, 0, len(fields)-1)
		for _, field := range fields[1:] {
			req.Args = append(req.Args, Unescape(field))
		}
	}
	return req, nil
}

// SplitFields splits a message on unescaped spaces and returns the fields
// still in escaped form. Escape state is tracked byte by byte, so a field
// ending in an escaped backslash does not swallow the separator after it.
func SplitFields(s string) []string {
	fields := make([]string, 0, 8)
	start := 0
	escaped := false
	for i := 0; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case s[i] == ' ':
			fields = append(fields, s[start:i])
			start = i + 1
		}
	}
	return append(fields, s[start:])
}

// ValidateSocketPath rejects endpoints that cannot be represented in a Unix
// socket address. Kernel behavior for overlong paths is truncation or EINVAL
// depending on platform; both are worse than a clear error up front.
func ValidateSocketPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("socket path is empty")
	}
	if len(path) > maxSocketPath {
		return fmt.Errorf("socket path is %d bytes, exceeds the %d byte sockaddr limit: %s", len(path), maxSocketPath, path)
	}
	return nil
}
