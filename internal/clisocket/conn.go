package clisocket

import (
	"bufio"
	"fmt"
	"net"

	"github.com/huegli/atticd/internal/cliproto"
)

// LineConn is a Unix-domain stream connection framed into CLI protocol
// lines: each message ends with a single '\n', and any line longer than
// cliproto.MaxLineLength is discarded rather than delivered (spec §4.5
// "Framing").
type LineConn struct {
	conn net.Conn
	r    *bufio.Reader
}

// NewLineConn wraps an already-established Unix socket connection.
func NewLineConn(conn net.Conn) *LineConn {
	return &LineConn{conn: conn, r: bufio.NewReaderSize(conn, cliproto.MaxLineLength+1)}
}

// Dial connects to the Unix socket at path.
func Dial(path string) (*LineConn, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("clisocket: dial %s: %w", path, err)
	}

	return NewLineConn(conn), nil
}

// Listen opens a Unix socket at path for a server. The file's permissions
// are whatever the process umask leaves after bind(2), matching spec §6
// "Permissions match the server's umask; no OS-level authentication."
func Listen(path string) (net.Listener, error) {
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("clisocket: listen %s: %w", path, err)
	}

	return ln, nil
}

// ReadLine reads one frame, stripping its trailing '\n'. A line exceeding
// MaxLineLength is discarded without buffering the overflow, and ReadLine
// resumes at the next '\n'-terminated line, per spec §4.5.
func (c *LineConn) ReadLine() (string, error) {
	for {
		buf := make([]byte, 0, 256)
		overflow := false

		for {
			b, err := c.r.ReadByte()
			if err != nil {
				return "", err
			}

			if b == '\n' {
				break
			}

			if len(buf) < cliproto.MaxLineLength {
				buf = append(buf, b)
			} else {
				overflow = true
			}
		}

		if overflow {
			continue
		}

		return string(buf), nil
	}
}

// WriteLine writes one frame, appending '\n'.
func (c *LineConn) WriteLine(line string) error {
	_, err := c.conn.Write([]byte(line + "\n"))

	return err
}

// Close closes the underlying connection.
func (c *LineConn) Close() error {
	return c.conn.Close()
}
