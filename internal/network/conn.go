package network

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// State describes where an engine connection is in its lifecycle. A connection moves
// Connecting -> Ready, alternates Ready <-> InUse while it serves commands, and ends in
// Disconnected after any I/O failure or close. Disconnected is terminal: a connection is never
// resurrected in place.
type State int32

const (
	// Disconnected connections are closed and must not be reused.
	Disconnected State = iota
	// Connecting connections have been dialed but not yet admitted to the pool.
	Connecting
	// Ready connections are idle in the pool.
	Ready
	// InUse connections are checked out by exactly one caller.
	InUse
)

// String returns a lower-case name for the state.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	case InUse:
		return "in_use"
	default:
		return "unknown"
	}
}

// LineConn is an abstraction over a stream net.Conn for a line-oriented protocol. It buffers
// reads so that lines may be consumed one at a time, and applies a fresh read deadline to every
// line and a fresh write deadline to every write.
type LineConn struct {
	readTimeout  time.Duration
	writeTimeout time.Duration
	reader       *bufio.Reader
	state        atomic.Int32

	net.Conn
}

// NewLineConn wraps a freshly dialed net.Conn. The connection starts in the Connecting state; the
// pool promotes it once it is admitted.
func NewLineConn(conn net.Conn, readTimeout time.Duration, writeTimeout time.Duration) *LineConn {
	c := &LineConn{
		Conn:         conn,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		reader:       bufio.NewReader(conn),
	}
	c.setState(Connecting)

	return c
}

// ReadLine reads a single line, without its trailing CR/LF, from the connection. A final line
// that is terminated by end-of-stream rather than a newline is returned without error; the
// following call returns io.EOF.
func (c *LineConn) ReadLine() (string, error) {
	if c.readTimeout > 0 {
		if err := c.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return "", err
		}
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}

		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// WriteLine writes a single newline-terminated line to the connection.
func (c *LineConn) WriteLine(line string) error {
	payload := []byte(line + "\n")

	n, err := c.Write(payload)
	if err != nil {
		return err
	}

	if n != len(payload) {
		return fmt.Errorf("conn: short write: expected=%d actual=%d", len(payload), n)
	}

	return nil
}

// Read sets a read deadline followed by reading from the buffered connection.
func (c *LineConn) Read(buf []byte) (n int, err error) {
	if c.readTimeout > 0 {
		if err := c.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return 0, err
		}
	}

	return c.reader.Read(buf)
}

// Write sets a write deadline followed by writing to the backing connection.
func (c *LineConn) Write(buf []byte) (n int, err error) {
	if c.writeTimeout > 0 {
		if err := c.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return 0, err
		}
	}

	return c.Conn.Write(buf)
}

// Close closes the backing connection and marks it Disconnected.
func (c *LineConn) Close() error {
	c.setState(Disconnected)

	return c.Conn.Close()
}

// State reports the current lifecycle state of the connection.
func (c *LineConn) State() State {
	return State(c.state.Load())
}

func (c *LineConn) setState(state State) {
	c.state.Store(int32(state))
}

// IsTimeout reports whether an I/O error was caused by an expired deadline.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
