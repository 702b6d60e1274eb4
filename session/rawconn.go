package session

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/emove/strand/pkg/buffer"
	"golang.org/x/sys/unix"
)

// rawConn adapts a non-blocking descriptor to the net.Conn the engine
// reads and writes. Two conventions matter:
//
//   - an empty read on a live socket returns (0, nil), which the engine's
//     record layer classifies as would-block;
//   - writes never fail for lack of socket buffer space. Whatever the
//     kernel does not take is staged, and the staged byte count is the
//     session's want-write signal.
type rawConn struct {
	fd int

	// the engine may touch the connection from its own goroutines after
	// the handshake completes, so the staging queue is guarded
	mu     sync.Mutex
	staged *buffer.Buffer
}

var _ net.Conn = (*rawConn)(nil)

func newRawConn(fd int) *rawConn {
	return &rawConn{fd: fd, staged: buffer.New()}
}

func (c *rawConn) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(c.fd, p)
		switch err {
		case nil:
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, nil
		default:
			return 0, err
		}
	}
}

func (c *rawConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.staged.Drain(c.write); err != nil {
		return 0, err
	}
	if c.staged.Len() > 0 {
		// keep ordering: earlier bytes are still waiting for the socket
		c.staged.Add(p)
		return len(p), nil
	}
	n, err := c.write(p)
	if err != nil {
		return n, err
	}
	if n < len(p) {
		c.staged.Add(p[n:])
	}
	return len(p), nil
}

// flush pushes staged bytes to the socket until it is drained or the
// socket stops taking them.
func (c *rawConn) flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.staged.Drain(c.write)
}

// pending returns the number of engine output bytes not yet on the wire.
func (c *rawConn) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.staged.Len()
}

func (c *rawConn) write(p []byte) (int, error) {
	for {
		n, err := unix.Write(c.fd, p)
		switch err {
		case nil:
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, nil
		default:
			return 0, err
		}
	}
}

// Close is a no-op: the descriptor is owned by the connection state.
func (c *rawConn) Close() error                       { return nil }
func (c *rawConn) LocalAddr() net.Addr                { return nil }
func (c *rawConn) RemoteAddr() net.Addr               { return nil }
func (c *rawConn) SetDeadline(t time.Time) error      { return nil }
func (c *rawConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *rawConn) SetWriteDeadline(t time.Time) error { return nil }
