package strand

import (
	"github.com/emove/strand/log"
	"golang.org/x/sys/unix"
)

// halfCloseState shuts down the write side of the socket after the TLS
// layer finished and drains the read side until the peer hangs up.
type halfCloseState struct {
	extState
}

var _ state = (*halfCloseState)(nil)

func newHalfClose(c *Connection, fd int) *halfCloseState {
	h := &halfCloseState{extState: extState{conn: c, fd: fd}}
	_ = unix.Shutdown(fd, unix.SHUT_WR)
	h.watch(Readable)
	return h
}

func (h *halfCloseState) process(m monitor, fd int, flags Interest) state {
	if fd != h.fd {
		return h
	}
	buf := make([]byte, 512)
	for {
		n, err := unix.Read(h.fd, buf)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return h
		case err != nil || n == 0:
			// peer hung up (or gave up), the socket is spent
			return h.finish(m)
		default:
			// discard whatever trickles in after our half-close
		}
	}
}

func (h *halfCloseState) finish(m monitor) state {
	log.Debugf("connection %s: closed", h.conn.id)
	h.close()
	if !h.conn.notifyClosed(m, nil) {
		return nil
	}
	return newClosed(h.conn)
}

func (h *halfCloseState) send(p []byte) {}

func (h *halfCloseState) flush(m monitor) state {
	buf := make([]byte, 512)
	for {
		n, err := unix.Read(h.fd, buf)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			if werr := h.conn.wait(h.fd, Readable); werr != nil {
				return h.finish(m)
			}
		case err != nil || n == 0:
			return h.finish(m)
		default:
		}
	}
}

func (h *halfCloseState) stop(m monitor) state {
	return h
}

func (h *halfCloseState) abort(m monitor) state {
	h.close()
	if !h.conn.notifyClosed(m, nil) {
		return nil
	}
	return newClosed(h.conn)
}

func (h *halfCloseState) teardown() {
	if h.fd >= 0 {
		_ = unix.Close(h.fd)
		h.fd = -1
	}
}

func (h *halfCloseState) queued() int {
	return 0
}

func (h *halfCloseState) phase() Phase {
	return PhaseShutdown
}
