package strand

import (
	"github.com/emove/strand/log"
	"github.com/emove/strand/pkg/buffer"
	"github.com/emove/strand/session"
	"golang.org/x/sys/unix"
)

// handshakeState drives the asynchronous TLS client handshake on a
// descriptor that is already connected at the TCP level. Application
// bytes sent while the handshake is pending are buffered and move into
// the connected state untouched.
type handshakeState struct {
	extState
	sess session.Session
	out  *buffer.Buffer
}

var _ state = (*handshakeState)(nil)

// newHandshake binds the crypto session to fd. Binding failure is
// reported before the state becomes live; the descriptor then stays with
// the caller. out may carry bytes staged by a predecessor state.
func newHandshake(c *Connection, fd int, out *buffer.Buffer) (*handshakeState, error) {
	sess, err := c.ops.engine(fd, c.host)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = buffer.New()
	}
	h := &handshakeState{
		extState: extState{conn: c, fd: fd},
		sess:     sess,
		out:      out,
	}
	// wait until the socket becomes writable before starting the handshake
	h.watch(Writable)
	return h, nil
}

func (h *handshakeState) process(m monitor, fd int, flags Interest) state {
	// must be the socket
	if fd != h.fd {
		return h
	}
	switch h.sess.Handshake() {
	case session.Done:
		return h.secured(m)
	case session.WantRead:
		return h.proceed(Readable)
	case session.WantWrite:
		return h.proceed(Readable | Writable)
	default:
		return h.fail(m)
	}
}

// secured asks the integrator whether the negotiated peer is acceptable
// and moves to the matching successor. The callback may destroy the
// connection, hence the monitor check before anything else is touched.
func (h *handshakeState) secured(m monitor) state {
	allowed := h.conn.loop.Authorize(h.conn, h.sess)
	if !m.valid() {
		return nil
	}
	if allowed {
		log.Debugf("connection %s: handshake complete, authorized", h.conn.id)
		return newConnected(h.conn, h.release(), h.sess, h.out)
	}
	log.Warnf("connection %s: peer rejected by authorization", h.conn.id)
	return newShutdown(h.conn, h.release(), h.sess)
}

// fail closes the descriptor and moves to the terminal state.
func (h *handshakeState) fail(m monitor) state {
	err := h.sess.Err()
	log.Errorf("connection %s: handshake failed: %v", h.conn.id, err)
	h.close()
	_ = h.sess.Close()
	if !h.conn.notifyClosed(m, err) {
		return nil
	}
	return newClosed(h.conn)
}

// proceed re-registers interest and stays in this state.
func (h *handshakeState) proceed(interest Interest) state {
	h.watch(interest)
	return h
}

// send buffers outgoing data until the handshake completed.
func (h *handshakeState) send(p []byte) {
	h.conn.bytesOut.Add(int64(len(p)))
	h.out.Add(p)
}

func (h *handshakeState) flush(m monitor) state {
	for {
		switch h.sess.Handshake() {
		case session.Done:
			return h.secured(m)
		case session.WantRead:
			if err := h.conn.wait(h.fd, Readable); err != nil {
				return h.fail(m)
			}
		case session.WantWrite:
			if err := h.conn.wait(h.fd, Readable|Writable); err != nil {
				return h.fail(m)
			}
		default:
			return h.fail(m)
		}
	}
}

func (h *handshakeState) stop(m monitor) state {
	return h.abort(m)
}

// abort closes the descriptor, bypassing any further handshake attempts.
func (h *handshakeState) abort(m monitor) state {
	h.close()
	_ = h.sess.Close()
	if !h.conn.notifyClosed(m, nil) {
		return nil
	}
	return newClosed(h.conn)
}

// teardown covers destruction without an explicit transition.
func (h *handshakeState) teardown() {
	_ = h.sess.Close()
	if h.fd >= 0 {
		_ = unix.Close(h.fd)
		h.fd = -1
	}
}

func (h *handshakeState) queued() int {
	return h.out.Len()
}

func (h *handshakeState) phase() Phase {
	return PhaseHandshake
}
