package strand

import (
	"io"

	"github.com/emove/strand/log"
	"github.com/emove/strand/pkg/buffer"
	"github.com/emove/strand/session"
	"golang.org/x/sys/unix"
)

// connectedState carries application traffic once the handshake
// succeeded and the peer was authorized. Bytes staged during earlier
// states were moved in and leave first, in order. Framing of the payload
// is the integrator's business; inbound bytes are handed to the OnData
// hook as they decrypt.
type connectedState struct {
	extState
	sess session.Session
	out  *buffer.Buffer
}

var _ state = (*connectedState)(nil)

func newConnected(c *Connection, fd int, sess session.Session, out *buffer.Buffer) *connectedState {
	s := &connectedState{
		extState: extState{conn: c, fd: fd},
		sess:     sess,
		out:      out,
	}
	interest := Readable
	if out.Len() > 0 {
		interest |= Writable
	}
	s.watch(interest)
	return s
}

func (s *connectedState) process(m monitor, fd int, flags Interest) state {
	if fd != s.fd {
		return s
	}
	if flags&Writable != 0 {
		if next, ok := s.drain(m); !ok {
			return next
		}
	}
	if flags&Readable != 0 {
		buf := make([]byte, 4096)
	reading:
		for {
			n, err := s.sess.Read(buf)
			if n > 0 && s.conn.ops.onData != nil {
				s.conn.bytesIn.Add(int64(n))
				s.conn.ops.onData(s.conn, buf[:n])
				if !m.valid() {
					return nil
				}
			}
			switch err {
			case nil:
			case session.ErrWouldBlock:
				break reading
			case io.EOF:
				// the peer started an orderly close, answer in kind
				return s.stop(m)
			default:
				return s.fail(m, err)
			}
		}
	}
	s.rewatch()
	return s
}

// drain pushes staged bytes toward the socket. Returns the successor
// state and false when the connection failed or was destroyed.
func (s *connectedState) drain(m monitor) (state, bool) {
	if v := s.sess.Pump(); v == session.Failed {
		return s.fail(m, s.sess.Err()), false
	}
	err := s.out.Drain(func(p []byte) (int, error) {
		n, werr := s.sess.Write(p)
		if werr == session.ErrWouldBlock {
			// a short write keeps the tail staged
			return n, nil
		}
		return n, werr
	})
	if err != nil {
		return s.fail(m, err), false
	}
	return nil, true
}

// rewatch lines the registered interest up with what is pending.
func (s *connectedState) rewatch() {
	interest := Readable
	if s.out.Len() > 0 || s.sess.Pump() == session.WantWrite {
		interest |= Writable
	}
	s.watch(interest)
}

func (s *connectedState) send(p []byte) {
	if s.fd < 0 || len(p) == 0 {
		return
	}
	s.conn.bytesOut.Add(int64(len(p)))
	if s.out.Len() == 0 {
		n, err := s.sess.Write(p)
		if err != nil && err != session.ErrWouldBlock {
			log.Errorf("connection %s: send failed: %v", s.conn.id, err)
			return
		}
		p = p[n:]
		if len(p) == 0 {
			s.rewatch()
			return
		}
	}
	s.out.Add(p)
	s.rewatch()
}

func (s *connectedState) flush(m monitor) state {
	for {
		next, ok := s.drain(m)
		if !ok {
			return next
		}
		if s.out.Len() == 0 && s.sess.Pump() != session.WantWrite {
			return s
		}
		if err := s.conn.wait(s.fd, Writable); err != nil {
			return s.fail(m, err)
		}
	}
}

// stop hands the descriptor and session over to the close-notify
// exchange.
func (s *connectedState) stop(m monitor) state {
	if next, ok := s.drain(m); !ok {
		return next
	}
	log.Debugf("connection %s: closing", s.conn.id)
	return newShutdown(s.conn, s.release(), s.sess)
}

func (s *connectedState) fail(m monitor, err error) state {
	log.Errorf("connection %s: connection lost: %v", s.conn.id, err)
	s.close()
	_ = s.sess.Close()
	if !s.conn.notifyClosed(m, err) {
		return nil
	}
	return newClosed(s.conn)
}

func (s *connectedState) abort(m monitor) state {
	s.close()
	_ = s.sess.Close()
	if !s.conn.notifyClosed(m, nil) {
		return nil
	}
	return newClosed(s.conn)
}

func (s *connectedState) teardown() {
	_ = s.sess.Close()
	if s.fd >= 0 {
		_ = unix.Close(s.fd)
		s.fd = -1
	}
}

func (s *connectedState) queued() int {
	return s.out.Len()
}

func (s *connectedState) phase() Phase {
	return PhaseConnected
}
