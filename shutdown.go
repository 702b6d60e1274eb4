package strand

import (
	"github.com/emove/strand/log"
	"github.com/emove/strand/session"
	"golang.org/x/sys/unix"
)

// shutdownState performs the orderly close-notify exchange before the
// TCP-level half-close. Application bytes arriving here are dropped: the
// connection is past carrying them.
type shutdownState struct {
	extState
	sess session.Session
}

var _ state = (*shutdownState)(nil)

func newShutdown(c *Connection, fd int, sess session.Session) *shutdownState {
	s := &shutdownState{
		extState: extState{conn: c, fd: fd},
		sess:     sess,
	}
	// wait until the socket is accessible
	s.watch(Readable | Writable)
	return s
}

// step performs one shutdown step. A "no progress yet" result is
// repeated immediately, but only up to the configured bound; a
// misbehaving peer must not pin the loop thread here.
func (s *shutdownState) step() session.Verdict {
	v := s.sess.Shutdown()
	for i := 0; v == session.Again && i < s.conn.ops.shutdownRetries; i++ {
		v = s.sess.Shutdown()
	}
	return v
}

func (s *shutdownState) process(m monitor, fd int, flags Interest) state {
	if fd != s.fd {
		return s
	}
	switch s.step() {
	case session.WantRead:
		return s.proceed(Readable)
	case session.WantWrite, session.Again:
		return s.proceed(Readable | Writable)
	default:
		// completed or beyond repair, either way the TLS layer is done
		return s.next()
	}
}

// next moves on to the TCP half-close.
func (s *shutdownState) next() state {
	if err := s.sess.Err(); err != nil {
		log.Warnf("connection %s: close-notify exchange broke off: %v", s.conn.id, err)
	} else {
		log.Debugf("connection %s: close-notify exchange complete", s.conn.id)
	}
	_ = s.sess.Close()
	return newHalfClose(s.conn, s.release())
}

func (s *shutdownState) proceed(interest Interest) state {
	s.watch(interest)
	return s
}

func (s *shutdownState) send(p []byte) {}

func (s *shutdownState) flush(m monitor) state {
	for {
		switch s.step() {
		case session.WantRead:
			if err := s.conn.wait(s.fd, Readable); err != nil {
				return s.next()
			}
		case session.WantWrite, session.Again:
			if err := s.conn.wait(s.fd, Readable|Writable); err != nil {
				return s.next()
			}
		default:
			return s.next()
		}
	}
}

func (s *shutdownState) stop(m monitor) state {
	// already on the way down
	return s
}

// abort bypasses the graceful exchange. Cleanup may notify the
// integrator, which may destroy the connection, hence the re-check.
func (s *shutdownState) abort(m monitor) state {
	s.close()
	_ = s.sess.Close()
	if !s.conn.notifyClosed(m, nil) {
		return nil
	}
	return newClosed(s.conn)
}

func (s *shutdownState) teardown() {
	_ = s.sess.Close()
	if s.fd >= 0 {
		_ = unix.Close(s.fd)
		s.fd = -1
	}
}

func (s *shutdownState) queued() int {
	return 0
}

func (s *shutdownState) phase() Phase {
	return PhaseShutdown
}
