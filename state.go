// Package strand manages the lifecycle of a single non-blocking,
// TLS-secured socket connection embedded in a protocol client that is
// driven by an externally owned event loop. The package supplies the
// connection states (resolving, handshake, connected, shutdown,
// half-close, closed); the event loop, the protocol framing on top and
// the TLS algorithm itself stay outside.
package strand

import (
	"github.com/emove/strand/session"
	"golang.org/x/sys/unix"
)

// Interest describes which readiness conditions a state wants the event
// loop to watch a descriptor for.
type Interest int

const (
	// None stops watching the descriptor.
	None Interest = 0
	// Readable asks for read readiness.
	Readable Interest = 1 << 0
	// Writable asks for write readiness.
	Writable Interest = 1 << 1
)

// Loop is the adapter the connection states call back into. It is owned
// by the integrator.
type Loop interface {
	// Watch (re)registers interest in fd on behalf of c. It is invoked
	// exactly once per transition that changes the desired interest and
	// once when the first watching state is built. None means fd no
	// longer needs watching.
	Watch(c *Connection, fd int, interest Interest)

	// Authorize is invoked exactly once per handshake, after the
	// cryptographic exchange succeeded and before the connection is
	// considered usable. Returning false rejects the peer and tears the
	// connection down. The callback may destroy the connection.
	Authorize(c *Connection, s session.Session) bool
}

// Phase names the lifecycle stage the connection is currently in.
type Phase int

const (
	PhaseResolving Phase = iota
	PhaseHandshake
	PhaseConnected
	PhaseShutdown
	PhaseClosed
)

// String returns the name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseResolving:
		return "resolving"
	case PhaseHandshake:
		return "handshake"
	case PhaseConnected:
		return "connected"
	case PhaseShutdown:
		return "shutdown"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// state is one variant of the connection lifecycle. Exactly one state is
// live per connection; a transition builds the successor, moves the
// owned resources into it and leaves the predecessor inert.
//
// Every method that may call into integrator code takes the monitor that
// was created before entering the state machine and returns nil when the
// connection was destroyed during such a call.
type state interface {
	// process drives the state after the event loop reported readiness
	// on fd. Events for foreign descriptors are ignored.
	process(m monitor, fd int, flags Interest) state

	// send stages application bytes; never blocks.
	send(p []byte)

	// flush drives the state synchronously until it completes or fails,
	// blocking on descriptor readiness in between.
	flush(m monitor) state

	// stop starts an orderly teardown of the state.
	stop(m monitor) state

	// abort cancels whatever the state is doing and closes its owned
	// resources at most once.
	abort(m monitor) state

	// teardown releases owned resources without running callbacks. It is
	// the destructor stand-in for abnormal termination.
	teardown()

	// fileno returns the owned descriptor, or -1.
	fileno() int

	// queued returns the number of staged application bytes.
	queued() int

	phase() Phase
}

// extState carries the descriptor and parent plumbing shared by the
// states that own the socket.
type extState struct {
	conn     *Connection
	fd       int
	interest Interest
}

func (s *extState) fileno() int {
	return s.fd
}

// watch registers interest in the owned descriptor, skipping the call
// when the registration is already in place.
func (s *extState) watch(interest Interest) {
	if interest == s.interest {
		return
	}
	s.interest = interest
	s.conn.watch(s.fd, interest)
}

// release hands the descriptor to a successor state and marks it no
// longer owned, so this state's teardown will not close it.
func (s *extState) release() int {
	fd := s.fd
	s.fd = -1
	return fd
}

// close closes the owned descriptor once. Reports whether it did.
func (s *extState) close() bool {
	if s.fd < 0 {
		return false
	}
	s.conn.watch(s.fd, None)
	s.interest = None
	_ = unix.Close(s.fd)
	s.fd = -1
	return true
}
