package strand

// closedState is the terminal variant. It holds no descriptor and every
// operation on it is a no-op; abort in particular stays idempotent no
// matter how often it is repeated.
type closedState struct {
	conn *Connection
}

var _ state = (*closedState)(nil)

func newClosed(c *Connection) *closedState {
	return &closedState{conn: c}
}

func (s *closedState) process(m monitor, fd int, flags Interest) state {
	return s
}

func (s *closedState) send(p []byte) {}

func (s *closedState) flush(m monitor) state {
	return s
}

func (s *closedState) stop(m monitor) state {
	return s
}

func (s *closedState) abort(m monitor) state {
	// connection was closed and stays closed
	return s
}

func (s *closedState) teardown() {}

func (s *closedState) fileno() int {
	return -1
}

func (s *closedState) queued() int {
	return 0
}

func (s *closedState) phase() Phase {
	return PhaseClosed
}
