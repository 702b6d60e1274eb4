package strand

import "github.com/emove/strand/internal/atomic"

// monitor reports whether the connection outlived a call into integrator
// code. The flag it watches is allocated separately from the Connection,
// so it stays readable after the connection itself was destroyed.
//
// The discipline is fixed: create the monitor before the call, query it
// immediately after, and touch no member when it reports invalid.
type monitor struct {
	live *atomic.AtomicBool
}

// valid reports whether the connection still exists.
func (m monitor) valid() bool {
	return m.live != nil && m.live.Value()
}
