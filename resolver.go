package strand

import (
	"net"

	"github.com/emove/strand/internal/atomic"
	"github.com/emove/strand/internal/errors"
	"github.com/emove/strand/log"
	"github.com/emove/strand/pkg/buffer"
	"github.com/emove/strand/pkg/pool"
	"golang.org/x/sys/unix"
)

type dialResult struct {
	fd  int
	err error
}

// resolverState runs address resolution and the blocking TCP connect on
// a worker from the pool, so the event-loop thread never stalls on DNS.
// Completion is signalled through a pipe the loop watches like any other
// descriptor. Bytes sent while resolving are staged and carried into the
// handshake.
type resolverState struct {
	conn  *Connection
	pipeR int
	out   *buffer.Buffer
	done  chan dialResult

	// claimed is the ownership token for the dialed socket: whoever
	// flips it second cleans up the other side's half.
	claimed *atomic.AtomicBool
}

var _ state = (*resolverState)(nil)

func newResolver(c *Connection, network, addr string) (*resolverState, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, errors.New("notification pipe: %v", err)
	}
	_ = unix.SetNonblock(p[0], true)
	r := &resolverState{
		conn:    c,
		pipeR:   p[0],
		out:     buffer.New(),
		done:    make(chan dialResult, 1),
		claimed: new(atomic.AtomicBool),
	}
	pipeW := p[1]
	claimed := r.claimed
	done := r.done
	pool.Submit(func() {
		fd, err := rawDial(network, addr)
		if !claimed.CAS(false, true) {
			// the state aborted while we were dialing, nobody will reap
			if fd >= 0 {
				_ = unix.Close(fd)
			}
			_ = unix.Close(pipeW)
			return
		}
		done <- dialResult{fd: fd, err: err}
		var one [1]byte
		_, _ = unix.Write(pipeW, one[:])
		_ = unix.Close(pipeW)
	})
	c.watch(p[0], Readable)
	return r, nil
}

func (r *resolverState) process(m monitor, fd int, flags Interest) state {
	if fd != r.pipeR {
		return r
	}
	return r.finish(m)
}

// finish reaps the dial result and moves into the handshake, or into the
// terminal state when the dial failed. The result is guaranteed to be
// in flight once the pipe became readable.
func (r *resolverState) finish(m monitor) state {
	res := <-r.done
	r.closePipe()
	if res.err != nil {
		return r.fail(m, res.err)
	}
	hs, err := newHandshake(r.conn, res.fd, r.out)
	if err != nil {
		_ = unix.Close(res.fd)
		return r.fail(m, err)
	}
	log.Debugf("connection %s: connected to %s, fd %d", r.conn.id, r.conn.host, res.fd)
	return hs
}

func (r *resolverState) fail(m monitor, err error) state {
	log.Errorf("connection %s: dial failed: %v", r.conn.id, err)
	r.closePipe()
	if !r.conn.notifyClosed(m, err) {
		return nil
	}
	return newClosed(r.conn)
}

func (r *resolverState) closePipe() {
	if r.pipeR < 0 {
		return
	}
	r.conn.watch(r.pipeR, None)
	_ = unix.Close(r.pipeR)
	r.pipeR = -1
}

// send stages outgoing data until there is a socket to carry it.
func (r *resolverState) send(p []byte) {
	r.conn.bytesOut.Add(int64(len(p)))
	r.out.Add(p)
}

func (r *resolverState) flush(m monitor) state {
	if err := r.conn.wait(r.pipeR, Readable); err != nil {
		return r.abandon(m)
	}
	next := r.finish(m)
	if hs, ok := next.(*handshakeState); ok {
		return hs.flush(m)
	}
	return next
}

func (r *resolverState) stop(m monitor) state {
	// nothing established yet, an orderly stop is a plain cancel
	return r.abort(m)
}

func (r *resolverState) abort(m monitor) state {
	return r.abandon(m)
}

// abandon cancels the pending dial. When the worker already produced a
// socket the result is reaped here so the descriptor cannot leak.
func (r *resolverState) abandon(m monitor) state {
	r.reap()
	r.closePipe()
	if !r.conn.notifyClosed(m, nil) {
		return nil
	}
	return newClosed(r.conn)
}

func (r *resolverState) reap() {
	if r.claimed.CAS(false, true) {
		// the worker loses the race and closes its own socket
		return
	}
	res := <-r.done
	if res.fd >= 0 {
		_ = unix.Close(res.fd)
	}
}

func (r *resolverState) teardown() {
	r.reap()
	if r.pipeR >= 0 {
		r.conn.watch(r.pipeR, None)
		_ = unix.Close(r.pipeR)
		r.pipeR = -1
	}
}

func (r *resolverState) fileno() int {
	return -1
}

func (r *resolverState) queued() int {
	return r.out.Len()
}

func (r *resolverState) phase() Phase {
	return PhaseResolving
}

// rawDial resolves addr and connects with a blocking socket; it runs on
// a pool worker, never on the loop thread. The descriptor comes back
// non-blocking with NODELAY and KEEPALIVE set.
func rawDial(network, addr string) (int, error) {
	raddr, err := net.ResolveTCPAddr(network, addr)
	if err != nil {
		return -1, errors.New("resolve %s: %v", addr, err)
	}
	if raddr.IP == nil {
		return -1, errors.New("resolve %s: no address", addr)
	}
	family := unix.AF_INET
	var sa unix.Sockaddr
	if ip4 := raddr.IP.To4(); ip4 != nil {
		sa4 := &unix.SockaddrInet4{Port: raddr.Port}
		copy(sa4.Addr[:], ip4)
		sa = sa4
	} else {
		family = unix.AF_INET6
		sa6 := &unix.SockaddrInet6{Port: raddr.Port}
		copy(sa6.Addr[:], raddr.IP.To16())
		sa = sa6
	}
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, errors.New("socket: %v", err)
	}
	if err = unix.Connect(fd, sa); err != nil {
		_ = unix.Close(fd)
		return -1, errors.New("connect %s: %v", addr, err)
	}
	if err = unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return -1, errors.New("set nonblock: %v", err)
	}
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
	return fd, nil
}
