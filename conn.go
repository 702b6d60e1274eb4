package strand

import (
	"net"

	"github.com/emove/strand/internal/atomic"
	"github.com/emove/strand/internal/poll"
	"github.com/emove/strand/log"
	"github.com/emove/strand/session"
	"github.com/google/uuid"
)

type (
	// OnData is a hook which will be invoked with decrypted inbound
	// payload bytes once the connection is secured.
	OnData func(c *Connection, p []byte)

	// OnClosed is a hook which will be invoked once when the connection
	// lifecycle ends, whether orderly or not.
	OnClosed func(c *Connection, err error)

	// EngineFactory binds a crypto session to an established descriptor.
	EngineFactory func(fd int, host string) (session.Session, error)

	// Waiter blocks until fd satisfies interest. Flush runs on it; the
	// event-loop path never does.
	Waiter func(fd int, interest Interest) error
)

type options struct {
	onData          OnData
	onClosed        OnClosed
	engine          EngineFactory
	wait            Waiter
	tls             session.Config
	shutdownRetries int
}

// Option configures a Connection.
type Option func(o *options)

// WithOnData registers the inbound payload hook.
func WithOnData(fn OnData) Option {
	return func(o *options) { o.onData = fn }
}

// WithOnClosed registers the teardown notification hook.
func WithOnClosed(fn OnClosed) Option {
	return func(o *options) { o.onClosed = fn }
}

// WithEngine replaces the default TLS engine.
func WithEngine(fn EngineFactory) Option {
	return func(o *options) { o.engine = fn }
}

// WithWaiter replaces the readiness wait used by Flush.
func WithWaiter(fn Waiter) Option {
	return func(o *options) { o.wait = fn }
}

// WithTLS sets the configuration handed to the default engine.
func WithTLS(cfg session.Config) Option {
	return func(o *options) { o.tls = cfg }
}

// WithShutdownRetries bounds how often a shutdown step reporting "no
// progress yet" is repeated immediately within one invocation before
// the state yields back to the event loop.
func WithShutdownRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.shutdownRetries = n
		}
	}
}

const defaultShutdownRetries = 4

func defaultOptions() *options {
	return &options{
		shutdownRetries: defaultShutdownRetries,
		wait: func(fd int, interest Interest) error {
			return poll.Wait(fd, interest&Readable != 0, interest&Writable != 0)
		},
	}
}

// Connection holds exactly one live lifecycle state plus the liveness
// flag shared with in-flight monitors. All methods must be called from
// the thread that owns the event loop (or that calls Flush); there is no
// internal locking.
type Connection struct {
	id   string
	host string
	loop Loop
	ops  *options

	state state
	live  *atomic.AtomicBool

	bytesIn  atomic.AtomicInt64
	bytesOut atomic.AtomicInt64

	closeNotified bool
}

// New adopts an established, non-blocking descriptor that already
// carries a TCP connection to host and starts the TLS handshake on it.
// When the session cannot be bound the descriptor stays with the caller.
func New(loop Loop, fd int, host string, op ...Option) (*Connection, error) {
	c := newConnection(loop, host, op...)
	hs, err := newHandshake(c, fd, nil)
	if err != nil {
		return nil, err
	}
	c.state = hs
	log.Debugf("connection %s: handshake started, fd %d, host %s", c.id, fd, host)
	return c, nil
}

// Dial resolves addr and connects in the background on the worker pool,
// then proceeds into the TLS handshake. The returned connection is live
// immediately; completion is reported through the event loop.
func Dial(loop Loop, network, addr string, op ...Option) (*Connection, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	c := newConnection(loop, host, op...)
	rs, err := newResolver(c, network, addr)
	if err != nil {
		return nil, err
	}
	c.state = rs
	log.Debugf("connection %s: resolving %s", c.id, addr)
	return c, nil
}

func newConnection(loop Loop, host string, op ...Option) *Connection {
	ops := defaultOptions()
	for _, o := range op {
		o(ops)
	}
	if ops.engine == nil {
		tls := ops.tls
		ops.engine = func(fd int, host string) (session.Session, error) {
			cfg := tls
			if cfg.ServerName == "" {
				cfg.ServerName = host
			}
			return session.NewEngine(fd, cfg)
		}
	}
	live := new(atomic.AtomicBool)
	live.Set(true)
	return &Connection{
		id:   uuid.NewString(),
		host: host,
		loop: loop,
		ops:  ops,
		live: live,
	}
}

// ID returns the connection identifier carried in log records.
func (c *Connection) ID() string {
	return c.id
}

// Process drives the active state after the event loop reported
// readiness on fd. Events for descriptors the active state does not own
// are no-ops.
func (c *Connection) Process(fd int, flags Interest) {
	m := c.monitor()
	c.apply(m, c.state.process(m, fd, flags))
}

// Send stages application bytes. Never blocks; a no-op once the
// connection has no descriptor left.
func (c *Connection) Send(p []byte) {
	c.state.send(p)
}

// Flush drives the active state synchronously, blocking the calling
// thread on descriptor readiness, until the underlying protocol step
// reaches success or a fatal error. Returns the resulting phase.
func (c *Connection) Flush() Phase {
	m := c.monitor()
	next := c.state.flush(m)
	if !m.valid() {
		return PhaseClosed
	}
	c.apply(m, next)
	return c.state.phase()
}

// Shutdown starts an orderly teardown: the close-notify exchange first,
// then the TCP half-close.
func (c *Connection) Shutdown() {
	m := c.monitor()
	c.apply(m, c.state.stop(m))
}

// Abort cancels the connection from any state. The descriptor is closed
// at most once regardless of in-flight progress; repeated calls are
// no-ops.
func (c *Connection) Abort() {
	m := c.monitor()
	c.apply(m, c.state.abort(m))
}

// Destroy releases the connection. Safe to call from inside Authorize or
// any hook: in-flight monitors observe the flip and abandon their call
// chains without touching the connection again.
func (c *Connection) Destroy() {
	if !c.live.CAS(true, false) {
		return
	}
	log.Debugf("connection %s: destroyed in phase %s", c.id, c.state.phase())
	c.state.teardown()
	c.state = newClosed(c)
}

// Fd returns the descriptor owned by the active state, or -1.
func (c *Connection) Fd() int {
	return c.state.fileno()
}

// Queued returns the number of bytes staged but not yet part of the
// active protocol stream.
func (c *Connection) Queued() int {
	return c.state.queued()
}

// Phase returns the current lifecycle phase.
func (c *Connection) Phase() Phase {
	return c.state.phase()
}

// Stats returns the number of plaintext bytes delivered to the OnData
// hook and the number of bytes accepted for transmission.
func (c *Connection) Stats() (in, out int64) {
	return c.bytesIn.Value(), c.bytesOut.Value()
}

func (c *Connection) monitor() monitor {
	return monitor{live: c.live}
}

func (c *Connection) apply(m monitor, next state) {
	if !m.valid() {
		// the connection was destroyed inside a callback, the state it
		// belonged to is gone with it
		return
	}
	if next != nil && next != c.state {
		c.state = next
	}
}

func (c *Connection) watch(fd int, interest Interest) {
	c.loop.Watch(c, fd, interest)
}

func (c *Connection) wait(fd int, interest Interest) error {
	return c.ops.wait(fd, interest)
}

// notifyClosed fires the OnClosed hook at most once and reports whether
// the connection survived the call.
func (c *Connection) notifyClosed(m monitor, err error) bool {
	if c.closeNotified {
		return m.valid()
	}
	c.closeNotified = true
	if c.ops.onClosed != nil {
		c.ops.onClosed(c, err)
	}
	return m.valid()
}
