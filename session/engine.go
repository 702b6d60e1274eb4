package session

import (
	"crypto/x509"
	"io"

	"github.com/bifurcation/mint"
	"github.com/emove/strand/internal/errors"
)

// recordTypeAlert is the TLS record content type carrying alerts. After
// our close-notify went out the peer's answer arrives as such a record.
const recordTypeAlert = 21

// Config carries what the engine needs to bind a client session.
type Config struct {
	// ServerName is the hostname used for SNI and identity verification.
	ServerName string
	// RootCAs overrides the host's root CA set when non-nil.
	RootCAs *x509.CertPool
	// Insecure skips certificate verification. Tests only.
	Insecure bool
}

// engine is the mint-backed Session. mint is driven in non-blocking
// mode: each Handshake call advances at most one flight and reports
// would-block instead of waiting.
type engine struct {
	raw       *rawConn
	tls       *mint.Conn
	err       error
	hsDone    bool
	closeSent bool
}

var _ Session = (*engine)(nil)

// NewEngine binds a client session to an established non-blocking
// descriptor. Fails before any session state exists when the descriptor
// cannot be bound.
func NewEngine(fd int, cfg Config) (Session, error) {
	if fd < 0 {
		return nil, errors.New("session: cannot bind session to descriptor %d", fd)
	}
	raw := newRawConn(fd)
	tls := mint.Client(raw, &mint.Config{
		ServerName:         cfg.ServerName,
		RootCAs:            cfg.RootCAs,
		InsecureSkipVerify: cfg.Insecure,
		NonBlocking:        true,
	})
	if tls == nil {
		return nil, errors.New("session: engine rejected configuration for %q", cfg.ServerName)
	}
	return &engine{raw: raw, tls: tls}, nil
}

func (e *engine) Handshake() Verdict {
	if e.err != nil {
		return Failed
	}
	for {
		if err := e.raw.flush(); err != nil {
			return e.fail(err)
		}
		if e.hsDone {
			if e.raw.pending() > 0 {
				return WantWrite
			}
			return Done
		}

		switch alert := e.tls.Handshake(); alert {
		case mint.AlertNoAlert:
			// a flight was processed, step again until the engine blocks
			if e.tls.GetHsState() == mint.StateClientConnected {
				e.hsDone = true
			}
		case mint.AlertWouldBlock:
			if e.raw.pending() > 0 {
				return WantWrite
			}
			return WantRead
		default:
			return e.fail(errors.New("session: handshake failed: alert %v", alert))
		}
	}
}

func (e *engine) Shutdown() Verdict {
	if e.err != nil {
		return Failed
	}
	if err := e.raw.flush(); err != nil {
		return e.fail(err)
	}
	if e.raw.pending() > 0 {
		return WantWrite
	}

	if !e.closeSent {
		e.closeSent = true
		// queues our close-notify; the descriptor itself stays open
		// because rawConn.Close is a no-op
		_ = e.tls.Close()
		if err := e.raw.flush(); err != nil {
			return e.fail(err)
		}
		return Again
	}

	// our close-notify is on the wire, wait for the peer's answer; a
	// bare EOF counts, the peer tore the transport down without one
	buf := make([]byte, 512)
	for {
		n, err := e.raw.Read(buf)
		switch {
		case err == io.EOF:
			return Done
		case err != nil:
			return e.fail(err)
		case n == 0:
			if e.raw.pending() > 0 {
				return WantWrite
			}
			return WantRead
		case buf[0] == recordTypeAlert:
			return Done
		default:
			// stray post-close data, discard and keep waiting
		}
	}
}

func (e *engine) Read(p []byte) (int, error) {
	n, err := e.tls.Read(p)
	switch err {
	case nil:
		return n, nil
	case mint.AlertWouldBlock:
		return n, ErrWouldBlock
	case mint.AlertCloseNotify:
		return n, io.EOF
	default:
		return n, err
	}
}

func (e *engine) Write(p []byte) (int, error) {
	n, err := e.tls.Write(p)
	if err == mint.AlertWouldBlock {
		return n, ErrWouldBlock
	}
	return n, err
}

func (e *engine) Pump() Verdict {
	if e.err != nil {
		return Failed
	}
	if err := e.raw.flush(); err != nil {
		return e.fail(err)
	}
	if e.raw.pending() > 0 {
		return WantWrite
	}
	return Done
}

func (e *engine) Err() error {
	return e.err
}

func (e *engine) Close() error {
	if !e.closeSent {
		e.closeSent = true
		_ = e.tls.Close()
	}
	return nil
}

func (e *engine) fail(err error) Verdict {
	e.err = err
	return Failed
}
