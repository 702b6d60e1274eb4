// Package session owns one TLS session bound to exactly one descriptor.
// A session never closes the descriptor it is bound to: descriptor
// lifetime belongs to the connection state that carries the session.
package session

import "errors"

// Verdict classifies the outcome of a single handshake or shutdown step.
type Verdict int

const (
	// Done means the operation completed.
	Done Verdict = iota
	// WantRead means the step must be repeated once the descriptor is readable.
	WantRead
	// WantWrite means the step must be repeated once the descriptor is writable.
	WantWrite
	// Again means the step made no progress yet and may be repeated immediately.
	Again
	// Failed means the session is unusable, see Err.
	Failed
)

// String returns the name of the verdict.
func (v Verdict) String() string {
	switch v {
	case Done:
		return "done"
	case WantRead:
		return "want-read"
	case WantWrite:
		return "want-write"
	case Again:
		return "again"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrWouldBlock reports that a Read or Write could not make progress
// without waiting for descriptor readiness.
var ErrWouldBlock = errors.New("session: operation would block")

// Session drives the crypto engine bound to a single descriptor.
type Session interface {
	// Handshake performs one client handshake step.
	Handshake() Verdict

	// Shutdown performs one step of the close-notify exchange. The first
	// call that dispatches our close-notify yields Again: the exchange is
	// not complete, but repeating the call immediately is legitimate.
	Shutdown() Verdict

	// Read moves decrypted application bytes out of the session.
	// Returns ErrWouldBlock when no plaintext is available yet.
	Read(p []byte) (int, error)

	// Write moves application bytes into the session. Returns
	// ErrWouldBlock when the engine cannot take the bytes yet.
	Write(p []byte) (int, error)

	// Pump pushes engine output that is still staged toward the socket.
	// WantWrite while bytes remain, Done once drained.
	Pump() Verdict

	// Err returns the error behind the last Failed verdict, or nil.
	Err() error

	// Close releases engine resources. The descriptor stays open.
	Close() error
}
