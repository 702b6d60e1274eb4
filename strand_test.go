package strand

import (
	"bytes"
	"sync"
	"testing"

	"github.com/emove/strand/session"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type watchCall struct {
	fd       int
	interest Interest
}

// fakeLoop records Watch registrations and lets a test script the
// authorization decision.
type fakeLoop struct {
	mu        sync.Mutex
	watches   []watchCall
	authorize func(c *Connection, s session.Session) bool
}

func (l *fakeLoop) Watch(c *Connection, fd int, interest Interest) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.watches = append(l.watches, watchCall{fd: fd, interest: interest})
}

func (l *fakeLoop) Authorize(c *Connection, s session.Session) bool {
	if l.authorize == nil {
		return true
	}
	return l.authorize(c, s)
}

func (l *fakeLoop) last() watchCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.watches) == 0 {
		return watchCall{fd: -1, interest: None}
	}
	return l.watches[len(l.watches)-1]
}

func (l *fakeLoop) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.watches)
}

type readResult struct {
	p   []byte
	err error
}

// fakeSession replays scripted verdicts. A script repeats its final
// element once consumed; an empty script always answers Done.
type fakeSession struct {
	hs []session.Verdict
	sd []session.Verdict

	hsCalls int
	sdCalls int

	reads   []readResult
	accept  int // bytes Write takes before ErrWouldBlock, -1 unlimited
	written bytes.Buffer

	pump   session.Verdict
	err    error
	closed int
}

func newFakeSession() *fakeSession {
	return &fakeSession{accept: -1}
}

func nextVerdict(script *[]session.Verdict) session.Verdict {
	if len(*script) == 0 {
		return session.Done
	}
	v := (*script)[0]
	if len(*script) > 1 {
		*script = (*script)[1:]
	}
	return v
}

func (f *fakeSession) Handshake() session.Verdict {
	f.hsCalls++
	return nextVerdict(&f.hs)
}

func (f *fakeSession) Shutdown() session.Verdict {
	f.sdCalls++
	return nextVerdict(&f.sd)
}

func (f *fakeSession) Read(p []byte) (int, error) {
	if len(f.reads) == 0 {
		return 0, session.ErrWouldBlock
	}
	r := f.reads[0]
	f.reads = f.reads[1:]
	return copy(p, r.p), r.err
}

func (f *fakeSession) Write(p []byte) (int, error) {
	if f.accept < 0 {
		f.written.Write(p)
		return len(p), nil
	}
	n := f.accept
	if n > len(p) {
		n = len(p)
	}
	f.written.Write(p[:n])
	f.accept -= n
	if n < len(p) {
		return n, session.ErrWouldBlock
	}
	return n, nil
}

func (f *fakeSession) Pump() session.Verdict {
	return f.pump
}

func (f *fakeSession) Err() error {
	return f.err
}

func (f *fakeSession) Close() error {
	f.closed++
	return nil
}

// sockpair returns a connected descriptor pair. The second half is
// closed on test cleanup; the first belongs to the state under test.
func sockpair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = unix.Close(fds[1]) })
	return fds[0], fds[1]
}

func engineOf(s session.Session) Option {
	return WithEngine(func(fd int, host string) (session.Session, error) {
		return s, nil
	})
}
