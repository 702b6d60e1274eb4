package strand

import (
	"testing"

	"github.com/emove/strand/internal/errors"
	"github.com/emove/strand/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The blocking flush path and the event-driven path share one step
// classification, so the same verdict script must land both in the same
// place.
func TestFlushMatchesEventDrivenHandshake(t *testing.T) {
	script := []session.Verdict{session.WantRead, session.WantWrite, session.Done, session.Failed}

	// event-driven
	fd1, _ := sockpair(t)
	loop1 := &fakeLoop{}
	sess1 := newFakeSession()
	sess1.hs = append([]session.Verdict(nil), script...)
	c1, err := New(loop1, fd1, "example.com", engineOf(sess1))
	require.NoError(t, err)
	defer c1.Destroy()

	c1.Process(fd1, Writable)
	c1.Process(fd1, Readable)
	c1.Process(fd1, Writable)
	require.Equal(t, PhaseConnected, c1.Phase())

	// blocking
	fd2, _ := sockpair(t)
	loop2 := &fakeLoop{}
	sess2 := newFakeSession()
	sess2.hs = append([]session.Verdict(nil), script...)
	var waits []Interest
	c2, err := New(loop2, fd2, "example.com", engineOf(sess2),
		WithWaiter(func(fd int, interest Interest) error {
			waits = append(waits, interest)
			return nil
		}))
	require.NoError(t, err)
	defer c2.Destroy()

	assert.Equal(t, PhaseConnected, c2.Flush())
	assert.Equal(t, sess1.hsCalls, sess2.hsCalls)
	assert.Equal(t, []Interest{Readable, Readable | Writable}, waits)
}

func TestFlushWaitFailureTearsDown(t *testing.T) {
	fd, _ := sockpair(t)
	loop := &fakeLoop{}
	sess := newFakeSession()
	sess.hs = []session.Verdict{session.WantRead}

	closes := 0
	c, err := New(loop, fd, "example.com", engineOf(sess),
		WithWaiter(func(fd int, interest Interest) error {
			return errors.New("poll interrupted")
		}),
		WithOnClosed(func(c *Connection, err error) { closes++ }))
	require.NoError(t, err)

	assert.Equal(t, PhaseClosed, c.Flush())
	assert.Equal(t, 1, closes)
	assert.Equal(t, -1, c.Fd())
}

func TestFlushAfterDestroy(t *testing.T) {
	fd, _ := sockpair(t)
	loop := &fakeLoop{}
	c, err := New(loop, fd, "example.com", engineOf(newFakeSession()))
	require.NoError(t, err)

	c.Destroy()
	assert.Equal(t, PhaseClosed, c.Flush())
}

func TestDestroyIsIdempotent(t *testing.T) {
	fd, _ := sockpair(t)
	loop := &fakeLoop{}
	closes := 0
	c, err := New(loop, fd, "example.com", engineOf(newFakeSession()),
		WithOnClosed(func(c *Connection, err error) { closes++ }))
	require.NoError(t, err)

	c.Destroy()
	c.Destroy()
	assert.Equal(t, PhaseClosed, c.Phase())
	assert.Equal(t, -1, c.Fd())
	// destruction skips callbacks
	assert.Zero(t, closes)
}

func TestConnectionID(t *testing.T) {
	fd, _ := sockpair(t)
	c, err := New(&fakeLoop{}, fd, "example.com", engineOf(newFakeSession()))
	require.NoError(t, err)
	defer c.Destroy()

	assert.NotEmpty(t, c.ID())
}
