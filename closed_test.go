package strand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClosedSwallowsEverything(t *testing.T) {
	fd, _ := sockpair(t)
	loop := &fakeLoop{}
	closes := 0
	c, err := New(loop, fd, "example.com", engineOf(newFakeSession()),
		WithOnClosed(func(c *Connection, err error) { closes++ }))
	require.NoError(t, err)

	c.Abort()
	require.Equal(t, PhaseClosed, c.Phase())
	require.Equal(t, 1, closes)

	watched := loop.count()
	for i := 0; i < 3; i++ {
		c.Abort()
		c.Shutdown()
		c.Send([]byte("ignored"))
		c.Process(fd, Readable|Writable)
		assert.Equal(t, PhaseClosed, c.Flush())
	}
	assert.Equal(t, PhaseClosed, c.Phase())
	assert.Equal(t, -1, c.Fd())
	assert.Zero(t, c.Queued())
	assert.Equal(t, 1, closes)
	assert.Equal(t, watched, loop.count())
}
