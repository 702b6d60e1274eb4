// Package poll blocks the calling goroutine until a descriptor reaches
// the requested readiness. It backs the synchronous Flush path only; the
// event-loop path never enters here.
package poll

import (
	"github.com/emove/strand/internal/errors"
	"golang.org/x/sys/unix"
)

// Wait blocks until fd is readable and/or writable, as requested.
// Error conditions on the descriptor (POLLERR, POLLHUP) also satisfy the
// wait: the caller's next step on the descriptor will observe them.
func Wait(fd int, readable, writable bool) error {
	if fd < 0 {
		return errors.New("poll: invalid descriptor %d", fd)
	}

	var events int16
	if readable {
		events |= unix.POLLIN
	}
	if writable {
		events |= unix.POLLOUT
	}

	fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
	for {
		_, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}
