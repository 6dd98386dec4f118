//go:build linux

package efd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func readable(t *testing.T, fd int) bool {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	assert.NoError(t, err)
	return n == 1 && fds[0].Revents&unix.POLLIN != 0
}

func TestEventfdMirrorsState(t *testing.T) {
	e := newEfd(t)
	fd := e.Fd()
	assert.True(t, fd >= 0)
	assert.False(t, readable(t, fd))

	e.Signal()
	assert.True(t, readable(t, fd))

	e.Unsignal()
	assert.False(t, readable(t, fd))

	e.Stop()
	assert.True(t, readable(t, fd))
}
