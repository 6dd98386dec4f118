//go:build linux

package efd

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// eventfdHandle mirrors the descriptor state in a non-blocking eventfd: it is
// readable exactly while signaled or stopped.
type eventfdHandle struct {
	efd int
}

func newHandle() (handle, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, err
	}
	return &eventfdHandle{efd: fd}, nil
}

func (h *eventfdHandle) signal() {
	var b [8]byte
	binary.NativeEndian.PutUint64(b[:], 1)
	unix.Write(h.efd, b[:])
}

func (h *eventfdHandle) unsignal() {
	var b [8]byte
	// draining resets the counter to zero
	unix.Read(h.efd, b[:])
}

func (h *eventfdHandle) fd() int {
	return h.efd
}

func (h *eventfdHandle) close() error {
	return unix.Close(h.efd)
}
