// Package efd implements event descriptors: cross-thread signalable flags used
// to expose a socket's send, receive and error readiness.
//
// An Efd is unsignaled, signaled or stopped. Signal and Unsignal may be called
// from any goroutine without holding the owner's lock. Stop is final: every
// current and future Wait returns errs.ErrTerminating.
//
// On Linux each Efd is mirrored by an eventfd so external pollers can wait on
// it; see Fd.
package efd

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/multisocket/spcore/errs"
)

// State of an event descriptor.
type State int32

// states
const (
	Unsignaled State = iota
	Signaled
	Stopped
)

// Efd is an event descriptor.
type Efd struct {
	state atomic.Int32

	// mu makes a state change and its wake-up one step.
	mu      sync.Mutex
	readyq  chan struct{} // closed while signaled
	stopq   chan struct{}
	handle  handle
	created bool
}

// New create an unsignaled event descriptor.
func New() (*Efd, error) {
	h, err := newHandle()
	if err != nil {
		return nil, err
	}
	return &Efd{
		readyq:  make(chan struct{}),
		stopq:   make(chan struct{}),
		handle:  h,
		created: true,
	}, nil
}

// State returns the current state without locking.
func (e *Efd) State() State {
	return State(e.state.Load())
}

// IsSignaled reports whether the descriptor is signaled.
func (e *Efd) IsSignaled() bool {
	return e.State() == Signaled
}

// Signal sets the descriptor.
func (e *Efd) Signal() {
	e.mu.Lock()
	if e.State() == Unsignaled {
		e.state.Store(int32(Signaled))
		close(e.readyq)
		e.handle.signal()
	}
	e.mu.Unlock()
}

// Unsignal clears the descriptor.
func (e *Efd) Unsignal() {
	e.mu.Lock()
	if e.State() == Signaled {
		e.state.Store(int32(Unsignaled))
		e.readyq = make(chan struct{})
		e.handle.unsignal()
	}
	e.mu.Unlock()
}

// Pulse wakes current waiters without leaving the descriptor signaled.
func (e *Efd) Pulse() {
	e.mu.Lock()
	if e.State() == Unsignaled {
		close(e.readyq)
		e.readyq = make(chan struct{})
	}
	e.mu.Unlock()
}

// Stop moves the descriptor to its final state and wakes all waiters.
func (e *Efd) Stop() {
	e.mu.Lock()
	if e.State() != Stopped {
		e.state.Store(int32(Stopped))
		close(e.stopq)
		e.handle.signal()
	}
	e.mu.Unlock()
}

// Waiter is a wait armed against the state of an Efd at one instant.
// Wake-ups issued after Arm are never missed, even when Wait is entered later.
type Waiter struct {
	readyq <-chan struct{}
	stopq  <-chan struct{}
	state  State
}

// Arm captures the current wake channels. Callers arm while holding the lock
// that orders their state checks against Signal and Pulse.
func (e *Efd) Arm() Waiter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Waiter{readyq: e.readyq, stopq: e.stopq, state: e.State()}
}

// Wait blocks until the armed descriptor is signaled or pulsed, deadline fires
// or it is stopped. A nil deadline waits forever.
func (w Waiter) Wait(deadline <-chan time.Time) error {
	switch w.state {
	case Signaled:
		return nil
	case Stopped:
		return errs.ErrTerminating
	}

	select {
	case <-w.readyq:
		return nil
	case <-w.stopq:
		return errs.ErrTerminating
	case <-deadline:
		return errs.ErrTimeout
	}
}

// Wait blocks until the descriptor is signaled, deadline fires or it is stopped.
// A nil deadline waits forever.
func (e *Efd) Wait(deadline <-chan time.Time) error {
	return e.Arm().Wait(deadline)
}

// Fd returns the OS-level handle mirroring the state, -1 when unavailable.
func (e *Efd) Fd() int {
	return e.handle.fd()
}

// Close stops the descriptor and releases the OS-level handle.
func (e *Efd) Close() error {
	e.Stop()
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.created {
		return nil
	}
	e.created = false
	return e.handle.close()
}
