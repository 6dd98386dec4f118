package pipeset

import (
	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/pipe"
)

// Excl holds at most one pipe.
type Excl struct {
	p        pipe.Pipe
	inReady  bool
	outReady bool
}

// Add sets p, a second pipe is rejected.
func (e *Excl) Add(p pipe.Pipe) error {
	if e.p != nil {
		return errs.ErrProtocolReject
	}
	e.p = p
	return nil
}

// Rm clears p.
func (e *Excl) Rm(p pipe.Pipe) {
	if e.p == p {
		*e = Excl{}
	}
}

// In marks the pipe readable.
func (e *Excl) In(p pipe.Pipe) {
	if e.p == p {
		e.inReady = true
	}
}

// Out marks the pipe writable.
func (e *Excl) Out(p pipe.Pipe) {
	if e.p == p {
		e.outReady = true
	}
}

// Pipe returns the current pipe or nil.
func (e *Excl) Pipe() pipe.Pipe {
	return e.p
}

// CanSend reports whether the pipe is writable.
func (e *Excl) CanSend() bool {
	return e.outReady
}

// CanRecv reports whether the pipe is readable.
func (e *Excl) CanRecv() bool {
	return e.inReady
}

// Send sends msg on the pipe.
func (e *Excl) Send(msg *message.Message) error {
	if !e.outReady {
		return errs.ErrWouldBlock
	}
	flags, err := e.p.Send(msg)
	if err != nil {
		e.outReady = false
		return errs.ErrWouldBlock
	}
	if flags.Has(pipe.Release) {
		e.outReady = false
	}
	return nil
}

// Recv receives from the pipe.
func (e *Excl) Recv() (*message.Message, pipe.Flags, error) {
	if !e.inReady {
		return nil, 0, errs.ErrWouldBlock
	}
	msg, flags, err := e.p.Recv()
	if err != nil {
		e.inReady = false
		return nil, 0, errs.ErrWouldBlock
	}
	if flags.Has(pipe.Release) {
		e.inReady = false
	}
	return msg, flags, nil
}
