// Package pipe defines the contract between a socket and one attached
// transport connection.
//
// Flow control is carried by Flags on successful calls: a Send or Recv that
// returns Release tells the caller to stop using the pipe in that direction
// until the socket gets the next Out or In notification for it. A full
// outbound buffer or an empty inbound one is reported as
// errs.ErrTemporarilyUnavailable and is never an error for the application.
package pipe

import (
	"context"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
)

// Flags are flow-control results of Send and Recv.
type Flags uint8

// flags
const (
	// Release means the pipe must not be used in this direction until it is re-admitted.
	Release Flags = 1 << iota
	// Parsed means the message header and body are already split.
	Parsed
)

// ErrTemporarilyUnavailable is returned when the pipe cannot take or give a message now.
const ErrTemporarilyUnavailable = errs.ErrTemporarilyUnavailable

// priority bounds, 1 is the highest priority.
const (
	MinPriority     = 1
	MaxPriority     = 16
	DefaultPriority = 8
)

// Has reports whether all of f2 are set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

type (
	// Pipe is one live transport connection as seen by a protocol.
	Pipe interface {
		ID() uint32

		// SetData attaches the protocol's private state, once.
		SetData(data interface{})
		Data() interface{}

		// Send hands msg to the transport, the pipe owns msg on success.
		Send(msg *message.Message) (Flags, error)
		// Recv takes the next received message.
		Recv() (*message.Message, Flags, error)

		SendPriority() int
		RecvPriority() int
	}

	// Flusher is implemented by pipes buffering outbound messages.
	Flusher interface {
		// Flush waits until all accepted messages were written or ctx is done.
		Flush(ctx context.Context) error
	}
)
