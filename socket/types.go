package socket

import (
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/pipe"
)

// Events is the readiness reported by a protocol.
type Events uint8

// events
const (
	EventIn Events = 1 << iota
	EventOut
)

// Flags modify a single Send or Recv call.
type Flags int

// DontWait makes Send and Recv return errs.ErrWouldBlock instead of blocking.
const DontWait Flags = 1

// TypeFlags describe the directions a socket type supports.
type TypeFlags uint8

// type flags
const (
	NoSend TypeFlags = 1 << iota
	NoRecv
)

type (
	// Protocol is the protocol specific part of a socket.
	// All methods are called with the socket mutex held and must not block
	// nor call back into the Socket.
	Protocol interface {
		// Add admits a pipe, errs.ErrProtocolReject refuses it.
		Add(p pipe.Pipe) error
		// Rm removes a pipe, the protocol must drop every reference to it.
		Rm(p pipe.Pipe)
		// In tells the protocol p has a message to receive.
		In(p pipe.Pipe)
		// Out tells the protocol p can take a message.
		Out(p pipe.Pipe)
		// Events reports whether Send or Recv can currently proceed.
		Events() Events

		// Send returns errs.ErrWouldBlock when no pipe can take msg.
		Send(msg *message.Message) error
		// Recv returns errs.ErrWouldBlock when no message is available.
		Recv() (*message.Message, error)

		SetOption(level, id int, val []byte) error
		GetOption(level, id int) ([]byte, error)

		// Destroy releases the protocol once all pipes are gone.
		Destroy()
	}

	// Headerer is implemented by protocols with a raw header format.
	Headerer interface {
		SetHdr(msg *message.Message, hdr []byte) error
		GetHdr(msg *message.Message) ([]byte, error)
	}

	// Stopper is implemented by protocols that need to know a socket is stopping.
	Stopper interface {
		Stop()
	}

	// Factory creates the protocol part of a new socket.
	Factory func(s *Socket) (Protocol, error)

	// Type is a socket type registration record.
	Type struct {
		Domain   int
		Protocol int
		Name     string
		Flags    TypeFlags
		// IsPeer reports whether a remote protocol id can talk to this type.
		IsPeer func(protocol int) bool
		Create Factory
	}

	// Endpoint is a bind or connect target owned by a socket.
	Endpoint interface {
		Address() string
		Close() error
	}

	// EndpointInfo describes an endpoint of a socket.
	EndpointInfo struct {
		ID      int
		Address string
	}
)

// Peer reports whether protocol is a valid peer of t.
func (t *Type) Peer(protocol int) bool {
	if t.IsPeer == nil {
		return protocol == t.Protocol
	}
	return t.IsPeer(protocol)
}
