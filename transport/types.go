package transport

import (
	"context"

	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/options"
)

// option levels of the transports
const (
	LevelInproc = -1
	LevelIPC    = -2
	LevelTCP    = -3
	LevelWS     = -4
)

type (
	// Connection is connection between peers.
	Connection interface {
		Transport() Transport

		// Handshake exchanges protocol ids with the peer.
		Handshake(proto int) (peer int, err error)

		// Send writes msg, the connection owns msg on success.
		Send(msg *message.Message) error
		Recv() (*message.Message, error)
		// Parsed reports whether received messages are already split.
		Parsed() bool

		Close() error

		LocalAddress() string
		RemoteAddress() string
	}

	// Dialer is dialer
	Dialer interface {
		Dial(ctx context.Context) (Connection, error)
	}

	// Listener is listener
	Listener interface {
		Listen() error
		Accept() (Connection, error)
		Close() error
		// Address is the bound address, with the real port once listening.
		Address() string
	}

	// Transport is transport
	Transport interface {
		Scheme() string
		// NewDialer and NewListener take a snapshot of the socket options.
		NewDialer(address string, opts options.Options) (Dialer, error)
		NewListener(address string, opts options.Options) (Listener, error)
	}
)
