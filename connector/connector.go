// Package connector implements the endpoints of a socket: a Listener binds an
// address and a Dialer connects to one. Both turn transport connections into
// pipes attached to the socket after the SP handshake.
package connector

import (
	"github.com/multisocket/spcore/pipe"
	"github.com/multisocket/spcore/socket"
)

var (
	_ socket.Endpoint = (*Dialer)(nil)
	_ socket.Endpoint = (*Listener)(nil)
	_ pipe.Pipe       = (*streamPipe)(nil)
	_ pipe.Flusher    = (*streamPipe)(nil)
)
