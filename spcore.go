// Package spcore exposes sockets through small integer handles.
//
// A handle is obtained from Socket and released by Close. Transports and
// protocols register themselves from init, import transport/all and the
// protocol packages to make them available.
package spcore

import (
	"context"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"
	log "github.com/sirupsen/logrus"

	"github.com/multisocket/spcore/connector"
	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/protocol"
	"github.com/multisocket/spcore/socket"
	"github.com/multisocket/spcore/utils"
)

// MaxSockets is the number of sockets that can be open at once.
const MaxSockets = 512

// DontWait makes Send and Recv fail with errs.ErrWouldBlock instead of blocking.
const DontWait = socket.DontWait

var (
	handles = utils.NewHandleAllocator(MaxSockets)
	sockets = cmap.NewWithCustomShardingFunction[int, *socket.Socket](func(fd int) uint32 {
		return uint32(fd)
	})

	global struct {
		sync.Mutex
		terminating bool
	}
)

func lookup(fd int) (*socket.Socket, error) {
	s, ok := sockets.Get(fd)
	if !ok {
		return nil, errs.ErrBadHandle
	}
	return s, nil
}

// Socket creates a socket of the registered (domain, protocol) type.
func Socket(domain, proto int) (int, error) {
	global.Lock()
	defer global.Unlock()
	if global.terminating {
		return -1, errs.ErrTerminating
	}

	fd, ok := handles.Alloc()
	if !ok {
		return -1, errs.ErrTooManySockets
	}
	s, err := protocol.Create(domain, proto, fd)
	if err != nil {
		handles.Free(fd)
		return -1, err
	}
	sockets.Set(fd, s)
	return fd, nil
}

// Close stops the socket, waits for queued messages to go out for at most
// the linger time and releases it.
func Close(fd int) error {
	s, ok := sockets.Pop(fd)
	if !ok {
		return errs.ErrBadHandle
	}

	s.Stop()
	if err := s.Linger(context.Background()); err != nil {
		log.WithField("domain", "spcore").
			WithField("fd", fd).
			WithError(err).Debug("linger")
	}
	err := s.Term()
	handles.Free(fd)

	global.Lock()
	if global.terminating && handles.Count() == 0 {
		global.terminating = false
	}
	global.Unlock()
	return err
}

// Bind adds a listening endpoint and returns its id.
func Bind(fd int, addr string) (int, error) {
	s, err := lookup(fd)
	if err != nil {
		return -1, err
	}
	l, err := connector.Listen(s, addr)
	if err != nil {
		return -1, err
	}
	eid, err := s.AddEndpoint(l)
	if err != nil {
		l.Close()
		return -1, err
	}
	return eid, nil
}

// Connect adds a connecting endpoint and returns its id. Connection
// failures are retried in the background.
func Connect(fd int, addr string) (int, error) {
	s, err := lookup(fd)
	if err != nil {
		return -1, err
	}
	d, err := connector.Dial(s, addr)
	if err != nil {
		return -1, err
	}
	eid, err := s.AddEndpoint(d)
	if err != nil {
		d.Close()
		return -1, err
	}
	return eid, nil
}

// Shutdown removes an endpoint and closes its connections.
func Shutdown(fd, eid int) error {
	s, err := lookup(fd)
	if err != nil {
		return err
	}
	return s.RmEndpoint(eid)
}

// Send sends msg, the socket owns msg on success.
func Send(fd int, msg *message.Message, flags socket.Flags) error {
	s, err := lookup(fd)
	if err != nil {
		return err
	}
	return s.Send(msg, flags)
}

// SendBytes sends a copy of b.
func SendBytes(fd int, b []byte, flags socket.Flags) error {
	msg := message.NewWithContent(b)
	if err := Send(fd, msg, flags); err != nil {
		msg.Free()
		return err
	}
	return nil
}

// Recv receives a message.
func Recv(fd int, flags socket.Flags) (*message.Message, error) {
	s, err := lookup(fd)
	if err != nil {
		return nil, err
	}
	return s.Recv(flags)
}

// RecvBytes receives a message and returns a copy of its body.
func RecvBytes(fd int, flags socket.Flags) ([]byte, error) {
	msg, err := Recv(fd, flags)
	if err != nil {
		return nil, err
	}
	b := append([]byte(nil), msg.Body...)
	msg.Free()
	return b, nil
}

// Statistic reads a socket statistic.
func Statistic(fd int, id socket.Statistic) (uint64, error) {
	s, err := lookup(fd)
	if err != nil {
		return 0, err
	}
	return s.Statistic(id)
}

// Term stops every socket: blocked and later calls fail with
// errs.ErrTerminating and no socket can be created until all are closed.
func Term() {
	global.Lock()
	global.terminating = true
	global.Unlock()

	for item := range sockets.IterBuffered() {
		item.Val.Stop()
	}
	log.WithField("domain", "spcore").Debug("terminating")
}

// Endpoints lists the endpoints of a socket ordered by id.
func Endpoints(fd int) ([]socket.EndpointInfo, error) {
	s, err := lookup(fd)
	if err != nil {
		return nil, err
	}
	return s.Endpoints(), nil
}
