package connector

import (
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	log "github.com/sirupsen/logrus"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/socket"
	"github.com/multisocket/spcore/transport"
)

// HandshakeWorkers bounds the handshakes a listener runs at once.
var HandshakeWorkers = 64

// Listener is a binding endpoint. Accepted connections are handshaken on a
// worker pool and attached as pipes.
type Listener struct {
	s     *socket.Socket
	tl    transport.Listener
	eopts socket.EndpointOptions
	pool  *ants.Pool

	doneq chan struct{}
	wg    sync.WaitGroup

	sync.Mutex
	closed bool
	conns  map[transport.Connection]struct{}
	pipes  map[*streamPipe]struct{}
}

// Listen binds addr and starts accepting connections.
func Listen(s *socket.Socket, addr string) (*Listener, error) {
	t, err := transport.Lookup(addr)
	if err != nil {
		return nil, err
	}
	tl, err := t.NewListener(addr, s.SnapshotOptions())
	if err != nil {
		return nil, err
	}
	if err = tl.Listen(); err != nil {
		s.Stats().Inc(socket.StatBindErrors)
		return nil, err
	}

	logger := log.WithField("domain", "connector")
	pool, err := ants.NewPool(HandshakeWorkers, ants.WithLogger(logger), ants.WithPanicHandler(func(v interface{}) {
		logger.WithField("panic", v).Error("handshake worker")
	}))
	if err != nil {
		tl.Close()
		return nil, err
	}

	l := &Listener{
		s:     s,
		tl:    tl,
		eopts: s.EndpointOptions(),
		pool:  pool,
		doneq: make(chan struct{}),
		conns: make(map[transport.Connection]struct{}),
		pipes: make(map[*streamPipe]struct{}),
	}
	go l.serve()
	return l, nil
}

// Address returns the bound address.
func (l *Listener) Address() string {
	return l.tl.Address()
}

func (l *Listener) logger() *log.Entry {
	return log.WithField("domain", "connector").
		WithFields(log.Fields{"fd": l.s.FD(), "addr": l.tl.Address()})
}

func (l *Listener) isClosed() bool {
	l.Lock()
	defer l.Unlock()
	return l.closed
}

func (l *Listener) serve() {
	defer close(l.doneq)
	if log.IsLevelEnabled(log.DebugLevel) {
		l.logger().Debug("accept start")
	}
	for {
		conn, err := l.tl.Accept()
		if err != nil {
			if err == errs.ErrClosed || l.isClosed() {
				break
			}
			l.s.Stats().Inc(socket.StatAcceptErrors)
			l.logger().WithError(err).Debug("accept failed")
			// Debounce a little bit, to avoid thrashing the CPU.
			time.Sleep(time.Second / 100)
			continue
		}

		l.wg.Add(1)
		if err = l.pool.Submit(func() {
			defer l.wg.Done()
			l.handshake(conn)
		}); err != nil {
			l.wg.Done()
			conn.Close()
			l.s.Stats().Inc(socket.StatDroppedConnections)
		}
	}
	if log.IsLevelEnabled(log.DebugLevel) {
		l.logger().Debug("accept end")
	}
}

func (l *Listener) handshake(conn transport.Connection) {
	stats := l.s.Stats()
	l.Lock()
	if l.closed {
		l.Unlock()
		conn.Close()
		return
	}
	l.conns[conn] = struct{}{}
	l.Unlock()

	stats.Add(socket.StatInProgressConnections, 1)
	peer, err := conn.Handshake(l.s.Type().Protocol)
	if err == nil && !l.s.Type().Peer(peer) {
		err = errs.ErrProtocolReject
	}
	stats.Add(socket.StatInProgressConnections, -1)

	l.Lock()
	delete(l.conns, conn)
	if err == nil && l.closed {
		err = errs.ErrClosed
	}
	if err != nil {
		l.Unlock()
		conn.Close()
		stats.Inc(socket.StatDroppedConnections)
		l.logger().WithError(err).Debug("handshake failed")
		return
	}
	p := newStreamPipe(l.s, conn, l.eopts, l.pipeDone)
	l.pipes[p] = struct{}{}
	l.Unlock()

	if err = p.start(); err != nil {
		return
	}
	stats.Inc(socket.StatAcceptedConnections)
	if log.IsLevelEnabled(log.DebugLevel) {
		l.logger().WithFields(log.Fields{"pipe": p.ID(), "remote": conn.RemoteAddress()}).Debug("accepted")
	}
}

func (l *Listener) pipeDone(p *streamPipe) {
	l.Lock()
	delete(l.pipes, p)
	l.Unlock()
	if p.broken() {
		l.s.Stats().Inc(socket.StatBrokenConnections)
	}
}

// Close stops accepting and closes every connection of the listener.
func (l *Listener) Close() error {
	l.Lock()
	if l.closed {
		l.Unlock()
		return errs.ErrClosed
	}
	l.closed = true
	conns := make([]transport.Connection, 0, len(l.conns))
	for c := range l.conns {
		conns = append(conns, c)
	}
	l.Unlock()

	err := l.tl.Close()
	for _, c := range conns {
		c.Close()
	}
	<-l.doneq
	l.wg.Wait()

	// no handshake adds pipes any more
	l.Lock()
	pipes := make([]*streamPipe, 0, len(l.pipes))
	for p := range l.pipes {
		pipes = append(pipes, p)
	}
	l.Unlock()
	for _, p := range pipes {
		p.Close()
	}
	l.pool.Release()
	return err
}
