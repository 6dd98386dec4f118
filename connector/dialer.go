package connector

import (
	"context"
	"sync"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/socket"
	"github.com/multisocket/spcore/transport"
	"github.com/multisocket/spcore/utils"
)

// Dialer is a connecting endpoint. It keeps one connection to its address
// and redials with backoff whenever the connection fails or breaks.
type Dialer struct {
	s     *socket.Socket
	addr  string
	td    transport.Dialer
	eopts socket.EndpointOptions
	bo    backoff.BackOff

	ctx    context.Context
	cancel context.CancelFunc
	doneq  chan struct{}

	sync.Mutex
	closed bool
	conn   transport.Connection
	cur    *streamPipe
}

// newBackOff grows the redial interval from ivl to maxIvl, a zero maxIvl keeps it constant.
func newBackOff(ivl, maxIvl int) backoff.BackOff {
	if maxIvl <= ivl {
		return backoff.NewConstantBackOff(utils.Millis(ivl))
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = utils.Millis(ivl)
	bo.MaxInterval = utils.Millis(maxIvl)
	bo.Multiplier = 2
	bo.RandomizationFactor = 0.2
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

// Dial creates a Dialer for addr and starts connecting in the background.
// Only address errors are reported, connection failures are retried.
func Dial(s *socket.Socket, addr string) (*Dialer, error) {
	t, err := transport.Lookup(addr)
	if err != nil {
		return nil, err
	}
	td, err := t.NewDialer(addr, s.SnapshotOptions())
	if err != nil {
		return nil, err
	}

	eopts := s.EndpointOptions()
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dialer{
		s:      s,
		addr:   addr,
		td:     td,
		eopts:  eopts,
		bo:     backoff.WithContext(newBackOff(eopts.ReconnectInterval, eopts.ReconnectIntervalMax), ctx),
		ctx:    ctx,
		cancel: cancel,
		doneq:  make(chan struct{}),
	}
	go d.run()
	return d, nil
}

// Address returns the address being dialed.
func (d *Dialer) Address() string {
	return d.addr
}

func (d *Dialer) logger() *log.Entry {
	return log.WithField("domain", "connector").
		WithFields(log.Fields{"fd": d.s.FD(), "addr": d.addr})
}

func (d *Dialer) run() {
	defer close(d.doneq)

	tm := utils.NewTimer()
	defer tm.Stop()
	for {
		if d.connect() {
			d.bo.Reset()
		}

		wait := d.bo.NextBackOff()
		if wait == backoff.Stop {
			return
		}
		if log.IsLevelEnabled(log.DebugLevel) {
			d.logger().WithField("wait", wait).Debug("redial")
		}
		tm.Reset(wait)
		select {
		case <-d.ctx.Done():
			return
		case <-tm.C:
		}
	}
}

// connect dials once and serves the connection until it closes. It reports
// whether a pipe was established.
func (d *Dialer) connect() bool {
	stats := d.s.Stats()
	stats.Add(socket.StatInProgressConnections, 1)
	conn, err := d.td.Dial(d.ctx)
	if err == nil {
		d.Lock()
		if d.closed {
			d.Unlock()
			conn.Close()
			stats.Add(socket.StatInProgressConnections, -1)
			return false
		}
		d.conn = conn
		d.Unlock()

		var peer int
		if peer, err = conn.Handshake(d.s.Type().Protocol); err == nil && !d.s.Type().Peer(peer) {
			err = errs.ErrProtocolReject
		}
		if err != nil {
			conn.Close()
		}
	}
	stats.Add(socket.StatInProgressConnections, -1)
	if err != nil {
		if d.ctx.Err() == nil {
			stats.Inc(socket.StatConnectErrors)
			stats.Set(socket.StatCurrentEndpointErrors, 1)
			d.logger().WithError(err).Debug("dial failed")
		}
		return false
	}

	closedq := make(chan struct{})
	p := newStreamPipe(d.s, conn, d.eopts, func(*streamPipe) { close(closedq) })
	d.Lock()
	if d.closed {
		d.Unlock()
		p.Close()
		p.finish()
		return false
	}
	d.cur = p
	d.Unlock()
	if err = p.start(); err != nil {
		d.logger().WithError(err).Debug("pipe not attached")
		return false
	}
	stats.Inc(socket.StatEstablishedConnections)
	stats.Set(socket.StatCurrentEndpointErrors, 0)
	if log.IsLevelEnabled(log.DebugLevel) {
		d.logger().WithFields(log.Fields{"pipe": p.ID(), "remote": conn.RemoteAddress()}).Debug("connected")
	}

	<-closedq
	if p.broken() {
		stats.Inc(socket.StatBrokenConnections)
	}
	d.Lock()
	d.cur = nil
	d.conn = nil
	d.Unlock()
	return true
}

// Close stops redialing and closes the current connection.
func (d *Dialer) Close() error {
	d.Lock()
	if d.closed {
		d.Unlock()
		return errs.ErrClosed
	}
	d.closed = true
	d.cancel()
	cur, conn := d.cur, d.conn
	d.Unlock()

	if cur != nil {
		cur.Close()
	} else if conn != nil {
		conn.Close()
	}
	<-d.doneq
	return nil
}
