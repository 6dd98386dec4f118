// Package inproc implements the in-process transport. Messages are passed as
// values between the two ends, already split into header and body.
package inproc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/options"
	"github.com/multisocket/spcore/transport"
)

type (
	inprocTran int

	dialer struct {
		opts options.Options
		addr string
	}

	listener struct {
		opts    options.Options
		addr    string
		accepts chan chan *inprocConn
		closedq chan struct{}
		once    sync.Once
	}

	// inprocConn is one end of an in-process connection.
	inprocConn struct {
		laddr string
		raddr string

		rq  <-chan *message.Message
		wq  chan<- *message.Message
		hsr <-chan int
		hsw chan<- int

		closedq chan struct{}
		peerq   chan struct{}
		once    sync.Once
	}
)

const (
	// Transport is a transport.Transport for intra-process communication.
	Transport = inprocTran(0)
	scheme    = "inproc"

	defaultAcceptQueueSize = 8
)

var listeners struct {
	sync.RWMutex
	// Who is listening, on which "address"?
	byAddr map[string]*listener
}

func init() {
	listeners.byAddr = make(map[string]*listener)
	transport.Register(Transport)
}

// newConnPair creates both ends of a connection.
func newConnPair(laddr, raddr string, qsz int) (lc, rc *inprocConn) {
	lq := make(chan *message.Message, qsz)
	rq := make(chan *message.Message, qsz)
	lhs := make(chan int, 1)
	rhs := make(chan int, 1)
	lclosed := make(chan struct{})
	rclosed := make(chan struct{})

	lc = &inprocConn{laddr: laddr, raddr: raddr, rq: lq, wq: rq, hsr: lhs, hsw: rhs, closedq: lclosed, peerq: rclosed}
	rc = &inprocConn{laddr: raddr, raddr: laddr, rq: rq, wq: lq, hsr: rhs, hsw: lhs, closedq: rclosed, peerq: lclosed}
	return
}

func (c *inprocConn) Transport() transport.Transport {
	return Transport
}

func (c *inprocConn) Handshake(proto int) (int, error) {
	c.hsw <- proto
	select {
	case peer := <-c.hsr:
		return peer, nil
	case <-c.closedq:
		return 0, errs.ErrClosed
	case <-c.peerq:
		return 0, errs.ErrClosed
	case <-time.After(transport.HandshakeTimeout):
		return 0, errs.ErrTimeout
	}
}

func (c *inprocConn) Send(msg *message.Message) error {
	select {
	case <-c.closedq:
		return errs.ErrClosed
	case <-c.peerq:
		return errs.ErrClosed
	default:
	}
	select {
	case c.wq <- msg:
		return nil
	case <-c.closedq:
		return errs.ErrClosed
	case <-c.peerq:
		return errs.ErrClosed
	}
}

func (c *inprocConn) Recv() (*message.Message, error) {
	select {
	case msg := <-c.rq:
		return msg, nil
	case <-c.closedq:
		return nil, errs.ErrClosed
	case <-c.peerq:
		// deliver what the peer sent before closing
		select {
		case msg := <-c.rq:
			return msg, nil
		default:
			return nil, errs.ErrClosed
		}
	}
}

func (c *inprocConn) Parsed() bool {
	return true
}

func (c *inprocConn) Close() error {
	c.once.Do(func() { close(c.closedq) })
	return nil
}

func (c *inprocConn) LocalAddress() string {
	return fmt.Sprintf("%s://%s", scheme, c.laddr)
}

func (c *inprocConn) RemoteAddress() string {
	return fmt.Sprintf("%s://%s", scheme, c.raddr)
}

// dialer

func (d *dialer) Dial(ctx context.Context) (transport.Connection, error) {
	listeners.RLock()
	l, ok := listeners.byAddr[d.addr]
	listeners.RUnlock()
	if !ok {
		return nil, errs.ErrConnRefused
	}

	ac := make(chan *inprocConn, 1)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closedq:
		return nil, errs.ErrConnRefused
	case l.accepts <- ac:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closedq:
		return nil, errs.ErrConnRefused
	case dc := <-ac:
		return dc, nil
	}
}

// listener

func (l *listener) Listen() error {
	select {
	case <-l.closedq:
		return errs.ErrClosed
	default:
	}

	listeners.Lock()
	defer listeners.Unlock()
	if xl, ok := listeners.byAddr[l.addr]; ok {
		if xl != l {
			return errs.ErrAddrInUse
		}
		// already in listening
		return nil
	}
	listeners.byAddr[l.addr] = l
	return nil
}

func (l *listener) Accept() (transport.Connection, error) {
	select {
	case <-l.closedq:
		return nil, errs.ErrClosed
	case ac := <-l.accepts:
		lc, dc := newConnPair(l.addr, l.addr+".dialer", Options.QueueSize.ValueFrom(l.opts))
		// ac is buffered, the dialer may have given up already
		ac <- dc
		return lc, nil
	}
}

func (l *listener) Address() string {
	return scheme + "://" + l.addr
}

func (l *listener) Close() error {
	l.once.Do(func() {
		close(l.closedq)
		listeners.Lock()
		if listeners.byAddr[l.addr] == l {
			delete(listeners.byAddr, l.addr)
		}
		listeners.Unlock()
	})
	return nil
}

// inprocTran

func (inprocTran) Scheme() string {
	return scheme
}

func (t inprocTran) NewDialer(addr string, opts options.Options) (transport.Dialer, error) {
	var err error
	if addr, err = transport.StripScheme(t, addr); err != nil {
		return nil, err
	}
	return &dialer{opts: opts, addr: addr}, nil
}

func (t inprocTran) NewListener(addr string, opts options.Options) (transport.Listener, error) {
	var err error
	if addr, err = transport.StripScheme(t, addr); err != nil {
		return nil, err
	}

	return &listener{
		opts:    opts,
		addr:    addr,
		accepts: make(chan chan *inprocConn, defaultAcceptQueueSize),
		closedq: make(chan struct{}),
	}, nil
}
