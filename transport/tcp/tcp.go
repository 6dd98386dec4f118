// Package tcp implements the TCP transport . To enable it simply import it.
package tcp

import (
	"context"
	"net"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/options"
	"github.com/multisocket/spcore/socket"
	"github.com/multisocket/spcore/transport"
)

const (
	// Transport is a transport.Transport for TCP.
	Transport = tcpTran(0)
)

func init() {
	transport.Register(Transport)
}

func configTCP(conn *net.TCPConn, opts options.Options) error {
	if err := conn.SetNoDelay(Options.NoDelay.ValueFrom(opts) == 1); err != nil {
		return err
	}
	if err := conn.SetKeepAlive(Options.KeepAlive.ValueFrom(opts) == 1); err != nil {
		return err
	}
	return nil
}

func network(opts options.Options) string {
	if socket.Options.IPv4Only.ValueFrom(opts) == 1 {
		return "tcp4"
	}
	return "tcp"
}

type dialer struct {
	opts options.Options
	addr string
}

func (d *dialer) Dial(ctx context.Context) (transport.Connection, error) {
	nw := network(d.opts)
	addr, err := transport.ResolveTCPAddr(nw, d.addr)
	if err != nil {
		return nil, err
	}

	var nd net.Dialer
	c, err := nd.DialContext(ctx, nw, addr.String())
	if err != nil {
		return nil, err
	}
	conn := c.(*net.TCPConn)
	if err = configTCP(conn, d.opts); err != nil {
		conn.Close()
		return nil, err
	}

	return transport.NewConnection(Transport, conn, d.opts), nil
}

type listener struct {
	opts     options.Options
	addr     *net.TCPAddr
	bound    net.Addr
	listener *net.TCPListener
}

func (l *listener) Accept() (transport.Connection, error) {
	if l.listener == nil {
		return nil, errs.ErrClosed
	}
	conn, err := l.listener.AcceptTCP()
	if err != nil {
		return nil, err
	}
	if err = configTCP(conn, l.opts); err != nil {
		conn.Close()
		return nil, err
	}
	return transport.NewConnection(Transport, conn, l.opts), nil
}

func (l *listener) Listen() (err error) {
	l.listener, err = net.ListenTCP(network(l.opts), l.addr)
	if err == nil {
		l.bound = l.listener.Addr()
	}
	return
}

func (l *listener) Address() string {
	if b := l.bound; b != nil {
		return "tcp://" + b.String()
	}
	return "tcp://" + l.addr.String()
}

func (l *listener) Close() error {
	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

type tcpTran int

func (t tcpTran) Scheme() string {
	return "tcp"
}

func (t tcpTran) NewDialer(addr string, opts options.Options) (transport.Dialer, error) {
	var err error
	if addr, err = transport.StripScheme(t, addr); err != nil {
		return nil, err
	}

	// check to ensure the provided addr resolves correctly.
	if _, err = transport.ResolveTCPAddr(network(opts), addr); err != nil {
		return nil, err
	}

	return &dialer{opts: opts, addr: addr}, nil
}

func (t tcpTran) NewListener(addr string, opts options.Options) (transport.Listener, error) {
	var err error
	l := &listener{opts: opts}

	if addr, err = transport.StripScheme(t, addr); err != nil {
		return nil, err
	}

	if l.addr, err = transport.ResolveTCPAddr(network(opts), addr); err != nil {
		return nil, err
	}

	return l, nil
}
