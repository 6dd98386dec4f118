//go:build !windows && !plan9

// Package ipc implements the IPC transport on top of UNIX domain sockets.
package ipc

import (
	"context"
	"net"
	"os"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/options"
	"github.com/multisocket/spcore/transport"
)

type (
	dialer struct {
		opts options.Options
		addr *net.UnixAddr
	}

	listener struct {
		opts     options.Options
		addr     *net.UnixAddr
		listener *net.UnixListener
	}
)

func (d *dialer) Dial(ctx context.Context) (transport.Connection, error) {
	var nd net.Dialer
	conn, err := nd.DialContext(ctx, "unix", d.addr.String())
	if err != nil {
		return nil, err
	}
	return transport.NewConnection(Transport, conn, d.opts), nil
}

func (l *listener) Listen() error {
	// remove exists socket file
	path := l.addr.String()
	if stat, err := os.Stat(path); err == nil {
		if stat.Mode()&os.ModeSocket == 0 {
			return errs.ErrAddrInUse
		}
		if err := os.Remove(path); err != nil {
			return errs.ErrAddrInUse
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	listener, err := net.ListenUnix("unix", l.addr)
	if err != nil {
		return err
	}
	l.listener = listener
	return nil
}

func (l *listener) Accept() (transport.Connection, error) {
	if l.listener == nil {
		return nil, errs.ErrClosed
	}

	conn, err := l.listener.AcceptUnix()
	if err != nil {
		return nil, err
	}
	return transport.NewConnection(Transport, conn, l.opts), nil
}

func (l *listener) Address() string {
	return Transport.Scheme() + "://" + l.addr.String()
}

// Close implements the Listener Close method.
func (l *listener) Close() error {
	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

func (t ipcTran) NewDialer(address string, opts options.Options) (transport.Dialer, error) {
	var (
		err  error
		addr *net.UnixAddr
	)

	if address, err = transport.StripScheme(t, address); err != nil {
		return nil, err
	}

	if addr, err = net.ResolveUnixAddr("unix", address); err != nil {
		return nil, err
	}

	return &dialer{opts: opts, addr: addr}, nil
}

// NewListener implements the Transport NewListener method.
func (t ipcTran) NewListener(address string, opts options.Options) (transport.Listener, error) {
	var (
		err  error
		addr *net.UnixAddr
	)

	if address, err = transport.StripScheme(t, address); err != nil {
		return nil, err
	}

	if addr, err = net.ResolveUnixAddr("unix", address); err != nil {
		return nil, err
	}

	return &listener{opts: opts, addr: addr}, nil
}
