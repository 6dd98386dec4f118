//go:build windows

// Package ipc implements the IPC transport on top of Windows Named Pipes.
package ipc

import (
	"context"
	"net"

	"github.com/Microsoft/go-winio"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/options"
	"github.com/multisocket/spcore/transport"
)

const pipePrefix = `\\.\pipe\`

type (
	dialer struct {
		opts options.Options
		path string
	}

	listener struct {
		opts     options.Options
		path     string
		listener net.Listener
	}
)

func (d *dialer) Dial(ctx context.Context) (transport.Connection, error) {
	conn, err := winio.DialPipeContext(ctx, pipePrefix+d.path)
	if err != nil {
		return nil, err
	}
	return transport.NewConnection(Transport, conn, d.opts), nil
}

func (l *listener) Listen() error {
	config := &winio.PipeConfig{
		SecurityDescriptor: Options.SecurityDescriptor.ValueFrom(l.opts),
		InputBufferSize:    int32(Options.InputBufferSize.ValueFrom(l.opts)),
		OutputBufferSize:   int32(Options.OutputBufferSize.ValueFrom(l.opts)),
		MessageMode:        false,
	}

	listener, err := winio.ListenPipe(pipePrefix+l.path, config)
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

	conn, err := l.listener.Accept()
	if err != nil {
		return nil, err
	}
	return transport.NewConnection(Transport, conn, l.opts), nil
}

func (l *listener) Address() string {
	return Transport.Scheme() + "://" + l.path
}

func (l *listener) Close() error {
	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

func (t ipcTran) NewDialer(address string, opts options.Options) (transport.Dialer, error) {
	var err error
	if address, err = transport.StripScheme(t, address); err != nil {
		return nil, err
	}

	return &dialer{opts: opts, path: address}, nil
}

// NewListener implements the Transport NewListener method.
func (t ipcTran) NewListener(address string, opts options.Options) (transport.Listener, error) {
	var err error
	if address, err = transport.StripScheme(t, address); err != nil {
		return nil, err
	}

	return &listener{opts: opts, path: address}, nil
}
