//go:build !windows && !plan9

package ipc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/options"
	"github.com/multisocket/spcore/transport"
)

func TestIPCExchange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sp.sock")
	addr := "ipc://" + path

	l, err := Transport.NewListener(addr, options.NewOptions())
	require.NoError(t, err)
	require.NoError(t, l.Listen())
	defer l.Close()
	assert.Equal(t, addr, l.Address())

	accepted := make(chan transport.Connection, 1)
	go func() {
		c, err := l.Accept()
		assert.NoError(t, err)
		accepted <- c
	}()

	d, err := Transport.NewDialer(addr, options.NewOptions())
	require.NoError(t, err)
	dc, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer dc.Close()
	lc := <-accepted
	defer lc.Close()

	require.NoError(t, dc.Send(message.NewWithContent([]byte("ping"))))
	msg, err := lc.Recv()
	require.NoError(t, err)
	assert.Equal(t, "ping", string(msg.Body))
}

func TestIPCNotASocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regular")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	l, err := Transport.NewListener("ipc://"+path, options.NewOptions())
	require.NoError(t, err)
	assert.Equal(t, errs.ErrAddrInUse, l.Listen())
}
