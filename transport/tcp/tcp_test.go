package tcp

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/options"
	"github.com/multisocket/spcore/transport"
)

func TestTCPExchange(t *testing.T) {
	opts := options.NewOptions().WithOption(Options.NoDelay, options.EncodeInt(1))
	l, err := Transport.NewListener("tcp://127.0.0.1:0", opts)
	require.NoError(t, err)
	require.NoError(t, l.Listen())
	defer l.Close()
	assert.True(t, strings.HasPrefix(l.Address(), "tcp://127.0.0.1:"))
	assert.NotEqual(t, "tcp://127.0.0.1:0", l.Address())

	accepted := make(chan transport.Connection, 1)
	go func() {
		c, err := l.Accept()
		assert.NoError(t, err)
		accepted <- c
	}()

	d, err := Transport.NewDialer(l.Address(), opts)
	require.NoError(t, err)
	dc, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer dc.Close()
	lc := <-accepted
	defer lc.Close()

	go dc.Handshake(0x50)
	peer, err := lc.Handshake(0x51)
	require.NoError(t, err)
	assert.Equal(t, 0x50, peer)

	require.NoError(t, lc.Send(message.NewWithContent([]byte("hello"))))
	msg, err := dc.Recv()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(msg.Body))
}

func TestTCPOptionsRegistered(t *testing.T) {
	opt, ok := options.Lookup(transport.LevelTCP, OptionNoDelay)
	require.True(t, ok)
	assert.Equal(t, "tcp.nodelay", opt.Name())
}
