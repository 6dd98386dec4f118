package connector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/options"
	"github.com/multisocket/spcore/protocol/pair"
	"github.com/multisocket/spcore/socket"
	"github.com/multisocket/spcore/transport"
)

// gatedConn holds every Send until the gate is opened.
type gatedConn struct {
	gate    chan struct{}
	sent    chan *message.Message
	rq      chan *message.Message
	closedq chan struct{}
	once    sync.Once
}

func newGatedConn() *gatedConn {
	return &gatedConn{
		gate:    make(chan struct{}),
		sent:    make(chan *message.Message, 64),
		rq:      make(chan *message.Message, 64),
		closedq: make(chan struct{}),
	}
}

func (c *gatedConn) Transport() transport.Transport   { return nil }
func (c *gatedConn) Handshake(proto int) (int, error) { return proto, nil }
func (c *gatedConn) Parsed() bool                     { return true }
func (c *gatedConn) LocalAddress() string             { return "gated://local" }
func (c *gatedConn) RemoteAddress() string            { return "gated://remote" }

func (c *gatedConn) Send(msg *message.Message) error {
	select {
	case <-c.gate:
	case <-c.closedq:
		return errs.ErrClosed
	}
	c.sent <- msg
	return nil
}

func (c *gatedConn) Recv() (*message.Message, error) {
	select {
	case msg := <-c.rq:
		return msg, nil
	case <-c.closedq:
		return nil, errs.ErrClosed
	}
}

func (c *gatedConn) Close() error {
	c.once.Do(func() { close(c.closedq) })
	return nil
}

func startGatedPipe(t *testing.T, sndbuf int) (*socket.Socket, *gatedConn, *streamPipe, chan struct{}) {
	s := newSocket(t, pair.Type)
	conn := newGatedConn()
	done := make(chan struct{})
	p := newStreamPipe(s, conn, socket.EndpointOptions{SendBuffer: sndbuf, SendPriority: 8, RecvPriority: 8},
		func(*streamPipe) { close(done) })
	require.NoError(t, p.start())
	return s, conn, p, done
}

func TestStreamPipeBackpressure(t *testing.T) {
	s, conn, p, done := startGatedPipe(t, 10)

	accepted := 0
	for {
		err := s.Send(message.NewWithContent([]byte("abcd")), socket.DontWait)
		if err == errs.ErrWouldBlock {
			break
		}
		require.NoError(t, err)
		accepted++
	}
	// the third message reaches sndbuf and releases the pipe
	assert.Equal(t, 3, accepted)

	close(conn.gate)
	require.NoError(t, s.Send(message.NewWithContent([]byte("more")), 0))
	require.NoError(t, p.Flush(context.Background()))
	assert.Len(t, conn.sent, 4)

	p.Close()
	<-done
	assert.False(t, p.broken())
	require.NoError(t, s.Term())
}

func TestStreamPipeFlushTimeout(t *testing.T) {
	s, _, p, done := startGatedPipe(t, 1024)

	require.NoError(t, s.Send(message.NewWithContent([]byte("stuck")), 0))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Equal(t, context.DeadlineExceeded, p.Flush(ctx))

	// linger gives up the same way
	require.NoError(t, s.SetOption(options.LevelSocket, socket.OptionLinger, options.EncodeInt(20)))
	assert.Equal(t, context.DeadlineExceeded, s.Linger(context.Background()))

	p.Close()
	<-done
	require.NoError(t, s.Term())
}

func TestStreamPipeRecv(t *testing.T) {
	s, conn, p, done := startGatedPipe(t, 1024)

	for _, body := range []string{"a", "b", "c"} {
		conn.rq <- message.NewWithContent([]byte(body))
	}
	for _, body := range []string{"a", "b", "c"} {
		msg, err := s.Recv(0)
		require.NoError(t, err)
		assert.Equal(t, body, string(msg.Body))
	}

	// the peer going away removes the pipe
	conn.Close()
	<-done
	assert.True(t, p.broken())
	assert.Empty(t, s.Pipes())
	require.NoError(t, s.Term())
}

// stallConn holds the handshake until released.
type stallConn struct {
	*gatedConn
	hs chan struct{}
}

func (c *stallConn) Handshake(proto int) (int, error) {
	<-c.hs
	return proto, nil
}

type stallTran struct{ conn *stallConn }

func (t stallTran) Scheme() string { return "stall" }
func (t stallTran) NewDialer(string, options.Options) (transport.Dialer, error) {
	return t, nil
}
func (t stallTran) NewListener(string, options.Options) (transport.Listener, error) {
	return nil, errs.ErrNotSupported
}
func (t stallTran) Dial(ctx context.Context) (transport.Connection, error) {
	return t.conn, nil
}

func TestDialerClosedDuringHandshake(t *testing.T) {
	conn := &stallConn{gatedConn: newGatedConn(), hs: make(chan struct{})}
	transport.Register(stallTran{conn})

	s := newSocket(t, pair.Type)
	d := mustDial(t, s, "stall://x")
	require.Eventually(t, func() bool {
		d.Lock()
		defer d.Unlock()
		return d.conn != nil
	}, time.Second, time.Millisecond)

	closed := make(chan error, 1)
	go func() { closed <- d.Close() }()
	select {
	case <-conn.closedq:
	case <-time.After(time.Second):
		t.Fatal("connection not closed")
	}
	// the handshake completes after the dialer closed
	close(conn.hs)
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("dialer close blocked")
	}

	assert.Zero(t, stat(s, socket.StatEstablishedConnections))
	assert.Empty(t, s.Pipes())
	require.NoError(t, s.Term())
}
