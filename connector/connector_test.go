package connector

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/options"
	"github.com/multisocket/spcore/protocol/pair"
	"github.com/multisocket/spcore/protocol/pipeline"
	"github.com/multisocket/spcore/socket"
	_ "github.com/multisocket/spcore/transport/inproc"
	_ "github.com/multisocket/spcore/transport/tcp"
)

var nextFd int32 = 100

func newSocket(t *testing.T, typ *socket.Type) *socket.Socket {
	s, err := socket.New(typ, int(atomic.AddInt32(&nextFd, 1)))
	require.NoError(t, err)
	require.NoError(t, s.SetOption(options.LevelSocket, socket.OptionSendTimeout, options.EncodeInt(2000)))
	require.NoError(t, s.SetOption(options.LevelSocket, socket.OptionRecvTimeout, options.EncodeInt(2000)))
	require.NoError(t, s.SetOption(options.LevelSocket, socket.OptionReconnectInterval, options.EncodeInt(10)))
	return s
}

func bind(t *testing.T, s *socket.Socket, addr string) *Listener {
	l, err := Listen(s, addr)
	require.NoError(t, err)
	_, err = s.AddEndpoint(l)
	require.NoError(t, err)
	return l
}

func connect(t *testing.T, s *socket.Socket, addr string) *Dialer {
	d, err := Dial(s, addr)
	require.NoError(t, err)
	_, err = s.AddEndpoint(d)
	require.NoError(t, err)
	return d
}

func stat(s *socket.Socket, id socket.Statistic) uint64 {
	v, _ := s.Statistic(id)
	return v
}

func exchange(t *testing.T, addr string) {
	srv := newSocket(t, pair.Type)
	cli := newSocket(t, pair.Type)
	l := bind(t, srv, addr)
	connect(t, cli, l.Address())

	require.NoError(t, cli.Send(message.NewWithContent([]byte("ping")), 0))
	msg, err := srv.Recv(0)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(msg.Body))

	require.NoError(t, srv.Send(message.NewWithContent([]byte("pong")), 0))
	msg, err = cli.Recv(0)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(msg.Body))

	assert.Eventually(t, func() bool {
		return stat(cli, socket.StatEstablishedConnections) == 1 &&
			stat(srv, socket.StatAcceptedConnections) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, srv.Term())
	assert.Empty(t, srv.Pipes())
	assert.Eventually(t, func() bool {
		return len(cli.Pipes()) == 0 && stat(cli, socket.StatBrokenConnections) == 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, cli.Term())
}

func TestInprocExchange(t *testing.T) {
	exchange(t, "inproc://connector-exchange")
}

func TestTCPExchange(t *testing.T) {
	exchange(t, "tcp://127.0.0.1:0")
}

func TestDialBeforeBind(t *testing.T) {
	cli := newSocket(t, pair.Type)
	connect(t, cli, "inproc://connector-late")
	assert.Eventually(t, func() bool {
		return stat(cli, socket.StatConnectErrors) > 0
	}, time.Second, 5*time.Millisecond)

	srv := newSocket(t, pair.Type)
	bind(t, srv, "inproc://connector-late")

	require.NoError(t, cli.Send(message.NewWithContent([]byte("late")), 0))
	msg, err := srv.Recv(0)
	require.NoError(t, err)
	assert.Equal(t, "late", string(msg.Body))

	require.NoError(t, cli.Term())
	require.NoError(t, srv.Term())
}

func TestPeerMismatch(t *testing.T) {
	srv := newSocket(t, pipeline.PullType)
	cli := newSocket(t, pair.Type)
	bind(t, srv, "inproc://connector-mismatch")
	connect(t, cli, "inproc://connector-mismatch")

	assert.Eventually(t, func() bool {
		return stat(cli, socket.StatConnectErrors) >= 2 && stat(srv, socket.StatDroppedConnections) >= 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, cli.Pipes())
	assert.Empty(t, srv.Pipes())

	require.NoError(t, cli.Term())
	require.NoError(t, srv.Term())
}

func TestPipelineFanIn(t *testing.T) {
	pull := newSocket(t, pipeline.PullType)
	l := bind(t, pull, "tcp://127.0.0.1:0")

	const pushers, count = 3, 20
	var socks []*socket.Socket
	for i := 0; i < pushers; i++ {
		s := newSocket(t, pipeline.PushType)
		connect(t, s, l.Address())
		socks = append(socks, s)
	}

	var wg sync.WaitGroup
	for i, s := range socks {
		wg.Add(1)
		go func(i int, s *socket.Socket) {
			defer wg.Done()
			for j := 0; j < count; j++ {
				assert.NoError(t, s.Send(message.NewWithContent([]byte(fmt.Sprintf("%d-%d", i, j))), 0))
			}
		}(i, s)
	}

	got := make(map[string]bool)
	for n := 0; n < pushers*count; n++ {
		msg, err := pull.Recv(0)
		require.NoError(t, err)
		got[string(msg.Body)] = true
	}
	wg.Wait()
	assert.Len(t, got, pushers*count)

	for _, s := range socks {
		require.NoError(t, s.Term())
	}
	require.NoError(t, pull.Term())
}

func TestBindErrors(t *testing.T) {
	s := newSocket(t, pair.Type)
	defer s.Term()

	_, err := Listen(s, "bogus://x")
	assert.Equal(t, errs.ErrBadTransport, err)
	_, err = Dial(s, "bogus://x")
	assert.Equal(t, errs.ErrBadTransport, err)

	bind(t, s, "inproc://connector-twice")
	_, err = Listen(s, "inproc://connector-twice")
	assert.Equal(t, errs.ErrAddrInUse, err)
	assert.Equal(t, uint64(1), stat(s, socket.StatBindErrors))
}

func TestShutdownClosesPipes(t *testing.T) {
	srv := newSocket(t, pair.Type)
	cli := newSocket(t, pair.Type)
	bind(t, srv, "inproc://connector-shutdown")
	eid, err := cli.AddEndpoint(mustDial(t, cli, "inproc://connector-shutdown"))
	require.NoError(t, err)

	require.NoError(t, cli.Send(message.NewWithContent([]byte("x")), 0))
	_, err = srv.Recv(0)
	require.NoError(t, err)

	require.NoError(t, cli.RmEndpoint(eid))
	assert.Eventually(t, func() bool {
		return len(cli.Pipes()) == 0 && len(srv.Pipes()) == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(0), stat(cli, socket.StatBrokenConnections))

	require.NoError(t, cli.Term())
	require.NoError(t, srv.Term())
}

func mustDial(t *testing.T, s *socket.Socket, addr string) *Dialer {
	d, err := Dial(s, addr)
	require.NoError(t, err)
	return d
}

func TestDialerCloseWhileRefused(t *testing.T) {
	s := newSocket(t, pair.Type)
	d := mustDial(t, s, "inproc://connector-nobody")
	done := make(chan struct{})
	go func() {
		assert.NoError(t, d.Close())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dialer close blocked")
	}
	assert.Equal(t, errs.ErrClosed, d.Close())
	require.NoError(t, s.Term())
}

func TestBackOff(t *testing.T) {
	bo := newBackOff(100, 0)
	for i := 0; i < 3; i++ {
		assert.Equal(t, 100*time.Millisecond, bo.NextBackOff())
	}

	bo = newBackOff(100, 400)
	first := bo.NextBackOff()
	assert.GreaterOrEqual(t, first, 80*time.Millisecond)
	assert.LessOrEqual(t, first, 120*time.Millisecond)
	var last time.Duration
	for i := 0; i < 10; i++ {
		last = bo.NextBackOff()
		assert.LessOrEqual(t, last, 480*time.Millisecond)
	}
	assert.GreaterOrEqual(t, last, 320*time.Millisecond)

	bo.Reset()
	first = bo.NextBackOff()
	assert.LessOrEqual(t, first, 120*time.Millisecond)
}
