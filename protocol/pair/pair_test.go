package pair

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/pipe"
	"github.com/multisocket/spcore/protocol"
	"github.com/multisocket/spcore/socket"
)

// loopPipe hands every sent message back to Recv.
type loopPipe struct {
	pipe.Base
	q []*message.Message
}

func newLoopPipe(id uint32) *loopPipe {
	p := &loopPipe{}
	p.Init(id, pipe.DefaultPriority, pipe.DefaultPriority)
	return p
}

func (p *loopPipe) Send(msg *message.Message) (pipe.Flags, error) {
	p.q = append(p.q, msg)
	return pipe.Release, nil
}

func (p *loopPipe) Recv() (*message.Message, pipe.Flags, error) {
	if len(p.q) == 0 {
		return nil, 0, pipe.ErrTemporarilyUnavailable
	}
	msg := p.q[0]
	p.q = p.q[1:]
	return msg, pipe.Release | pipe.Parsed, nil
}

func TestPairRegistered(t *testing.T) {
	for _, domain := range []int{protocol.AFSP, protocol.AFSPRaw} {
		typ, ok := protocol.Default.Lookup(domain, protocol.Pair)
		require.True(t, ok)
		assert.True(t, typ.Peer(protocol.Pair))
		assert.False(t, typ.Peer(protocol.Push))
	}
}

func TestPairSinglePeer(t *testing.T) {
	s, err := protocol.Create(protocol.AFSP, protocol.Pair, 10)
	require.NoError(t, err)

	p1, p2 := newLoopPipe(1), newLoopPipe(2)
	require.NoError(t, s.AddPipe(p1))
	assert.Equal(t, errs.ErrProtocolReject, s.AddPipe(p2))

	s.PipeOut(p1)
	require.NoError(t, s.Send(message.NewWithContent([]byte("ping")), 0))
	assert.Equal(t, errs.ErrWouldBlock, s.Send(message.NewWithContent(nil), socket.DontWait))

	s.PipeIn(p1)
	msg, err := s.Recv(socket.DontWait)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(msg.Body))

	s.RmPipe(p1)
	require.NoError(t, s.AddPipe(p2))
	s.RmPipe(p2)

	done := make(chan error, 1)
	go func() { done <- s.Term() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("term hung")
	}
}
