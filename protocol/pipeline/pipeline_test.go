package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/pipe"
	"github.com/multisocket/spcore/protocol"
	"github.com/multisocket/spcore/socket"
)

type sinkPipe struct {
	pipe.Base
	got []string
	q   []*message.Message
}

func newSinkPipe(id uint32, prio int) *sinkPipe {
	p := &sinkPipe{}
	p.Init(id, prio, prio)
	return p
}

func (p *sinkPipe) Send(msg *message.Message) (pipe.Flags, error) {
	p.got = append(p.got, string(msg.Body))
	return 0, nil
}

func (p *sinkPipe) Recv() (*message.Message, pipe.Flags, error) {
	if len(p.q) == 0 {
		return nil, 0, pipe.ErrTemporarilyUnavailable
	}
	msg := p.q[0]
	p.q = p.q[1:]
	if len(p.q) == 0 {
		return msg, pipe.Release, nil
	}
	return msg, 0, nil
}

func TestPushLoadBalances(t *testing.T) {
	s, err := protocol.Create(protocol.AFSP, protocol.Push, 20)
	require.NoError(t, err)

	a, b, low := newSinkPipe(1, 4), newSinkPipe(2, 4), newSinkPipe(3, 9)
	for _, p := range []*sinkPipe{a, b, low} {
		require.NoError(t, s.AddPipe(p))
		s.PipeOut(p)
	}
	for _, body := range []string{"1", "2", "3", "4"} {
		require.NoError(t, s.Send(message.NewWithContent([]byte(body)), 0))
	}
	assert.Equal(t, []string{"1", "3"}, a.got)
	assert.Equal(t, []string{"2", "4"}, b.got)
	assert.Empty(t, low.got)

	prio, err := s.Statistic(socket.StatCurrentSendPriority)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), prio)

	_, err = s.Recv(socket.DontWait)
	assert.Equal(t, errs.ErrNotSupported, err)

	for _, p := range []*sinkPipe{a, b, low} {
		s.RmPipe(p)
	}
	require.NoError(t, s.Term())
}

func TestPullFairQueues(t *testing.T) {
	s, err := protocol.Create(protocol.AFSP, protocol.Pull, 21)
	require.NoError(t, err)

	a, b := newSinkPipe(1, 8), newSinkPipe(2, 8)
	a.q = []*message.Message{message.NewWithContent([]byte("a1")), message.NewWithContent([]byte("a2"))}
	b.q = []*message.Message{message.NewWithContent([]byte("b1")), message.NewWithContent([]byte("b2"))}
	require.NoError(t, s.AddPipe(a))
	require.NoError(t, s.AddPipe(b))
	s.PipeIn(a)
	s.PipeIn(b)

	var got []string
	for i := 0; i < 4; i++ {
		msg, err := s.Recv(socket.DontWait)
		require.NoError(t, err)
		got = append(got, string(msg.Body))
	}
	assert.Equal(t, []string{"a1", "b1", "a2", "b2"}, got)
	_, err = s.Recv(socket.DontWait)
	assert.Equal(t, errs.ErrWouldBlock, err)
	assert.Equal(t, errs.ErrNotSupported, s.Send(message.New(0), socket.DontWait))

	s.RmPipe(a)
	s.RmPipe(b)
	require.NoError(t, s.Term())
}

func TestPeers(t *testing.T) {
	assert.True(t, PushType.Peer(protocol.Pull))
	assert.False(t, PushType.Peer(protocol.Push))
	assert.True(t, PullType.Peer(protocol.Push))
}
