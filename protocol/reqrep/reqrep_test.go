package reqrep

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/pipe"
	"github.com/multisocket/spcore/protocol"
	"github.com/multisocket/spcore/socket"
)

// wirePipe records what it is sent and replays its inbox.
type wirePipe struct {
	pipe.Base
	parsed bool
	sent   []*message.Message
	inbox  []*message.Message
}

func newWirePipe(id uint32, parsed bool) *wirePipe {
	p := &wirePipe{parsed: parsed}
	p.Init(id, pipe.DefaultPriority, pipe.DefaultPriority)
	return p
}

func (p *wirePipe) Send(msg *message.Message) (pipe.Flags, error) {
	p.sent = append(p.sent, msg)
	return 0, nil
}

func (p *wirePipe) Recv() (*message.Message, pipe.Flags, error) {
	if len(p.inbox) == 0 {
		return nil, 0, pipe.ErrTemporarilyUnavailable
	}
	msg := p.inbox[0]
	p.inbox = p.inbox[1:]
	var flags pipe.Flags
	if p.parsed {
		flags |= pipe.Parsed
	}
	if len(p.inbox) == 0 {
		flags |= pipe.Release
	}
	return msg, flags, nil
}

// deliver hands msg to s through p, flattening it when p is a stream.
func (p *wirePipe) deliver(s *socket.Socket, msg *message.Message) {
	if !p.parsed {
		flat := message.NewWithContent(append(append([]byte(nil), msg.Header...), msg.Body...))
		msg.Free()
		msg = flat
	}
	p.inbox = append(p.inbox, msg)
	s.PipeIn(p)
}

func attach(t *testing.T, s *socket.Socket, p *wirePipe) {
	require.NoError(t, s.AddPipe(p))
	s.PipeOut(p)
}

// release detaches the pipes so Term does not wait for them.
func release(t *testing.T, s *socket.Socket, ps ...*wirePipe) {
	for _, p := range ps {
		s.RmPipe(p)
	}
	require.NoError(t, s.Term())
}

func word(v uint32) []byte {
	b := make([]byte, wordSize)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func TestRegistered(t *testing.T) {
	for _, domain := range []int{protocol.AFSP, protocol.AFSPRaw} {
		typ, ok := protocol.Default.Lookup(domain, protocol.Req)
		require.True(t, ok)
		assert.True(t, typ.Peer(protocol.Rep))
		assert.False(t, typ.Peer(protocol.Req))

		typ, ok = protocol.Default.Lookup(domain, protocol.Rep)
		require.True(t, ok)
		assert.True(t, typ.Peer(protocol.Req))
	}
}

func TestBacktrace(t *testing.T) {
	id := word(requestIDBit | 7)
	assert.True(t, validBacktrace(id))
	assert.True(t, validBacktrace(append(word(3), id...)))
	assert.False(t, validBacktrace(nil))
	assert.False(t, validBacktrace(word(3)))
	assert.False(t, validBacktrace(append(id, id...)))
	assert.False(t, validBacktrace(id[:3]))

	msg := message.NewWithContent(append(append(word(3), id...), "body"...))
	require.True(t, splitBacktrace(msg, false))
	assert.Equal(t, append(word(3), id...), msg.Header)
	assert.Equal(t, "body", string(msg.Body))

	assert.False(t, splitBacktrace(message.NewWithContent([]byte("no id")), false))
}

func TestReqRepExchange(t *testing.T) {
	for _, parsed := range []bool{true, false} {
		reqSock, err := protocol.Create(protocol.AFSP, protocol.Req, 30)
		require.NoError(t, err)
		repSock, err := protocol.Create(protocol.AFSP, protocol.Rep, 31)
		require.NoError(t, err)

		rp, qp := newWirePipe(1, parsed), newWirePipe(7, parsed)
		attach(t, reqSock, rp)
		attach(t, repSock, qp)

		_, err = reqSock.Recv(socket.DontWait)
		assert.Equal(t, errs.ErrBadState, err)
		assert.Equal(t, errs.ErrBadState, repSock.Send(message.NewWithContent(nil), socket.DontWait))

		require.NoError(t, reqSock.Send(message.NewWithContent([]byte("hello")), 0))
		require.Len(t, rp.sent, 1)
		reqHdr := append([]byte(nil), rp.sent[0].Header...)
		require.Len(t, reqHdr, wordSize)
		assert.NotZero(t, reqHdr[0]&0x80)

		qp.deliver(repSock, rp.sent[0])
		msg, err := repSock.Recv(socket.DontWait)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(msg.Body))
		assert.Empty(t, msg.Header)

		require.NoError(t, repSock.Send(message.NewWithContent([]byte("world")), 0))
		require.Len(t, qp.sent, 1)
		assert.Equal(t, reqHdr, qp.sent[0].Header)

		rp.deliver(reqSock, qp.sent[0])
		msg, err = reqSock.Recv(socket.DontWait)
		require.NoError(t, err)
		assert.Equal(t, "world", string(msg.Body))

		_, err = reqSock.Recv(socket.DontWait)
		assert.Equal(t, errs.ErrBadState, err)

		release(t, reqSock, rp)
		release(t, repSock, qp)
	}
}

func TestReqDropsStaleReply(t *testing.T) {
	s, err := protocol.Create(protocol.AFSP, protocol.Req, 32)
	require.NoError(t, err)
	p := newWirePipe(1, true)
	attach(t, s, p)

	require.NoError(t, s.Send(message.NewWithContent([]byte("first")), 0))
	require.NoError(t, s.Send(message.NewWithContent([]byte("second")), 0))
	require.Len(t, p.sent, 2)

	for i, body := range []string{"old", "new"} {
		p.inbox = append(p.inbox, message.NewFromParts(p.sent[i].Header, []byte(body)))
	}
	s.PipeIn(p)

	msg, err := s.Recv(socket.DontWait)
	require.NoError(t, err)
	assert.Equal(t, "new", string(msg.Body))
	release(t, s, p)
}

func TestRawRepRoutes(t *testing.T) {
	s, err := protocol.Create(protocol.AFSPRaw, protocol.Rep, 33)
	require.NoError(t, err)
	a, b := newWirePipe(5, true), newWirePipe(6, true)
	attach(t, s, a)
	attach(t, s, b)

	id := word(requestIDBit | 42)
	b.deliver(s, message.NewFromParts(id, []byte("req")))
	msg, err := s.Recv(socket.DontWait)
	require.NoError(t, err)
	hdr, err := s.GetHdr(msg)
	require.NoError(t, err)
	assert.Equal(t, append(word(6), id...), hdr)

	reply := message.NewWithContent([]byte("rep"))
	require.NoError(t, s.SetHdr(reply, hdr))
	require.NoError(t, s.Send(reply, 0))
	assert.Empty(t, a.sent)
	require.Len(t, b.sent, 1)
	assert.Equal(t, id, b.sent[0].Header)

	assert.Equal(t, errs.ErrBadHeader, s.SetHdr(message.NewWithContent(nil), id))

	// unknown pipes drop the reply
	lost := message.NewFromParts(append(word(9), id...), []byte("lost"))
	require.NoError(t, s.Send(lost, 0))
	assert.Empty(t, a.sent)
	assert.Len(t, b.sent, 1)
	release(t, s, a, b)
}

func TestCookedHeaders(t *testing.T) {
	s, err := protocol.Create(protocol.AFSP, protocol.Req, 34)
	require.NoError(t, err)
	msg := message.NewWithContent(nil)
	assert.Equal(t, errs.ErrNotSupported, s.SetHdr(msg, word(requestIDBit)))
	_, err = s.GetHdr(msg)
	assert.Equal(t, errs.ErrNotSupported, err)
	release(t, s)
}
