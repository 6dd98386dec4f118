package socket

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/pipe"
)

// mockPipe fails the test when used in a direction it released.
type mockPipe struct {
	pipe.Base
	t *testing.T

	mu       sync.Mutex
	canSend  bool
	batch    int // sends accepted before releasing
	sent     []*message.Message
	inbox    []*message.Message
	canRecv  bool
	flushErr error
}

func newMockPipe(t *testing.T, id uint32, batch int) *mockPipe {
	p := &mockPipe{t: t, batch: batch}
	p.Init(id, pipe.DefaultPriority, pipe.DefaultPriority)
	return p
}

// admitOut marks a released p writable and notifies the socket.
func (p *mockPipe) admitOut(s *Socket) {
	p.mu.Lock()
	if p.canSend {
		p.mu.Unlock()
		return
	}
	p.canSend = true
	p.mu.Unlock()
	s.PipeOut(p)
}

// deliver queues msg, the socket is notified when p was released.
func (p *mockPipe) deliver(s *Socket, msg *message.Message) {
	p.mu.Lock()
	p.inbox = append(p.inbox, msg)
	if p.canRecv {
		p.mu.Unlock()
		return
	}
	p.canRecv = true
	p.mu.Unlock()
	s.PipeIn(p)
}

func (p *mockPipe) Send(msg *message.Message) (pipe.Flags, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.canSend {
		p.t.Errorf("pipe %d: send after release", p.ID())
		return 0, pipe.ErrTemporarilyUnavailable
	}
	p.sent = append(p.sent, msg)
	if len(p.sent)%p.batch == 0 {
		p.canSend = false
		return pipe.Release, nil
	}
	return 0, nil
}

func (p *mockPipe) Recv() (*message.Message, pipe.Flags, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.canRecv {
		p.t.Errorf("pipe %d: recv after release", p.ID())
		return nil, 0, pipe.ErrTemporarilyUnavailable
	}
	msg := p.inbox[0]
	p.inbox = p.inbox[1:]
	if len(p.inbox) == 0 {
		p.canRecv = false
		return msg, pipe.Release | pipe.Parsed, nil
	}
	return msg, pipe.Parsed, nil
}

func (p *mockPipe) sentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func (p *mockPipe) Flush(ctx context.Context) error {
	return p.flushErr
}

// mockProto is a minimal round robin protocol that records hook calls
// and checks that it is never entered concurrently.
type mockProto struct {
	t      *testing.T
	inside int32

	events  map[uint32][]string
	out     []pipe.Pipe
	in      []pipe.Pipe
	members map[uint32]bool
	reject  bool
	opts    map[int][]byte

	destroyed bool
	stopped   bool
}

func newMockProto(t *testing.T) *mockProto {
	return &mockProto{
		t:       t,
		events:  make(map[uint32][]string),
		members: make(map[uint32]bool),
		opts:    make(map[int][]byte),
	}
}

func (m *mockProto) enter() func() {
	if n := atomic.AddInt32(&m.inside, 1); n != 1 {
		m.t.Errorf("protocol entered by %d goroutines", n)
	}
	return func() { atomic.AddInt32(&m.inside, -1) }
}

func (m *mockProto) record(p pipe.Pipe, ev string) {
	m.events[p.ID()] = append(m.events[p.ID()], ev)
}

func (m *mockProto) Add(p pipe.Pipe) error {
	defer m.enter()()
	if m.reject {
		return errs.ErrProtocolReject
	}
	m.members[p.ID()] = true
	m.record(p, "add")
	return nil
}

func removePipe(ps []pipe.Pipe, p pipe.Pipe) []pipe.Pipe {
	for i, x := range ps {
		if x == p {
			return append(ps[:i:i], ps[i+1:]...)
		}
	}
	return ps
}

func (m *mockProto) Rm(p pipe.Pipe) {
	defer m.enter()()
	if !m.members[p.ID()] {
		m.t.Errorf("rm of unknown pipe %d", p.ID())
	}
	delete(m.members, p.ID())
	m.record(p, "rm")
	m.out = removePipe(m.out, p)
	m.in = removePipe(m.in, p)
}

func (m *mockProto) In(p pipe.Pipe) {
	defer m.enter()()
	if !m.members[p.ID()] {
		m.t.Errorf("in before add for pipe %d", p.ID())
	}
	m.record(p, "in")
	m.in = append(m.in, p)
}

func (m *mockProto) Out(p pipe.Pipe) {
	defer m.enter()()
	if !m.members[p.ID()] {
		m.t.Errorf("out before add for pipe %d", p.ID())
	}
	m.record(p, "out")
	m.out = append(m.out, p)
}

func (m *mockProto) Events() (ev Events) {
	defer m.enter()()
	if len(m.in) > 0 {
		ev |= EventIn
	}
	if len(m.out) > 0 {
		ev |= EventOut
	}
	return
}

func (m *mockProto) Send(msg *message.Message) error {
	defer m.enter()()
	for len(m.out) > 0 {
		p := m.out[0]
		flags, err := p.Send(msg)
		if err == pipe.ErrTemporarilyUnavailable {
			m.out = m.out[1:]
			continue
		}
		if flags.Has(pipe.Release) {
			m.out = m.out[1:]
		} else {
			m.out = append(m.out[1:], p)
		}
		return err
	}
	return errs.ErrWouldBlock
}

func (m *mockProto) Recv() (*message.Message, error) {
	defer m.enter()()
	if len(m.in) == 0 {
		return nil, errs.ErrWouldBlock
	}
	p := m.in[0]
	msg, flags, err := p.Recv()
	if err != nil {
		m.in = m.in[1:]
		return nil, errs.ErrWouldBlock
	}
	if flags.Has(pipe.Release) {
		m.in = m.in[1:]
	}
	return msg, nil
}

func (m *mockProto) SetOption(level, id int, val []byte) error {
	defer m.enter()()
	if level != 77 {
		return errs.ErrInvalidOption
	}
	m.opts[id] = val
	return nil
}

func (m *mockProto) GetOption(level, id int) ([]byte, error) {
	defer m.enter()()
	if v, ok := m.opts[id]; ok && level == 77 {
		return v, nil
	}
	return nil, errs.ErrInvalidOption
}

func (m *mockProto) Stop() {
	m.stopped = true
}

func (m *mockProto) Destroy() {
	m.destroyed = true
}

func newMockSocket(t *testing.T, flags TypeFlags) (*Socket, *mockProto) {
	proto := newMockProto(t)
	typ := &Type{
		Domain:   1,
		Protocol: 0,
		Name:     "mock",
		Flags:    flags,
		Create: func(s *Socket) (Protocol, error) {
			return proto, nil
		},
	}
	s, err := New(typ, 1)
	if err != nil {
		t.Fatal(err)
	}
	return s, proto
}

type mockEndpoint struct {
	addr   string
	closed int32
}

func (e *mockEndpoint) Address() string {
	return e.addr
}

func (e *mockEndpoint) Close() error {
	atomic.AddInt32(&e.closed, 1)
	return nil
}
