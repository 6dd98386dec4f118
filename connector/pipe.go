package connector

import (
	"context"
	"sync"

	"github.com/Workiva/go-datastructures/queue"
	log "github.com/sirupsen/logrus"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/pipe"
	"github.com/multisocket/spcore/socket"
	"github.com/multisocket/spcore/transport"
	"github.com/multisocket/spcore/utils"
)

const (
	// most messages queued on one pipe regardless of their size
	maxQueuedMessages = 1024
	// messages written per batch by the sender
	sendBatchSize = 16
)

var pipeID = utils.NewRecyclableIDGenerator()

// streamPipe adapts a transport.Connection to the pipe contract. A sender
// goroutine drains an outbound queue bounded by sndbuf, a receiver goroutine
// holds at most one inbound message until the socket takes it.
type streamPipe struct {
	pipe.Base
	s      *socket.Socket
	conn   transport.Connection
	parsed bool
	sndbuf int

	sndq   *queue.Queue
	resume chan struct{}

	mu          sync.Mutex
	closed      bool
	local       bool
	err         error
	pending     int
	queued      int
	sndReleased bool
	rcvMsg      *message.Message
	flushq      chan struct{}

	closedq chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	done    func(p *streamPipe)
}

func newStreamPipe(s *socket.Socket, conn transport.Connection, eopts socket.EndpointOptions, done func(p *streamPipe)) *streamPipe {
	p := &streamPipe{
		s:       s,
		conn:    conn,
		parsed:  conn.Parsed(),
		sndbuf:  eopts.SendBuffer,
		sndq:    queue.New(sendBatchSize),
		resume:  make(chan struct{}, 1),
		closedq: make(chan struct{}),
		done:    done,
	}
	p.Init(pipeID.NextID(), eopts.SendPriority, eopts.RecvPriority)
	return p
}

// start attaches p to its socket and runs its goroutines.
func (p *streamPipe) start() error {
	if err := p.s.AddPipe(p); err != nil {
		p.close(err)
		p.finish()
		return err
	}

	p.wg.Add(2)
	go p.sender()
	go p.receiver()
	go func() {
		p.wg.Wait()
		p.s.RmPipe(p)
		p.finish()
	}()
	p.s.PipeOut(p)
	return nil
}

func (p *streamPipe) finish() {
	p.mu.Lock()
	if p.rcvMsg != nil {
		p.rcvMsg.Free()
		p.rcvMsg = nil
	}
	p.mu.Unlock()
	pipeID.Recycle(p.ID())
	if p.done != nil {
		p.done(p)
	}
}

func (p *streamPipe) Send(msg *message.Message) (pipe.Flags, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errs.ErrClosed
	}
	if p.sndReleased {
		return 0, pipe.ErrTemporarilyUnavailable
	}
	if err := p.sndq.Put(msg); err != nil {
		return 0, errs.ErrClosed
	}
	p.pending += msg.Size()
	p.queued++
	if p.pending >= p.sndbuf || p.queued >= maxQueuedMessages {
		p.sndReleased = true
		return pipe.Release, nil
	}
	return 0, nil
}

func (p *streamPipe) Recv() (*message.Message, pipe.Flags, error) {
	p.mu.Lock()
	msg := p.rcvMsg
	p.rcvMsg = nil
	p.mu.Unlock()
	if msg == nil {
		return nil, 0, pipe.ErrTemporarilyUnavailable
	}
	p.resume <- struct{}{}

	flags := pipe.Release
	if p.parsed {
		flags |= pipe.Parsed
	}
	return msg, flags, nil
}

// Flush waits until the outbound queue is written out.
func (p *streamPipe) Flush(ctx context.Context) error {
	for {
		p.mu.Lock()
		if p.pending == 0 && p.queued == 0 {
			p.mu.Unlock()
			return nil
		}
		if p.closed {
			err := p.err
			p.mu.Unlock()
			return err
		}
		if p.flushq == nil {
			p.flushq = make(chan struct{})
		}
		flushq := p.flushq
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-flushq:
		}
	}
}

func (p *streamPipe) sender() {
	defer p.wg.Done()
	for {
		items, err := p.sndq.Get(sendBatchSize)
		if err != nil {
			return
		}
		for i, item := range items {
			msg := item.(*message.Message)
			sz := msg.Size()
			if err = p.conn.Send(msg); err != nil {
				for _, rest := range items[i:] {
					rest.(*message.Message).Free()
				}
				p.close(err)
				return
			}
			p.sent(sz)
		}
	}
}

func (p *streamPipe) sent(sz int) {
	p.mu.Lock()
	p.pending -= sz
	p.queued--
	readmit := p.sndReleased && p.pending < p.sndbuf && p.queued < maxQueuedMessages
	if readmit {
		p.sndReleased = false
	}
	if p.queued == 0 && p.flushq != nil {
		close(p.flushq)
		p.flushq = nil
	}
	p.mu.Unlock()

	if readmit {
		p.s.PipeOut(p)
	}
}

func (p *streamPipe) receiver() {
	defer p.wg.Done()
	for {
		msg, err := p.conn.Recv()
		if err != nil {
			p.close(err)
			return
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			msg.Free()
			return
		}
		p.rcvMsg = msg
		p.mu.Unlock()
		p.s.PipeIn(p)

		select {
		case <-p.resume:
		case <-p.closedq:
			return
		}
	}
}

// Close closes the connection, the pipe leaves its socket once both
// goroutines stopped.
func (p *streamPipe) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.local = true
	}
	p.mu.Unlock()
	p.close(errs.ErrClosed)
	return nil
}

func (p *streamPipe) close(err error) {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.err = err
		local := p.local
		if p.flushq != nil {
			close(p.flushq)
			p.flushq = nil
		}
		p.mu.Unlock()

		close(p.closedq)
		p.conn.Close()
		// unblocks the sender
		for _, item := range p.sndq.Dispose() {
			item.(*message.Message).Free()
		}

		if !local && log.IsLevelEnabled(log.DebugLevel) {
			log.WithField("domain", "connector").
				WithFields(log.Fields{"fd": p.s.FD(), "pipe": p.ID(), "remote": p.conn.RemoteAddress()}).
				WithError(err).Debug("pipe broken")
		}
	})
}

// broken reports whether the connection failed rather than being closed locally.
func (p *streamPipe) broken() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed && !p.local
}
