// Package socket implements the protocol-agnostic socket base.
//
// A Socket owns the concurrency control, readiness signaling and pipe and
// endpoint bookkeeping of one messaging endpoint, and delegates every
// protocol decision to a Protocol. Transports drive it through the pipe hooks
// AddPipe, RmPipe, PipeIn and PipeOut; applications through Send, Recv and the
// options.
package socket

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/multisocket/spcore/efd"
	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/options"
	"github.com/multisocket/spcore/pipe"
	"github.com/multisocket/spcore/utils"
)

type state int

const (
	stateActive state = iota
	stateStopping
	stateTerminated
)

type endpointEntry struct {
	id int
	ep Endpoint
}

// Socket is the socket base.
type Socket struct {
	t     *Type
	fd    int
	proto Protocol

	mu    sync.Mutex
	cond  *sync.Cond
	state state

	sndfd *efd.Efd
	rcvfd *efd.Efd
	errfd *efd.Efd

	opts    options.Options
	pipes   map[uint32]pipe.Pipe
	eps     []endpointEntry
	nextEid int

	stats *Stats
}

// New creates a socket of type t identified by fd.
func New(t *Type, fd int) (*Socket, error) {
	s := &Socket{
		t:     t,
		fd:    fd,
		opts:  options.NewOptions(),
		pipes: make(map[uint32]pipe.Pipe),
		stats: newStats(fd),
	}
	s.cond = sync.NewCond(&s.mu)
	s.opts.AddOptionChangeHook(checkReconnect(s.opts))

	var err error
	if s.sndfd, err = efd.New(); err == nil {
		if s.rcvfd, err = efd.New(); err == nil {
			if s.errfd, err = efd.New(); err == nil {
				s.proto, err = t.Create(s)
			}
		}
	}
	if err != nil {
		s.closeDescriptors()
		return nil, err
	}

	s.mu.Lock()
	s.adjustEvents()
	s.mu.Unlock()

	log.WithField("domain", "socket").
		WithFields(log.Fields{"fd": fd, "type": t.Name}).
		Debug("socket created")
	return s, nil
}

func (s *Socket) closeDescriptors() {
	for _, e := range []*efd.Efd{s.sndfd, s.rcvfd, s.errfd} {
		if e != nil {
			e.Close()
		}
	}
}

// FD returns the socket handle.
func (s *Socket) FD() int {
	return s.fd
}

// Type returns the socket type.
func (s *Socket) Type() *Type {
	return s.t
}

// Protocol returns the protocol part of the socket.
func (s *Socket) Protocol() Protocol {
	return s.proto
}

// Stats returns the socket statistics.
func (s *Socket) Stats() *Stats {
	return s.stats
}

// Statistic reads one statistic.
func (s *Socket) Statistic(id Statistic) (uint64, error) {
	return s.stats.Get(id)
}

// Descriptors returns the send, receive and error descriptors.
func (s *Socket) Descriptors() (snd, rcv, err *efd.Efd) {
	return s.sndfd, s.rcvfd, s.errfd
}

// adjustEvents mirrors the protocol readiness on the descriptors, s.mu must be held.
func (s *Socket) adjustEvents() {
	ev := s.proto.Events()
	if ev&EventIn != 0 {
		s.rcvfd.Signal()
	} else {
		s.rcvfd.Unsignal()
	}
	if ev&EventOut != 0 {
		s.sndfd.Signal()
	} else {
		s.sndfd.Unsignal()
	}
}

// AddPipe admits p to the socket.
func (s *Socket) AddPipe(p pipe.Pipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateActive {
		return errs.ErrTerminating
	}
	if _, ok := s.pipes[p.ID()]; ok {
		return errs.ErrInvalidArgument
	}
	if err := s.proto.Add(p); err != nil {
		s.stats.Inc(StatDroppedConnections)
		log.WithField("domain", "socket").
			WithFields(log.Fields{"fd": s.fd, "pipe": p.ID()}).
			WithError(err).Debug("pipe rejected")
		return err
	}
	s.pipes[p.ID()] = p
	s.stats.Set(StatCurrentConnections, len(s.pipes))
	s.adjustEvents()

	log.WithField("domain", "socket").
		WithFields(log.Fields{"fd": s.fd, "pipe": p.ID()}).
		Debug("add pipe")
	return nil
}

// RmPipe removes p from the socket, it is a no-op for pipes that are not members.
func (s *Socket) RmPipe(p pipe.Pipe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if x, ok := s.pipes[p.ID()]; !ok || x != p {
		return
	}
	delete(s.pipes, p.ID())
	s.proto.Rm(p)
	s.stats.Set(StatCurrentConnections, len(s.pipes))
	s.adjustEvents()
	s.cond.Broadcast()

	log.WithField("domain", "socket").
		WithFields(log.Fields{"fd": s.fd, "pipe": p.ID()}).
		Debug("remove pipe")
}

func (s *Socket) isMember(p pipe.Pipe) bool {
	x, ok := s.pipes[p.ID()]
	return ok && x == p
}

// PipeIn tells the socket p has a message to receive.
func (s *Socket) PipeIn(p pipe.Pipe) {
	s.mu.Lock()
	if s.isMember(p) {
		s.proto.In(p)
		s.adjustEvents()
	}
	s.mu.Unlock()
}

// PipeOut tells the socket p can take a message.
func (s *Socket) PipeOut(p pipe.Pipe) {
	s.mu.Lock()
	if s.isMember(p) {
		s.proto.Out(p)
		s.adjustEvents()
	}
	s.mu.Unlock()
}

// Pipes returns the attached pipes.
func (s *Socket) Pipes() []pipe.Pipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := make([]pipe.Pipe, 0, len(s.pipes))
	for _, p := range s.pipes {
		ps = append(ps, p)
	}
	return ps
}

// resetDeadline arms tm to fire timeout ms after start, a negative timeout never fires.
func resetDeadline(tm *utils.Timer, start time.Time, timeout int) {
	if timeout < 0 {
		tm.Stop()
		return
	}
	d := utils.Millis(timeout) - time.Since(start)
	if d < 0 {
		d = 0
	}
	tm.Reset(d)
}

// waitHook runs between releasing the socket lock and waiting on a descriptor.
var waitHook func()

// Send sends msg, the socket owns msg on success.
func (s *Socket) Send(msg *message.Message, flags Flags) error {
	if s.t.Flags&NoSend != 0 {
		return errs.ErrNotSupported
	}

	var (
		start = time.Now()
		tm    *utils.Timer
	)
	defer func() {
		if tm != nil {
			tm.Stop()
		}
	}()

	s.mu.Lock()
	for {
		if s.state != stateActive {
			s.mu.Unlock()
			return errs.ErrTerminating
		}
		sz := msg.Size()
		err := s.proto.Send(msg)
		s.adjustEvents()
		if err == nil {
			s.mu.Unlock()
			s.stats.Inc(StatMessagesSent)
			s.stats.Add(StatBytesSent, sz)
			return nil
		}
		if err != errs.ErrWouldBlock || flags&DontWait != 0 {
			s.mu.Unlock()
			return err
		}

		if tm == nil {
			tm = utils.NewTimer()
		}
		resetDeadline(tm, start, Options.SendTimeout.ValueFrom(s.opts))
		// armed under s.mu so pulses sent after the unlock still wake us
		w := s.sndfd.Arm()
		s.mu.Unlock()
		if waitHook != nil {
			waitHook()
		}
		if err = w.Wait(tm.C); err != nil {
			return err
		}
		s.mu.Lock()
	}
}

// Recv receives a message, the caller owns it.
func (s *Socket) Recv(flags Flags) (*message.Message, error) {
	if s.t.Flags&NoRecv != 0 {
		return nil, errs.ErrNotSupported
	}

	var (
		start = time.Now()
		tm    *utils.Timer
	)
	defer func() {
		if tm != nil {
			tm.Stop()
		}
	}()

	s.mu.Lock()
	for {
		if s.state != stateActive {
			s.mu.Unlock()
			return nil, errs.ErrTerminating
		}
		msg, err := s.proto.Recv()
		s.adjustEvents()
		if err == nil {
			s.mu.Unlock()
			s.stats.Inc(StatMessagesReceived)
			s.stats.Add(StatBytesReceived, msg.Size())
			return msg, nil
		}
		if err != errs.ErrWouldBlock || flags&DontWait != 0 {
			s.mu.Unlock()
			return nil, err
		}

		if tm == nil {
			tm = utils.NewTimer()
		}
		resetDeadline(tm, start, Options.RecvTimeout.ValueFrom(s.opts))
		// armed under s.mu so pulses sent after the unlock still wake us
		w := s.rcvfd.Arm()
		s.mu.Unlock()
		if waitHook != nil {
			waitHook()
		}
		if err = w.Wait(tm.C); err != nil {
			return nil, err
		}
		s.mu.Lock()
	}
}

// UnblockSend wakes blocked senders so they re-evaluate their wait.
func (s *Socket) UnblockSend() {
	s.mu.Lock()
	s.sndfd.Pulse()
	s.mu.Unlock()
}

// UnblockRecv wakes blocked receivers so they re-evaluate their wait.
func (s *Socket) UnblockRecv() {
	s.mu.Lock()
	s.rcvfd.Pulse()
	s.mu.Unlock()
}

// SetHdr sets a raw protocol header on msg.
func (s *Socket) SetHdr(msg *message.Message, hdr []byte) error {
	if h, ok := s.proto.(Headerer); ok {
		return h.SetHdr(msg, hdr)
	}
	if len(hdr) != 0 {
		return errs.ErrInvalidArgument
	}
	msg.SetHeader(nil)
	return nil
}

// GetHdr returns the raw protocol header of msg.
func (s *Socket) GetHdr(msg *message.Message) ([]byte, error) {
	if h, ok := s.proto.(Headerer); ok {
		return h.GetHdr(msg)
	}
	return nil, nil
}

// SetOption sets an option. Positive levels belong to the protocol, negative
// ones to transports.
func (s *Socket) SetOption(level, id int, val []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateActive {
		return errs.ErrTerminating
	}
	if level > options.LevelSocket {
		return s.proto.SetOption(level, id, val)
	}

	// generic and transport level options live in the socket store
	opt, ok := options.Lookup(level, id)
	if !ok {
		return errs.ErrInvalidOption
	}
	if err := s.opts.SetOption(opt, val); err != nil {
		return err
	}
	switch opt {
	case Options.SendTimeout:
		s.sndfd.Pulse()
	case Options.RecvTimeout:
		s.rcvfd.Pulse()
	}
	return nil
}

// GetOption gets an option value.
func (s *Socket) GetOption(level, id int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateTerminated {
		return nil, errs.ErrTerminating
	}
	if level > options.LevelSocket {
		return s.proto.GetOption(level, id)
	}

	opt, ok := options.Lookup(level, id)
	if !ok {
		return nil, errs.ErrInvalidOption
	}
	switch opt {
	case Options.SendFd:
		return fdValue(s.sndfd)
	case Options.RecvFd:
		return fdValue(s.rcvfd)
	case Options.Domain:
		return options.EncodeInt(s.t.Domain), nil
	case Options.Protocol:
		return options.EncodeInt(s.t.Protocol), nil
	}
	return append([]byte(nil), s.opts.GetOptionDefault(opt, opt.Default())...), nil
}

func fdValue(e *efd.Efd) ([]byte, error) {
	fd := e.Fd()
	if fd < 0 {
		return nil, errs.ErrNotSupported
	}
	return options.EncodeInt(fd), nil
}

// Options returns the socket option store.
func (s *Socket) Options() options.Options {
	return s.opts
}

// SnapshotOptions copies the current option values, endpoints keep using the
// values they were created with.
func (s *Socket) SnapshotOptions() options.Options {
	snap := options.NewOptions()
	for _, ov := range s.opts.OptionValues() {
		snap.SetOption(ov.Option, ov.Value)
	}
	return snap
}

// Stop starts termination: every blocked and later call returns errs.ErrTerminating.
func (s *Socket) Stop() {
	s.mu.Lock()
	if s.state != stateActive {
		s.mu.Unlock()
		return
	}
	s.state = stateStopping
	if st, ok := s.proto.(Stopper); ok {
		st.Stop()
	}
	s.sndfd.Stop()
	s.rcvfd.Stop()
	s.errfd.Stop()
	s.cond.Broadcast()
	s.mu.Unlock()

	log.WithField("domain", "socket").
		WithFields(log.Fields{"fd": s.fd}).
		Debug("socket stopping")
}

// Linger waits for buffered outbound messages to be written, bounded by the
// linger option and ctx.
func (s *Socket) Linger(ctx context.Context) error {
	linger := Options.Linger.ValueFrom(s.opts)
	if linger == 0 {
		return nil
	}
	if linger > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, utils.Millis(linger))
		defer cancel()
	}

	var fs []pipe.Flusher
	s.mu.Lock()
	for _, p := range s.pipes {
		if f, ok := p.(pipe.Flusher); ok {
			fs = append(fs, f)
		}
	}
	s.mu.Unlock()

	for _, f := range fs {
		if err := f.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Term stops the socket, closes its endpoints, waits for all pipes to be
// removed and releases the protocol and descriptors.
func (s *Socket) Term() error {
	s.Stop()

	s.mu.Lock()
	if s.state == stateTerminated {
		s.mu.Unlock()
		return errs.ErrTerminating
	}
	eps := s.eps
	s.eps = nil
	s.stats.Set(StatCurrentEndpoints, 0)
	s.mu.Unlock()

	for _, e := range eps {
		e.ep.Close()
	}

	s.mu.Lock()
	for len(s.pipes) > 0 && s.state != stateTerminated {
		s.cond.Wait()
	}
	if s.state == stateTerminated {
		s.mu.Unlock()
		return errs.ErrTerminating
	}
	s.state = stateTerminated
	s.proto.Destroy()
	s.mu.Unlock()

	s.closeDescriptors()
	log.WithField("domain", "socket").
		WithFields(log.Fields{"fd": s.fd}).
		Debug("socket terminated")
	return nil
}
