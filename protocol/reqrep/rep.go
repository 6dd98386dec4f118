package reqrep

import (
	log "github.com/sirupsen/logrus"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/pipe"
	"github.com/multisocket/spcore/protocol"
	"github.com/multisocket/spcore/protocol/pipeset"
	"github.com/multisocket/spcore/socket"
)

type repPipe struct {
	p   pipe.Pipe
	out bool
}

// rep fair-queues requests and routes every reply back along its backtrace.
// Replies that cannot be routed are dropped.
type rep struct {
	raw   bool
	fq    *pipeset.FQ
	pipes map[uint32]*repPipe
	// backtrace of the request being replied to, cooked sockets only
	bt []byte
}

// RepType is the rep socket type.
var RepType = &socket.Type{
	Domain:   protocol.AFSP,
	Protocol: protocol.Rep,
	Name:     "rep",
	IsPeer:   func(proto int) bool { return proto == protocol.Req },
	Create:   newRep,
}

// RawRepType is the raw rep socket type, used at the front of devices.
var RawRepType = &socket.Type{
	Domain:   protocol.AFSPRaw,
	Protocol: protocol.Rep,
	Name:     "rep.raw",
	IsPeer:   func(proto int) bool { return proto == protocol.Req },
	Create:   newRawRep,
}

func newRep(s *socket.Socket) (socket.Protocol, error) {
	return &rep{fq: pipeset.NewFQ(), pipes: make(map[uint32]*repPipe)}, nil
}

func newRawRep(s *socket.Socket) (socket.Protocol, error) {
	return &rep{raw: true, fq: pipeset.NewFQ(), pipes: make(map[uint32]*repPipe)}, nil
}

func (x *rep) Add(p pipe.Pipe) error {
	x.pipes[p.ID()] = &repPipe{p: p}
	x.fq.Add(p)
	return nil
}

func (x *rep) Rm(p pipe.Pipe) {
	delete(x.pipes, p.ID())
	x.fq.Rm(p)
}

func (x *rep) In(p pipe.Pipe) {
	x.fq.In(p)
}

func (x *rep) Out(p pipe.Pipe) {
	if rp, ok := x.pipes[p.ID()]; ok {
		rp.out = true
	}
}

func (x *rep) Events() (ev socket.Events) {
	if x.fq.CanRecv() {
		ev |= socket.EventIn
	}
	if x.raw || x.bt != nil {
		ev |= socket.EventOut
	}
	return
}

func routable(hdr []byte) bool {
	return len(hdr) >= 2*wordSize && validBacktrace(hdr)
}

func (x *rep) Send(msg *message.Message) error {
	if !x.raw {
		if x.bt == nil {
			return errs.ErrBadState
		}
		msg.SetHeader(x.bt)
		x.bt = nil
	} else if !routable(msg.Header) {
		x.drop(msg, 0, "bad backtrace")
		return nil
	}

	id := popHop(msg)
	rp, ok := x.pipes[id]
	if !ok || !rp.out {
		x.drop(msg, id, "peer unavailable")
		return nil
	}
	flags, err := rp.p.Send(msg)
	if err != nil {
		rp.out = false
		x.drop(msg, id, err.Error())
		return nil
	}
	if flags.Has(pipe.Release) {
		rp.out = false
	}
	return nil
}

func (x *rep) Recv() (*message.Message, error) {
	for {
		msg, p, flags, err := x.fq.Recv()
		if err != nil {
			return nil, err
		}
		if !splitBacktrace(msg, flags.Has(pipe.Parsed)) || len(msg.Header) >= maxHops*wordSize {
			x.drop(msg, p.ID(), "bad backtrace")
			continue
		}
		pushHop(msg, p.ID())
		if x.raw {
			return msg, nil
		}
		x.bt = copyHeader(msg)
		msg.SetHeader(nil)
		return msg, nil
	}
}

func (x *rep) drop(msg *message.Message, id uint32, reason string) {
	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("domain", "reqrep").
			WithFields(log.Fields{"pipe": id, "reason": reason}).
			Debug("drop message")
	}
	msg.Free()
}

func (x *rep) SetHdr(msg *message.Message, hdr []byte) error {
	if !x.raw {
		return errs.ErrNotSupported
	}
	if !routable(hdr) {
		return errs.ErrBadHeader
	}
	msg.SetHeader(hdr)
	return nil
}

func (x *rep) GetHdr(msg *message.Message) ([]byte, error) {
	if !x.raw {
		return nil, errs.ErrNotSupported
	}
	return copyHeader(msg), nil
}

func (x *rep) SetOption(level, id int, val []byte) error {
	return errs.ErrInvalidOption
}

func (x *rep) GetOption(level, id int) ([]byte, error) {
	return nil, errs.ErrInvalidOption
}

func (x *rep) Destroy() {}
