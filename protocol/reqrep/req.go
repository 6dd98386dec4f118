package reqrep

import (
	"encoding/binary"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/pipe"
	"github.com/multisocket/spcore/protocol"
	"github.com/multisocket/spcore/protocol/pipeset"
	"github.com/multisocket/spcore/socket"
)

// req load balances requests and accepts only the reply to the last one.
type req struct {
	raw   bool
	stats *socket.Stats
	lb    *pipeset.LB
	fq    *pipeset.FQ

	reqID   uint32
	pending bool
}

// ReqType is the req socket type.
var ReqType = &socket.Type{
	Domain:   protocol.AFSP,
	Protocol: protocol.Req,
	Name:     "req",
	IsPeer:   func(proto int) bool { return proto == protocol.Rep },
	Create:   newReq,
}

// RawReqType is the raw req socket type, used at the back of devices.
var RawReqType = &socket.Type{
	Domain:   protocol.AFSPRaw,
	Protocol: protocol.Req,
	Name:     "req.raw",
	IsPeer:   func(proto int) bool { return proto == protocol.Rep },
	Create:   newRawReq,
}

func init() {
	protocol.MustRegister(ReqType)
	protocol.MustRegister(RawReqType)
	protocol.MustRegister(RepType)
	protocol.MustRegister(RawRepType)
}

func newReq(s *socket.Socket) (socket.Protocol, error) {
	return &req{
		stats: s.Stats(),
		lb:    pipeset.NewLB(),
		fq:    pipeset.NewFQ(),
		// quasi-random
		reqID: uint32(time.Now().UnixNano()) | requestIDBit,
	}, nil
}

func newRawReq(s *socket.Socket) (socket.Protocol, error) {
	return &req{raw: true, stats: s.Stats(), lb: pipeset.NewLB(), fq: pipeset.NewFQ()}, nil
}

func (x *req) Add(p pipe.Pipe) error {
	x.lb.Add(p)
	x.fq.Add(p)
	return nil
}

func (x *req) Rm(p pipe.Pipe) {
	x.lb.Rm(p)
	x.fq.Rm(p)
}

func (x *req) In(p pipe.Pipe) {
	x.fq.In(p)
}

func (x *req) Out(p pipe.Pipe) {
	x.lb.Out(p)
}

func (x *req) Events() (ev socket.Events) {
	if x.lb.CanSend() {
		ev |= socket.EventOut
	}
	if x.fq.CanRecv() && (x.raw || x.pending) {
		ev |= socket.EventIn
	}
	return
}

func (x *req) Send(msg *message.Message) error {
	id := x.reqID
	if x.raw {
		if !validBacktrace(msg.Header) {
			return errs.ErrBadHeader
		}
	} else {
		id = (x.reqID + 1) | requestIDBit
		var hdr [wordSize]byte
		binary.BigEndian.PutUint32(hdr[:], id)
		msg.SetHeader(hdr[:])
	}

	prio := x.lb.Priority()
	if _, err := x.lb.Send(msg); err != nil {
		return err
	}
	x.stats.Set(socket.StatCurrentSendPriority, prio)
	if !x.raw {
		// a new request cancels the previous one
		x.reqID = id
		x.pending = true
	}
	return nil
}

func (x *req) Recv() (*message.Message, error) {
	if !x.raw && !x.pending {
		return nil, errs.ErrBadState
	}
	for {
		msg, p, flags, err := x.fq.Recv()
		if err != nil {
			return nil, err
		}
		if !splitBacktrace(msg, flags.Has(pipe.Parsed)) {
			x.drop(msg, p, "bad backtrace")
			continue
		}
		if x.raw {
			return msg, nil
		}
		if len(msg.Header) != wordSize || binary.BigEndian.Uint32(msg.Header) != x.reqID {
			x.drop(msg, p, "stale reply")
			continue
		}
		x.pending = false
		msg.SetHeader(nil)
		return msg, nil
	}
}

func (x *req) drop(msg *message.Message, p pipe.Pipe, reason string) {
	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("domain", "reqrep").
			WithFields(log.Fields{"pipe": p.ID(), "reason": reason}).
			Debug("drop reply")
	}
	msg.Free()
}

func (x *req) SetHdr(msg *message.Message, hdr []byte) error {
	if !x.raw {
		return errs.ErrNotSupported
	}
	if !validBacktrace(hdr) {
		return errs.ErrBadHeader
	}
	msg.SetHeader(hdr)
	return nil
}

func (x *req) GetHdr(msg *message.Message) ([]byte, error) {
	if !x.raw {
		return nil, errs.ErrNotSupported
	}
	return copyHeader(msg), nil
}

func (x *req) SetOption(level, id int, val []byte) error {
	return errs.ErrInvalidOption
}

func (x *req) GetOption(level, id int) ([]byte, error) {
	return nil, errs.ErrInvalidOption
}

func (x *req) Destroy() {}
