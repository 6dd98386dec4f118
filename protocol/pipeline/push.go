// Package pipeline implements the push/pull pipeline protocol: push load
// balances messages over its peers, pull fair-queues them.
package pipeline

import (
	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/pipe"
	"github.com/multisocket/spcore/protocol"
	"github.com/multisocket/spcore/protocol/pipeset"
	"github.com/multisocket/spcore/socket"
)

type push struct {
	stats *socket.Stats
	lb    *pipeset.LB
}

// PushType is the push socket type.
var PushType = &socket.Type{
	Domain:   protocol.AFSP,
	Protocol: protocol.Push,
	Name:     "push",
	Flags:    socket.NoRecv,
	IsPeer:   func(proto int) bool { return proto == protocol.Pull },
	Create:   newPush,
}

func newPush(s *socket.Socket) (socket.Protocol, error) {
	return &push{stats: s.Stats(), lb: pipeset.NewLB()}, nil
}

func (x *push) Add(p pipe.Pipe) error {
	x.lb.Add(p)
	return nil
}

func (x *push) Rm(p pipe.Pipe) {
	x.lb.Rm(p)
}

func (x *push) In(p pipe.Pipe) {}

func (x *push) Out(p pipe.Pipe) {
	x.lb.Out(p)
}

func (x *push) Events() socket.Events {
	if x.lb.CanSend() {
		return socket.EventOut
	}
	return 0
}

func (x *push) Send(msg *message.Message) error {
	prio := x.lb.Priority()
	if _, err := x.lb.Send(msg); err != nil {
		return err
	}
	x.stats.Set(socket.StatCurrentSendPriority, prio)
	return nil
}

func (x *push) Recv() (*message.Message, error) {
	return nil, errs.ErrNotSupported
}

func (x *push) SetOption(level, id int, val []byte) error {
	return errs.ErrInvalidOption
}

func (x *push) GetOption(level, id int) ([]byte, error) {
	return nil, errs.ErrInvalidOption
}

func (x *push) Destroy() {}
