package pipeline

import (
	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/pipe"
	"github.com/multisocket/spcore/protocol"
	"github.com/multisocket/spcore/protocol/pipeset"
	"github.com/multisocket/spcore/socket"
)

type pull struct {
	fq *pipeset.FQ
}

// PullType is the pull socket type.
var PullType = &socket.Type{
	Domain:   protocol.AFSP,
	Protocol: protocol.Pull,
	Name:     "pull",
	Flags:    socket.NoSend,
	IsPeer:   func(proto int) bool { return proto == protocol.Push },
	Create:   newPull,
}

func init() {
	protocol.MustRegister(PushType)
	protocol.MustRegister(PullType)
}

func newPull(s *socket.Socket) (socket.Protocol, error) {
	return &pull{fq: pipeset.NewFQ()}, nil
}

func (x *pull) Add(p pipe.Pipe) error {
	x.fq.Add(p)
	return nil
}

func (x *pull) Rm(p pipe.Pipe) {
	x.fq.Rm(p)
}

func (x *pull) In(p pipe.Pipe) {
	x.fq.In(p)
}

func (x *pull) Out(p pipe.Pipe) {}

func (x *pull) Events() socket.Events {
	if x.fq.CanRecv() {
		return socket.EventIn
	}
	return 0
}

func (x *pull) Send(msg *message.Message) error {
	return errs.ErrNotSupported
}

func (x *pull) Recv() (*message.Message, error) {
	msg, _, _, err := x.fq.Recv()
	return msg, err
}

func (x *pull) SetOption(level, id int, val []byte) error {
	return errs.ErrInvalidOption
}

func (x *pull) GetOption(level, id int) ([]byte, error) {
	return nil, errs.ErrInvalidOption
}

func (x *pull) Destroy() {}
