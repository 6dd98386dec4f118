// Package pair implements the one-to-one pair protocol.
package pair

import (
	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/pipe"
	"github.com/multisocket/spcore/protocol"
	"github.com/multisocket/spcore/protocol/pipeset"
	"github.com/multisocket/spcore/socket"
)

type pair struct {
	excl pipeset.Excl
}

// Type is the pair socket type.
var Type = &socket.Type{
	Domain:   protocol.AFSP,
	Protocol: protocol.Pair,
	Name:     "pair",
	Create:   newPair,
}

// RawType is the raw pair socket type.
var RawType = &socket.Type{
	Domain:   protocol.AFSPRaw,
	Protocol: protocol.Pair,
	Name:     "pair.raw",
	Create:   newPair,
}

func init() {
	protocol.MustRegister(Type)
	protocol.MustRegister(RawType)
}

func newPair(s *socket.Socket) (socket.Protocol, error) {
	return &pair{}, nil
}

func (x *pair) Add(p pipe.Pipe) error {
	return x.excl.Add(p)
}

func (x *pair) Rm(p pipe.Pipe) {
	x.excl.Rm(p)
}

func (x *pair) In(p pipe.Pipe) {
	x.excl.In(p)
}

func (x *pair) Out(p pipe.Pipe) {
	x.excl.Out(p)
}

func (x *pair) Events() (ev socket.Events) {
	if x.excl.CanRecv() {
		ev |= socket.EventIn
	}
	if x.excl.CanSend() {
		ev |= socket.EventOut
	}
	return
}

func (x *pair) Send(msg *message.Message) error {
	return x.excl.Send(msg)
}

func (x *pair) Recv() (*message.Message, error) {
	msg, _, err := x.excl.Recv()
	return msg, err
}

func (x *pair) SetOption(level, id int, val []byte) error {
	return errs.ErrInvalidOption
}

func (x *pair) GetOption(level, id int) ([]byte, error) {
	return nil, errs.ErrInvalidOption
}

func (x *pair) Destroy() {}
