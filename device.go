package spcore

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/protocol"
	"github.com/multisocket/spcore/socket"
)

// DeviceFunc checks or modifies forwarded messages, a nil result drops the message.
type DeviceFunc func(msg *message.Message) *message.Message

// Device forwards messages between two raw sockets until one of them fails,
// usually because the library is terminating. With fd2 < 0 messages of fd1
// are sent back through fd1.
func Device(fd1, fd2 int) error {
	return DeviceWith(fd1, fd2, nil)
}

// DeviceWith is Device with a message hook.
func DeviceWith(fd1, fd2 int, mid DeviceFunc) error {
	s1, err := lookup(fd1)
	if err != nil {
		return err
	}
	if fd2 < 0 {
		if !isRaw(s1) {
			return errs.ErrInvalidArgument
		}
		return forward(s1, s1, mid)
	}

	s2, err := lookup(fd2)
	if err != nil {
		return err
	}
	if !isRaw(s1) || !isRaw(s2) || !s1.Type().Peer(s2.Type().Protocol) {
		return errs.ErrInvalidArgument
	}

	var (
		wg    sync.WaitGroup
		once  sync.Once
		first error
	)
	run := func(from, to *socket.Socket) {
		defer wg.Done()
		err := forward(from, to, mid)
		once.Do(func() { first = err })
	}
	if canForward(s1, s2) {
		wg.Add(1)
		go run(s1, s2)
	}
	if canForward(s2, s1) {
		wg.Add(1)
		go run(s2, s1)
	}
	wg.Wait()
	return first
}

func isRaw(s *socket.Socket) bool {
	return s.Type().Domain == protocol.AFSPRaw
}

func canForward(from, to *socket.Socket) bool {
	return from.Type().Flags&socket.NoRecv == 0 && to.Type().Flags&socket.NoSend == 0
}

func forward(from, to *socket.Socket, mid DeviceFunc) error {
	for {
		msg, err := from.Recv(0)
		if err == errs.ErrTimeout {
			continue
		}
		if err != nil {
			return err
		}
		if mid != nil {
			if msg = mid(msg); msg == nil {
				continue
			}
		}
		sz := msg.Size()
		if err = to.Send(msg, 0); err != nil {
			msg.Free()
			return err
		}
		if log.IsLevelEnabled(log.TraceLevel) {
			log.WithField("domain", "device").
				WithFields(log.Fields{"from": from.FD(), "to": to.FD(), "size": sz}).
				Trace("forward")
		}
	}
}
