package pipeset

import (
	log "github.com/sirupsen/logrus"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/pipe"
)

// LB sends every message to one pipe, round robin over the highest priority.
type LB struct {
	list *PrioList
}

// NewLB creates a load balancer.
func NewLB() *LB {
	return &LB{list: NewPrioList()}
}

// Add adds p using its send priority.
func (lb *LB) Add(p pipe.Pipe) {
	lb.list.Add(p, p.SendPriority())
}

// Rm removes p.
func (lb *LB) Rm(p pipe.Pipe) {
	lb.list.Rm(p)
}

// Out makes p available for sending.
func (lb *LB) Out(p pipe.Pipe) {
	lb.list.Activate(p)
}

// CanSend reports whether a pipe is available.
func (lb *LB) CanSend() bool {
	return !lb.list.Empty()
}

// Priority returns the priority of the pipe used next, 0 when none.
func (lb *LB) Priority() int {
	return lb.list.Priority()
}

// Send sends msg to the next available pipe. Pipes failing with backpressure
// or an error are skipped until they report Out again.
func (lb *LB) Send(msg *message.Message) (pipe.Pipe, error) {
	for {
		p, ok := lb.list.Current()
		if !ok {
			return nil, errs.ErrWouldBlock
		}
		flags, err := p.Send(msg)
		if err != nil {
			if err != pipe.ErrTemporarilyUnavailable && log.IsLevelEnabled(log.DebugLevel) {
				log.WithField("domain", "pipeset").
					WithFields(log.Fields{"pipe": p.ID()}).
					WithError(err).Debug("send failed")
			}
			lb.list.Advance(true)
			continue
		}
		lb.list.Advance(flags.Has(pipe.Release))
		return p, nil
	}
}
