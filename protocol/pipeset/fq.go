package pipeset

import (
	log "github.com/sirupsen/logrus"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/pipe"
)

// FQ receives from pipes fairly, round robin over the highest priority.
type FQ struct {
	list *PrioList
}

// NewFQ creates a fair queue.
func NewFQ() *FQ {
	return &FQ{list: NewPrioList()}
}

// Add adds p using its receive priority.
func (fq *FQ) Add(p pipe.Pipe) {
	fq.list.Add(p, p.RecvPriority())
}

// Rm removes p.
func (fq *FQ) Rm(p pipe.Pipe) {
	fq.list.Rm(p)
}

// In makes p available for receiving.
func (fq *FQ) In(p pipe.Pipe) {
	fq.list.Activate(p)
}

// CanRecv reports whether a pipe has a message.
func (fq *FQ) CanRecv() bool {
	return !fq.list.Empty()
}

// Recv receives from the next readable pipe.
func (fq *FQ) Recv() (*message.Message, pipe.Pipe, pipe.Flags, error) {
	for {
		p, ok := fq.list.Current()
		if !ok {
			return nil, nil, 0, errs.ErrWouldBlock
		}
		msg, flags, err := p.Recv()
		if err != nil {
			if err != pipe.ErrTemporarilyUnavailable && log.IsLevelEnabled(log.DebugLevel) {
				log.WithField("domain", "pipeset").
					WithFields(log.Fields{"pipe": p.ID()}).
					WithError(err).Debug("recv failed")
			}
			fq.list.Advance(true)
			continue
		}
		fq.list.Advance(flags.Has(pipe.Release))
		return msg, p, flags, nil
	}
}
