package pipe

import (
	"sync"
)

// Base implements the identity, priorities and data slot of a Pipe.
// Transports embed it.
type Base struct {
	id      uint32
	sndprio int
	rcvprio int

	mu      sync.RWMutex
	data    interface{}
	hasData bool
}

// Init sets the pipe identity and priorities, out of range priorities become the default.
func (b *Base) Init(id uint32, sndprio, rcvprio int) {
	b.id = id
	b.sndprio = clampPriority(sndprio)
	b.rcvprio = clampPriority(rcvprio)
}

func clampPriority(prio int) int {
	if prio < MinPriority || prio > MaxPriority {
		return DefaultPriority
	}
	return prio
}

// ID returns the pipe id.
func (b *Base) ID() uint32 {
	return b.id
}

// SendPriority returns the outbound priority.
func (b *Base) SendPriority() int {
	return b.sndprio
}

// RecvPriority returns the inbound priority.
func (b *Base) RecvPriority() int {
	return b.rcvprio
}

// SetData attaches data, it panics when data was already attached.
func (b *Base) SetData(data interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hasData {
		panic("pipe: protocol data already attached")
	}
	b.data = data
	b.hasData = true
}

// Data returns the attached data or nil.
func (b *Base) Data() interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data
}
