// Package pipeset implements the pipe selection strategies shared by protocols:
// an exclusive single pipe, a load balancer for sending and a fair queue for
// receiving. Pipes carry a priority from 1 (highest) to 16; within one
// priority they are used round robin.
package pipeset

import (
	"github.com/eapache/queue"

	"github.com/multisocket/spcore/pipe"
)

type (
	member struct {
		prio   int
		gen    uint64
		active bool
	}

	entry struct {
		p   pipe.Pipe
		gen uint64
	}

	// PrioList is a set of pipes, the active ones are queued by priority.
	// Removed or deactivated pipes leave stale queue entries that are
	// skipped lazily.
	PrioList struct {
		queues  [pipe.MaxPriority]*queue.Queue
		members map[pipe.Pipe]*member
		gen     uint64
	}
)

// NewPrioList creates an empty list.
func NewPrioList() *PrioList {
	l := &PrioList{members: make(map[pipe.Pipe]*member)}
	for i := range l.queues {
		l.queues[i] = queue.New()
	}
	return l
}

func clamp(prio int) int {
	if prio < pipe.MinPriority || prio > pipe.MaxPriority {
		return pipe.DefaultPriority
	}
	return prio
}

// Add adds an inactive pipe.
func (l *PrioList) Add(p pipe.Pipe, prio int) {
	if _, ok := l.members[p]; ok {
		return
	}
	l.members[p] = &member{prio: clamp(prio)}
}

// Rm removes a pipe.
func (l *PrioList) Rm(p pipe.Pipe) {
	delete(l.members, p)
}

// Activate queues p, it is a no-op for active or unknown pipes.
func (l *PrioList) Activate(p pipe.Pipe) {
	m, ok := l.members[p]
	if !ok || m.active {
		return
	}
	l.gen++
	m.active = true
	m.gen = l.gen
	l.queues[m.prio-1].Add(entry{p: p, gen: m.gen})
}

func (l *PrioList) valid(e entry) bool {
	m, ok := l.members[e.p]
	return ok && m.active && m.gen == e.gen
}

// head drops stale entries and returns the queue holding the current pipe.
func (l *PrioList) head() *queue.Queue {
	for _, q := range l.queues {
		for q.Length() > 0 {
			if l.valid(q.Peek().(entry)) {
				return q
			}
			q.Remove()
		}
	}
	return nil
}

// Current returns the active pipe to use next.
func (l *PrioList) Current() (pipe.Pipe, bool) {
	q := l.head()
	if q == nil {
		return nil, false
	}
	return q.Peek().(entry).p, true
}

// Priority returns the priority of the current pipe, 0 when empty.
func (l *PrioList) Priority() int {
	p, ok := l.Current()
	if !ok {
		return 0
	}
	return l.members[p].prio
}

// Advance moves past the current pipe. A released pipe is deactivated until
// the next Activate, otherwise it goes to the back of its priority.
func (l *PrioList) Advance(release bool) {
	q := l.head()
	if q == nil {
		return
	}
	e := q.Remove().(entry)
	if release {
		l.members[e.p].active = false
		return
	}
	q.Add(e)
}

// Empty reports whether no pipe is active.
func (l *PrioList) Empty() bool {
	return l.head() == nil
}

// Len returns the number of pipes.
func (l *PrioList) Len() int {
	return len(l.members)
}
