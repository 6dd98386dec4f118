package utils

import (
	"math/rand"
	"sync"
	"time"
)

// RecyclableIDGenerator generate recyclable unique ids.
type RecyclableIDGenerator struct {
	sync.Mutex
	ids  map[uint32]struct{}
	next uint32
}

// NewRecyclableIDGenerator create an id generator
func NewRecyclableIDGenerator() *RecyclableIDGenerator {
	return &RecyclableIDGenerator{
		ids:  make(map[uint32]struct{}),
		next: uint32(rand.New(rand.NewSource(time.Now().UnixNano())).Int63()),
	}
}

// NextID get the next id, ids are 31 bits and never 0.
func (g *RecyclableIDGenerator) NextID() (id uint32) {
	g.Lock()
	defer g.Unlock()
	for {
		id = g.next & 0x7fffffff
		g.next++
		if id == 0 {
			continue
		}
		if _, ok := g.ids[id]; !ok {
			g.ids[id] = struct{}{}
			break
		}
	}
	return
}

// Recycle recyle the id for future use.
func (g *RecyclableIDGenerator) Recycle(id uint32) {
	g.Lock()
	delete(g.ids, id)
	g.Unlock()
}

// HandleAllocator hands out the lowest free small integer below a limit.
type HandleAllocator struct {
	sync.Mutex
	used  []bool
	count int
}

// NewHandleAllocator create an allocator for handles in [0, limit).
func NewHandleAllocator(limit int) *HandleAllocator {
	return &HandleAllocator{used: make([]bool, limit)}
}

// Alloc returns a free handle, ok is false when all are in use.
func (a *HandleAllocator) Alloc() (h int, ok bool) {
	a.Lock()
	defer a.Unlock()
	if a.count == len(a.used) {
		return -1, false
	}
	for h = range a.used {
		if !a.used[h] {
			a.used[h] = true
			a.count++
			return h, true
		}
	}
	return -1, false
}

// Free releases the handle.
func (a *HandleAllocator) Free(h int) {
	a.Lock()
	if h >= 0 && h < len(a.used) && a.used[h] {
		a.used[h] = false
		a.count--
	}
	a.Unlock()
}

// Count returns the number of handles in use.
func (a *HandleAllocator) Count() int {
	a.Lock()
	defer a.Unlock()
	return a.count
}
