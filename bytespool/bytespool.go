// Package bytespool keeps size-classed pools of byte slices for message buffers.
//
// Classes double from 16 bytes to 16KB, then grow in 16KB steps up to 1MB.
// Larger buffers are allocated directly and never pooled.
package bytespool

import (
	"sort"
	"sync"
)

const (
	minClass = 16
	step     = 16 * 1024
	maxClass = 64 * step
)

var (
	classes = sizeClasses()
	pools   = make([]sync.Pool, len(classes))
)

func sizeClasses() []int {
	var cs []int
	for sz := minClass; sz < step; sz *= 2 {
		cs = append(cs, sz)
	}
	for sz := step; sz <= maxClass; sz += step {
		cs = append(cs, sz)
	}
	return cs
}

// class returns the index of the smallest class holding sz, len(classes) when none does.
func class(sz int) int {
	return sort.SearchInts(classes, sz)
}

// Alloc returns a slice of length sz, pooled when a size class fits.
func Alloc(sz int) []byte {
	if sz <= 0 {
		return nil
	}
	i := class(sz)
	if i == len(classes) {
		return make([]byte, sz)
	}
	if b, ok := pools[i].Get().([]byte); ok {
		return b[:sz]
	}
	return make([]byte, sz, classes[i])
}

// Free returns b to its pool. Slices whose capacity is not a class size are dropped.
func Free(b []byte) {
	c := cap(b)
	if c <= 0 {
		return
	}
	if i := class(c); i < len(classes) && classes[i] == c {
		pools[i].Put(b[:0])
	}
}
