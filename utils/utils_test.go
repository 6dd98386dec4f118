package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerReset(t *testing.T) {
	tm := NewTimer()
	assert.Nil(t, tm.C)

	tm.Reset(10 * time.Millisecond)
	start := time.Now()
	<-tm.C
	assert.True(t, time.Since(start) >= 10*time.Millisecond)

	tm.Reset(time.Hour)
	tm.Reset(5 * time.Millisecond)
	select {
	case <-tm.C:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire after reset")
	}

	tm.Reset(-1)
	assert.Nil(t, tm.C)
	tm.Stop()
}

func TestMillis(t *testing.T) {
	assert.Equal(t, time.Duration(-1), Millis(-1))
	assert.Equal(t, time.Duration(0), Millis(0))
	assert.Equal(t, 50*time.Millisecond, Millis(50))
}

func TestRecyclableIDGenerator(t *testing.T) {
	g := NewRecyclableIDGenerator()
	seen := make(map[uint32]bool)
	for i := 0; i < 1000; i++ {
		id := g.NextID()
		assert.NotZero(t, id)
		assert.Zero(t, id&0x80000000)
		assert.False(t, seen[id])
		seen[id] = true
	}
	for id := range seen {
		g.Recycle(id)
	}
}

func TestHandleAllocator(t *testing.T) {
	a := NewHandleAllocator(3)
	for want := 0; want < 3; want++ {
		h, ok := a.Alloc()
		assert.True(t, ok)
		assert.Equal(t, want, h)
	}
	_, ok := a.Alloc()
	assert.False(t, ok)

	a.Free(1)
	h, ok := a.Alloc()
	assert.True(t, ok)
	assert.Equal(t, 1, h)
	assert.Equal(t, 3, a.Count())

	a.Free(7)
	a.Free(0)
	a.Free(0)
	assert.Equal(t, 2, a.Count())
}
