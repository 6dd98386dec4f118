package efd

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multisocket/spcore/errs"
)

func newEfd(t *testing.T) *Efd {
	e, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestSignalUnsignal(t *testing.T) {
	e := newEfd(t)
	assert.Equal(t, Unsignaled, e.State())

	e.Signal()
	e.Signal()
	assert.True(t, e.IsSignaled())
	assert.NoError(t, e.Wait(nil))

	e.Unsignal()
	e.Unsignal()
	assert.Equal(t, Unsignaled, e.State())
}

func TestWaitTimeout(t *testing.T) {
	e := newEfd(t)
	start := time.Now()
	err := e.Wait(time.After(30 * time.Millisecond))
	assert.Equal(t, errs.ErrTimeout, err)
	assert.True(t, time.Since(start) >= 30*time.Millisecond)
}

func TestWaitWokenBySignal(t *testing.T) {
	e := newEfd(t)
	done := make(chan error, 1)
	go func() {
		done <- e.Wait(nil)
	}()
	time.Sleep(10 * time.Millisecond)
	e.Signal()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter not woken")
	}
}

func TestStopWakesAllWaiters(t *testing.T) {
	e := newEfd(t)
	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- e.Wait(nil)
		}()
	}
	time.Sleep(10 * time.Millisecond)
	e.Stop()
	wg.Wait()
	close(results)
	for err := range results {
		assert.Equal(t, errs.ErrTerminating, err)
	}

	// final
	e.Signal()
	assert.Equal(t, Stopped, e.State())
	assert.Equal(t, errs.ErrTerminating, e.Wait(nil))
}

func TestPulse(t *testing.T) {
	e := newEfd(t)
	done := make(chan error, 1)
	go func() {
		done <- e.Wait(nil)
	}()
	time.Sleep(10 * time.Millisecond)
	e.Pulse()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter not woken by pulse")
	}
	assert.Equal(t, Unsignaled, e.State())
}

func TestSignalRace(t *testing.T) {
	e := newEfd(t)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				e.Signal()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				e.Unsignal()
			}
		}()
	}
	wg.Wait()
	e.Signal()
	assert.NoError(t, e.Wait(time.After(time.Second)))
}

func TestArmedWaiterSeesPulse(t *testing.T) {
	e := newEfd(t)
	w := e.Arm()
	e.Pulse()
	assert.NoError(t, w.Wait(time.After(time.Second)))

	// a waiter armed after the pulse keeps waiting
	assert.Equal(t, errs.ErrTimeout, e.Arm().Wait(time.After(10*time.Millisecond)))
}
