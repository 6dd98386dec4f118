package utils

import (
	"time"
)

type (
	// Timer is a reusable single-shot deadline.
	// The zero Timer never fires: its C is nil.
	Timer struct {
		C  <-chan time.Time
		tm *time.Timer
	}
)

// NewTimer create a stopped timer
func NewTimer() *Timer {
	return new(Timer)
}

// NewTimerWithDuration create a timer firing after d.
func NewTimerWithDuration(d time.Duration) *Timer {
	t := new(Timer)
	t.Reset(d)
	return t
}

func (t *Timer) stop() {
	if !t.tm.Stop() {
		select {
		case <-t.tm.C:
		default:
		}
	}
}

// Stop prevents the Timer from firing.
func (t *Timer) Stop() {
	if t.tm == nil {
		return
	}
	t.stop()
	t.C = nil
}

// Reset reset the timer to next duration, a negative duration means never fire.
func (t *Timer) Reset(d time.Duration) {
	if d < 0 {
		t.Stop()
		return
	}
	if t.tm == nil {
		t.tm = time.NewTimer(d)
	} else {
		t.stop()
		t.tm.Reset(d)
	}
	t.C = t.tm.C
}

// Millis converts a millisecond option value to a duration, -1 stays negative.
func Millis(ms int) time.Duration {
	if ms < 0 {
		return -1
	}
	return time.Duration(ms) * time.Millisecond
}
