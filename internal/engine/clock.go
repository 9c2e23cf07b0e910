package engine

import "time"

// Clock is the time source for capture offsets, replay timing and the
// recording duration alarm.
//
// Production code uses SystemClock. Tests use testutil.ManualClock to pin
// offsets and fire alarms deterministically.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable one-shot alarm.
type Timer interface {
	// Stop prevents the alarm from firing. It returns false if the alarm
	// already fired or was stopped.
	Stop() bool
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// AfterFunc wraps time.AfterFunc.
func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
