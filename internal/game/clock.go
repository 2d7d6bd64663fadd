package game

import "time"

// Timer is a cancellable scheduled callback. Stop on a fired or stopped
// timer is a no-op.
type Timer interface {
	Stop() bool
}

// Clock supplies wall time and scheduled callbacks to a session.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// RealClock is backed by the time package.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
