package aggregator

import "time"

type Timer interface {
	Stop() bool
	Reset(Duration) bool
}

type TimeProvider interface {
	Now() Time
	AfterFunc(Duration, func()) Timer
}

type timeProvider struct{}

func (p timeProvider) Now() Time {
	return time.Now()
}

func (p timeProvider) AfterFunc(d Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
