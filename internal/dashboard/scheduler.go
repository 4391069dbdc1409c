package dashboard

import "time"

// Scheduler abstracts repeating and one-shot timers so the polling loop
// can be driven by a virtual clock in tests. Both constructors return a
// cancel function that releases the underlying timer.
type Scheduler interface {
	Tick(d time.Duration) (<-chan time.Time, func())
	After(d time.Duration) (<-chan time.Time, func())
}

type realScheduler struct{}

// NewScheduler returns a Scheduler backed by the wall clock.
func NewScheduler() Scheduler {
	return realScheduler{}
}

func (realScheduler) Tick(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func (realScheduler) After(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTimer(d)
	return t.C, func() { t.Stop() }
}
