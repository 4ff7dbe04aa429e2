// Package badge implements the per-listing badge state store.
package badge

import (
	"sync"
	"time"
)

// Clock abstracts time for the store and its debounced persistence, so the
// debounce behavior is testable with a fake clock instead of real timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a stoppable pending callback.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{t: time.AfterFunc(d, f)}
}

type realTimer struct {
	t *time.Timer
}

func (rt realTimer) Stop() bool { return rt.t.Stop() }

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

// flushScheduler debounces persistence: a single pending flush slot that is
// replaced, not queued, on each new write. Only the final write in a burst
// triggers the actual flush, bounding write rate to the durable store while
// guaranteeing a flush once writes stop.
type flushScheduler struct {
	mu    sync.Mutex
	clock Clock
	delay time.Duration
	flush func()
	timer Timer
}

func newFlushScheduler(clock Clock, delay time.Duration, flush func()) *flushScheduler {
	return &flushScheduler{
		clock: clock,
		delay: delay,
		flush: flush,
	}
}

// Schedule arms the pending flush, replacing any previous one.
func (s *flushScheduler) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.clock.AfterFunc(s.delay, s.fire)
}

func (s *flushScheduler) fire() {
	s.mu.Lock()
	s.timer = nil
	s.mu.Unlock()

	s.flush()
}

// Cancel drops the pending flush, if any. Used by eager persistence paths.
func (s *flushScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
