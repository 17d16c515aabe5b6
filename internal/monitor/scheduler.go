package monitor

import "time"

// Scheduler abstracts the timers driving the evaluation loop so tests
// can fire ticks manually instead of sleeping.
type Scheduler interface {
	// Schedule runs fn every interval until the returned stop func is
	// called.
	Schedule(interval time.Duration, fn func()) (stop func())
	// After runs fn once after delay unless stopped first.
	After(delay time.Duration, fn func()) (stop func())
}

// TickerScheduler is the production Scheduler backed by real timers.
type TickerScheduler struct{}

func NewTickerScheduler() TickerScheduler {
	return TickerScheduler{}
}

func (TickerScheduler) Schedule(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	return func() { close(done) }
}

func (TickerScheduler) After(delay time.Duration, fn func()) func() {
	timer := time.AfterFunc(delay, fn)
	return func() { timer.Stop() }
}
