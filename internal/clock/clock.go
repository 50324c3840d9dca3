// Package clock abstracts timer creation so poll intervals and feedback
// delays can be driven by a fake in tests.
package clock

import "time"

// Clock provides the two time operations the flow components need.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// System is the real wall clock.
type System struct{}

// Now returns the current time.
func (System) Now() time.Time { return time.Now() }

// After waits for the duration to elapse on a real timer.
func (System) After(d time.Duration) <-chan time.Time { return time.After(d) }
