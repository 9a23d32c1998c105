// Package clock abstracts time operations so code that waits (rate-limit
// backoff, poll scheduling) can be tested without real sleeps. Production
// code injects Real(); tests inject a Fake.
package clock

import "time"

// Clock provides the time operations this codebase uses.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time after d
	// elapses. Equivalent to time.After.
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
