// Package system is the wall-clock monitor.Clock used outside of tests.
package system

import "time"

// Clock reads the system time.
type Clock struct{}

// New returns a Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC, the zone found-at timestamps are
// recorded in.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
