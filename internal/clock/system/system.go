// Package system provides the wall clock used to stamp runs and batches.
package system

import "time"

// Clock implements crawler.Clock and always reports UTC.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
