package domain

import "time"

// Clock supplies the current time to aggregates and services.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

// Now returns the function's result in UTC.
func (f ClockFunc) Now() time.Time { return f().UTC() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)
