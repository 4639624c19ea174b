package engine

import "time"

// Clock abstracts time.Now() to allow deterministic testing.
// The Calculator reads "today" from it, in the clock's own location.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock in a fixed zone. A zero Location means time.Local.
type RealClock struct {
	Location *time.Location
}

// Now returns the current time in the configured zone.
func (c RealClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}
