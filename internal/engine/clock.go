package engine

import "time"

// Clock supplies the wall time an action is applied at. The weekday or
// weekend branch of the catalog, history dates and lastUpdated all derive
// from a single Now call per request.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system time in Location.
//
// Location decides which calendar day (and so which catalog variant) a
// request falls on. A nil Location means time.Local.
type SystemClock struct {
	Location *time.Location
}

// Now implements Clock.
func (c SystemClock) Now() time.Time {
	now := time.Now()
	if c.Location != nil {
		return now.In(c.Location)
	}
	return now
}
