package service

import "time"

// Interval is a booked time range. Both ends are inclusive.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether [start, end] intersects the existing interval.
// Touching boundaries count as a collision: a slot starting when another ends is rejected.
func Overlaps(existing Interval, start, end time.Time) bool {
	return !(end.Before(existing.Start) || start.After(existing.End))
}

// Bookings is the set of intervals already held by one resource.
type Bookings []Interval

// Collides reports whether [start, end] overlaps any booking.
func (b Bookings) Collides(start, end time.Time) bool {
	for _, existing := range b {
		if Overlaps(existing, start, end) {
			return true
		}
	}
	return false
}

// Add records a new booking.
func (b *Bookings) Add(start, end time.Time) {
	*b = append(*b, Interval{Start: start, End: end})
}
