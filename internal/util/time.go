package util

import "time"

// TruncateToDay returns midnight of the date in its own location.
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayRange returns [start, end) of the calendar day containing t in loc.
func DayRange(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := TruncateToDay(t.In(loc))
	return start, start.AddDate(0, 0, 1)
}

// MinutesOfDay returns minutes since midnight of t in loc, seconds are dropped.
func MinutesOfDay(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return local.Hour()*60 + local.Minute()
}
