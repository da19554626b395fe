// Package timeutil provides date and timezone helpers for the progression
// engine. Streaks and reminders are calendar-date based, so all bucketing
// happens on UTC day boundaries unless a user timezone is given.
// No external dependencies - uses only standard library.
package timeutil

import "time"

// StartOfDay returns the start of the day (00:00:00) in UTC.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// InLocation converts a time to the named IANA timezone. Falls back to
// UTC when the name does not resolve, so a bad user setting never
// breaks scheduling.
func InLocation(t time.Time, tz string) time.Time {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return t.UTC()
	}
	return t.In(loc)
}

// LocalHour returns the hour-of-day (0-23) in the named timezone.
func LocalHour(t time.Time, tz string) int {
	return InLocation(t, tz).Hour()
}
