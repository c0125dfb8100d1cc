// Package opday maps civil timestamps onto operational days. An
// operational day runs from 07:00 local time to 06:59 the next morning,
// so overnight reporting lands on the day the shift started.
package opday

import (
	"fmt"
	"time"
)

const dayFormat = "2006-01-02"

// StartHour is the local hour at which an operational day begins.
const StartHour = 7

// Bounds returns the [start, end) window of the operational day that
// begins on the given civil date.
func Bounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	d, err := time.ParseInLocation(dayFormat, day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to parse day %q: %w", day, err)
	}
	start := time.Date(d.Year(), d.Month(), d.Day(), StartHour, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1), nil
}

// ForTime returns the YYYY-MM-DD operational day a timestamp belongs to,
// evaluated in the given location. Times before 07:00 belong to the
// previous day's window.
func ForTime(loc *time.Location, t time.Time) string {
	local := t.In(loc)
	if local.Hour() < StartHour {
		local = local.AddDate(0, 0, -1)
	}
	return local.Format(dayFormat)
}

// Today returns the operational day for the current instant.
func Today(loc *time.Location) string {
	return ForTime(loc, time.Now())
}
