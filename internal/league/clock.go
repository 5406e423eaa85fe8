// Package league converts instants into league-local calendar days.
// The league runs on a fixed UTC-5 offset with no daylight-saving adjustment.
package league

import "time"

// OffsetHours is the fixed league offset from UTC.
const OffsetHours = -5

// Location is the fixed-offset zone used for league dates and poll times.
var Location = time.FixedZone("ET", OffsetHours*60*60)

// Direction selects whether ShiftedDate moves into the past or the future.
type Direction int

const (
	Future Direction = iota
	Past
)

// Clock computes league-local dates from an injectable time source.
type Clock struct {
	now func() time.Time
}

// NewClock creates a Clock backed by time.Now.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewClockAt creates a Clock that reads instants from now. Used by tests and one-shot runs.
func NewClockAt(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Now returns the current instant.
func (c *Clock) Now() time.Time {
	return c.now()
}

// Today returns the current league-local date.
func (c *Clock) Today() time.Time {
	return DateOf(c.now())
}

// ShiftedDate returns the league-local date the given number of days away from today.
func (c *Clock) ShiftedDate(days int, dir Direction) time.Time {
	if dir == Past {
		days = -days
	}
	return Today(c.now()).AddDate(0, 0, days)
}

// Today is the package-level form of Clock.Today for a fixed instant.
func Today(now time.Time) time.Time {
	return DateOf(now)
}

// DateOf truncates an instant to its league-local calendar date.
// The result is midnight UTC of that date so it compares cleanly with DATE columns.
func DateOf(t time.Time) time.Time {
	local := t.In(Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// Date builds a league date from its parts.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// InWindow reports whether the league-local date of t lies in [start, end].
func InWindow(t, start, end time.Time) bool {
	d := DateOf(t)
	return !d.Before(start) && !d.After(end)
}

// StartOf returns the instant at which the league date begins.
func StartOf(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, Location)
}
