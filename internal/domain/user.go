package domain

import "time"

// DayFormat renders a date as weekday, month, day and year with no time
// component, e.g. "Mon May 01 2023".
const DayFormat = "Mon Jan 02 2006"

// User is the canonical account record stored in PostgreSQL.
type User struct {
	ID       string
	Username string
}

// Exercise is a single log entry appended to a user's history. Entries are
// append-only: they are never edited or removed once stored.
type Exercise struct {
	ID          int64
	UserID      string
	Description string
	DurationMin int
	Date        time.Time
}

// DateString renders the exercise date at day precision.
func (e Exercise) DateString() string {
	return e.Date.Format(DayFormat)
}

// Day truncates a timestamp to midnight UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
