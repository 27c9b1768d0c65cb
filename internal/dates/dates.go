// Package dates produces the due dates sent when creating todos.
package dates

import (
	"time"
	_ "time/tzdata"
)

const (
	// Zone is the timezone due dates are expressed in (+05:30).
	Zone = "Asia/Kolkata"
	// Layout matches the timestamps the service emits, millisecond precision.
	Layout = "2006-01-02T15:04:05.000-07:00"
	// Lead is how far in the future a due date is placed.
	Lead = 30 * time.Minute
)

var zone = mustLoad(Zone)

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic("dates: " + err.Error())
	}
	return loc
}

// DueDate returns now+Lead in Zone formatted with Layout.
func DueDate(now time.Time) string {
	return now.In(zone).Add(Lead).Format(Layout)
}

// CreateDate is DueDate for the current wall clock.
func CreateDate() string {
	return DueDate(time.Now())
}

// Day returns the calendar date of t in Zone as YYYY-MM-DD.
func Day(t time.Time) string {
	return t.In(zone).Format(time.DateOnly)
}
