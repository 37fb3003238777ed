package models

import (
	"fmt"
	"time"
)

// Day returns the calendar-day key for t in the given timezone, e.g.
// "2025-09-01". Daily gates and the sacrificial selection key on it.
func Day(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// Week returns the ISO week key for t in the given timezone, e.g.
// "2025-W36". ISO weeks start Monday 00:00, which is when the weekly
// trade counters reset.
func Week(t time.Time, loc *time.Location) string {
	year, week := t.In(loc).ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
