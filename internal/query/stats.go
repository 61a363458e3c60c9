package query

import (
	"time"

	"techevents/internal/model"
)

// Stats summarizes the collection relative to a point in time.
type Stats struct {
	Total     int `json:"total"`
	Upcoming  int `json:"upcoming"`
	ThisWeek  int `json:"thisWeek"`
	ThisMonth int `json:"thisMonth"`
}

// ComputeStats counts all events, those after now, and those between now and
// the end of the current week (weeks begin on weekStart) or month, inclusive.
func ComputeStats(events []model.Event, now time.Time, weekStart time.Weekday) Stats {
	weekEnd := EndOfWeek(now, weekStart)
	monthEnd := EndOfMonth(now)

	s := Stats{Total: len(events)}
	for _, ev := range events {
		start := ev.Start.Time()
		if start.After(now) {
			s.Upcoming++
		}
		if !start.Before(now) && !start.After(weekEnd) {
			s.ThisWeek++
		}
		if !start.Before(now) && !start.After(monthEnd) {
			s.ThisMonth++
		}
	}
	return s
}

// EndOfWeek is the last instant of the week containing t.
func EndOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	offset := (int(t.Weekday()) - int(weekStart) + 7) % 7
	first := StartOfDay(t).AddDate(0, 0, -offset)
	return first.AddDate(0, 0, 7).Add(-time.Nanosecond)
}

// EndOfMonth is the last instant of the month containing t.
func EndOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, t.Location()).Add(-time.Nanosecond)
}
