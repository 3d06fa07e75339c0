package trend

import "time"

// WeekStart returns the Monday 00:00:00 UTC of the week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	daysBack := (int(t.Weekday()) + 6) % 7 // Monday = 0
	monday := t.AddDate(0, 0, -daysBack)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}

// PreviousWeekStart returns the Monday of the week before the one containing t.
// Synthesis defaults to the previous week so it always covers a finished week.
func PreviousWeekStart(t time.Time) time.Time {
	return WeekStart(t).AddDate(0, 0, -7)
}

// WeekEnd returns the exclusive end of the week starting at weekStart.
func WeekEnd(weekStart time.Time) time.Time {
	return weekStart.AddDate(0, 0, 7)
}
