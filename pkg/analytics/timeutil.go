package analytics

import "time"

// weekdayOrder fixes Monday-first iteration for all weekday output.
var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daySpan counts whole calendar days between two timestamps, inclusive of
// both endpoints.
func daySpan(first, last time.Time) int {
	if first.IsZero() || last.IsZero() {
		return 0
	}
	return int(startOfDay(last).Sub(startOfDay(first)).Hours()/24) + 1
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
