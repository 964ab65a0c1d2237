package analyzer

import "time"

// NormalizeDate returns the date at 00:00:00 in t's location
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysBetween counts calendar days from a to b, ignoring DST shifts
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// weekStart returns the Monday of t's week
func weekStart(t time.Time) time.Time {
	d := NormalizeDate(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// DateToKey converts a time to its YYYY-MM-DD form
func DateToKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// KeyToDate parses a YYYY-MM-DD key as midnight in loc
func KeyToDate(key string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", key, loc)
}
