package analyzer

import (
	"time"

	"binday/internal/models"
)

// NearestFutureDate returns the category date closest to now, ignoring any
// date before today's calendar day. Today is taken in each row's own
// location, so now may be given in any zone. Ties keep the first row in
// input order.
func NearestFutureDate(rows []models.ScheduleRow, category models.Category, now time.Time) (time.Time, bool) {
	var (
		best     time.Time
		bestDiff time.Duration
		found    bool
	)
	for _, row := range rows {
		if row.Category != category {
			continue
		}
		if isPast(row.Date, now) {
			continue
		}

		diff := absDiff(row.Date, now)
		if !found || diff < bestDiff {
			best, bestDiff, found = row.Date, diff, true
		}
	}
	return best, found
}

// Resolve builds the per-category date map for rows. Categories with no
// future candidate become NoCollection.
func Resolve(rows []models.ScheduleRow, now time.Time) map[models.Category]models.DateValue {
	dates := make(map[models.Category]models.DateValue, len(models.Categories))
	for _, c := range models.Categories {
		if d, ok := NearestFutureDate(rows, c, now); ok {
			dates[c] = models.ResolvedDate(d)
		} else {
			dates[c] = models.DateValue{Kind: models.NoCollection}
		}
	}
	return dates
}

// NextUpcoming applies the nearest-future rule across categories. Ties go
// to the earlier category in models.Categories.
func NextUpcoming(dates map[models.Category]models.DateValue, now time.Time) (models.Category, time.Time, bool) {
	rows := make([]models.ScheduleRow, 0, len(models.Categories))
	for _, c := range models.Categories {
		if v, ok := dates[c]; ok && v.Kind == models.Resolved {
			rows = append(rows, models.ScheduleRow{Category: c, Date: v.Date})
		}
	}

	var (
		best  models.ScheduleRow
		found bool
	)
	for _, row := range rows {
		if isPast(row.Date, now) {
			continue
		}
		if !found || absDiff(row.Date, now) < absDiff(best.Date, now) {
			best, found = row, true
		}
	}
	return best.Category, best.Date, found
}

// isPast reports whether date falls before today, where today is now's
// calendar day in date's location.
func isPast(date, now time.Time) bool {
	return date.Before(NormalizeDate(now.In(date.Location())))
}

func absDiff(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
